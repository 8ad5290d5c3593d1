// Package reporter provides progress reporting interfaces and
// implementations for conversion batches.
package reporter

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalBundles int
	BundleNames  []string
	OutputDir    string
}

// BundleContext identifies the bundle currently being converted.
type BundleContext struct {
	Index int // 1-based
	Total int
	Name  string
}

// StageProgress is a sub-step narration line within one bundle.
type StageProgress struct {
	Stage   string
	Message string
}

// Identification describes how an overlay was resolved.
type Identification struct {
	Bundle       string
	RawText      string
	OperatorName string
	Exact        bool
}

// BundleSummary contains the per-bundle result.
type BundleSummary struct {
	Name        string
	Success     bool
	Message     string
	Files       []string
	OutputBytes uint64
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	Attempted      int
	Succeeded      int
	TotalFiles     int
	OutputBytes    uint64
	ElapsedSeconds float64
	Results        []BundleSummary
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
