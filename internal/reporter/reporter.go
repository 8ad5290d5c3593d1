package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	BatchStarted(info BatchStartInfo)
	BundleStarted(ctx BundleContext)
	StageProgress(update StageProgress)
	Identified(id Identification)
	BundleComplete(summary BundleSummary)
	Warning(message string)
	Error(err ReporterError)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) BatchStarted(BatchStartInfo)  {}
func (NullReporter) BundleStarted(BundleContext)  {}
func (NullReporter) StageProgress(StageProgress)  {}
func (NullReporter) Identified(Identification)    {}
func (NullReporter) BundleComplete(BundleSummary) {}
func (NullReporter) Warning(string)               {}
func (NullReporter) Error(ReporterError)          {}
func (NullReporter) BatchComplete(BatchSummary)   {}
func (NullReporter) Verbose(string)               {}
