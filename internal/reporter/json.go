package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs one NDJSON event per line, for machine consumers.
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONReporter creates a JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{writer: os.Stdout}
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]interface{}{
		"type":          "batch_started",
		"total_bundles": info.TotalBundles,
		"bundle_names":  info.BundleNames,
		"output_dir":    info.OutputDir,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) BundleStarted(ctx BundleContext) {
	r.write(map[string]interface{}{
		"type":          "bundle_started",
		"index":         ctx.Index,
		"total_bundles": ctx.Total,
		"name":          ctx.Name,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	r.write(map[string]interface{}{
		"type":      "stage_progress",
		"stage":     update.Stage,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Identified(id Identification) {
	r.write(map[string]interface{}{
		"type":          "identified",
		"bundle":        id.Bundle,
		"raw_text":      id.RawText,
		"operator_name": id.OperatorName,
		"exact":         id.Exact,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) BundleComplete(summary BundleSummary) {
	r.write(map[string]interface{}{
		"type":         "bundle_complete",
		"name":         summary.Name,
		"success":      summary.Success,
		"message":      summary.Message,
		"files":        summary.Files,
		"output_bytes": summary.OutputBytes,
		"timestamp":    r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	results := make([]map[string]interface{}, len(summary.Results))
	for i, res := range summary.Results {
		results[i] = map[string]interface{}{
			"name":         res.Name,
			"success":      res.Success,
			"message":      res.Message,
			"files":        res.Files,
			"output_bytes": res.OutputBytes,
		}
	}

	r.write(map[string]interface{}{
		"type":            "batch_complete",
		"attempted":       summary.Attempted,
		"succeeded":       summary.Succeeded,
		"total_files":     summary.TotalFiles,
		"output_bytes":    summary.OutputBytes,
		"elapsed_seconds": summary.ElapsedSeconds,
		"results":         results,
		"timestamp":       r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
