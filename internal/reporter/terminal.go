package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"

	"epconvert/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu        sync.Mutex
	progress  *progressbar.ProgressBar
	lastStage string
	verbose   bool

	cyan    *color.Color
	green   *color.Color
	yellow  *color.Color
	red     *color.Color
	magenta *color.Color
	bold    *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	fmt.Println()
	_, _ = r.cyan.Println("CONVERSION")
	r.printLabel(10, "Bundles:", fmt.Sprintf("%d", info.TotalBundles))
	r.printLabel(10, "Output:", info.OutputDir)

	r.mu.Lock()
	r.progress = progressbar.NewOptions(info.TotalBundles,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	r.mu.Unlock()
}

func (r *TerminalReporter) BundleStarted(ctx BundleContext) {
	fmt.Println()
	_, _ = r.cyan.Printf("[%d/%d] %s\n", ctx.Index, ctx.Total, ctx.Name)

	r.mu.Lock()
	r.lastStage = ""
	r.mu.Unlock()
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	newStage := r.lastStage != update.Stage
	r.lastStage = update.Stage
	r.mu.Unlock()

	if newStage {
		fmt.Printf("  %s\n", r.bold.Sprint(strings.ToUpper(update.Stage)))
	}
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) Identified(id Identification) {
	how := "fuzzy"
	if id.Exact {
		how = "exact"
	}
	fmt.Printf("  %s %s (%s match for %q)\n",
		r.green.Sprint("identified:"), id.OperatorName, how, id.RawText)
}

func (r *TerminalReporter) BundleComplete(summary BundleSummary) {
	status := r.green.Sprint("ok")
	if !summary.Success {
		status = r.red.Sprint("failed")
	}
	fmt.Printf("  %s %s", status, summary.Message)
	if len(summary.Files) > 0 {
		fmt.Printf(" (%s)", strings.Join(summary.Files, ", "))
	}
	fmt.Println()

	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
	r.mu.Unlock()
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Printf("  %s %s\n", r.yellow.Sprint("warning:"), message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	fmt.Println()
	_, _ = r.red.Printf("ERROR: %s\n", err.Title)
	if err.Message != "" {
		fmt.Printf("  %s\n", err.Message)
	}
	if err.Context != "" {
		fmt.Printf("  context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		fmt.Printf("  hint: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Println()
	_, _ = r.cyan.Println("SUMMARY")

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Bundle", "Status", "Files", "Size", "Message"})
	for _, res := range summary.Results {
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		t.AppendRow(table.Row{res.Name, status, len(res.Files), util.FormatBytes(res.OutputBytes), res.Message})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d/%d succeeded", summary.Succeeded, summary.Attempted),
		"", summary.TotalFiles, util.FormatBytes(summary.OutputBytes),
		"in " + util.FormatDuration(summary.ElapsedSeconds),
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s\n", color.New(color.Faint).Sprint(message))
}
