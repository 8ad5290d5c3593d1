package convert

import (
	"context"
	"path/filepath"
	"time"

	"epconvert/internal/errors"
	"epconvert/internal/identity"
	"epconvert/internal/logging"
	"epconvert/internal/reporter"
	"epconvert/internal/scan"
	"epconvert/internal/util"
)

// BatchOutcome aggregates the per-bundle results of one batch run.
type BatchOutcome struct {
	Results []Result
}

// Attempted returns how many bundles were scheduled.
func (b *BatchOutcome) Attempted() int {
	return len(b.Results)
}

// Succeeded returns how many bundles produced at least one file.
func (b *BatchOutcome) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// TotalFiles returns the total number of files produced across the batch.
func (b *BatchOutcome) TotalFiles() int {
	n := 0
	for _, r := range b.Results {
		n += len(r.Files)
	}
	return n
}

// OutputBytes returns the combined size of the files produced across the
// batch.
func (b *BatchOutcome) OutputBytes() uint64 {
	var n uint64
	for _, r := range b.Results {
		n += r.OutputBytes
	}
	return n
}

// RunBatch discovers legacy bundles under srcRoot and converts each into a
// same-named directory under dstRoot. Bundles are processed in discovery
// order; one failed bundle never aborts the rest. Cancellation stops
// scheduling further bundles but the results of completed ones are kept.
func (c *Converter) RunBatch(ctx context.Context, srcRoot, dstRoot string, mode OverlayMode, autoOCR bool, confirm identity.ConfirmFunc) (*BatchOutcome, error) {
	started := time.Now()

	bundles, err := scan.Discover(srcRoot)
	if err != nil {
		return nil, err
	}
	if len(bundles) == 0 {
		return nil, errors.NewNoBundlesFoundError(srcRoot)
	}
	if err := util.EnsureDirectory(dstRoot); err != nil {
		return nil, errors.NewIOError("create output root "+dstRoot, err)
	}

	names := make([]string, len(bundles))
	for i, b := range bundles {
		names[i] = b.Name
	}
	c.rep.BatchStarted(reporter.BatchStartInfo{
		TotalBundles: len(bundles),
		BundleNames:  names,
		OutputDir:    dstRoot,
	})

	outcome := &BatchOutcome{}
	for i, bundle := range bundles {
		if ctx.Err() != nil {
			logging.Warn("batch cancelled", "completed", len(outcome.Results), "total", len(bundles))
			break
		}

		c.rep.BundleStarted(reporter.BundleContext{Index: i + 1, Total: len(bundles), Name: bundle.Name})
		res := c.ConvertBundle(ctx, bundle, filepath.Join(dstRoot, bundle.Name), mode, autoOCR, confirm)
		outcome.Results = append(outcome.Results, res)

		c.rep.BundleComplete(reporter.BundleSummary{
			Name:        bundle.Name,
			Success:     res.Success,
			Message:     res.Message,
			Files:       res.Files,
			OutputBytes: res.OutputBytes,
		})
	}

	c.rep.BatchComplete(reporter.BatchSummary{
		Attempted:      outcome.Attempted(),
		Succeeded:      outcome.Succeeded(),
		TotalFiles:     outcome.TotalFiles(),
		OutputBytes:    outcome.OutputBytes(),
		ElapsedSeconds: time.Since(started).Seconds(),
		Results:        summaries(outcome),
	})
	return outcome, nil
}

func summaries(outcome *BatchOutcome) []reporter.BundleSummary {
	out := make([]reporter.BundleSummary, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		out = append(out, reporter.BundleSummary{
			Name:        filepath.Base(r.SourcePath),
			Success:     r.Success,
			Message:     r.Message,
			Files:       r.Files,
			OutputBytes: r.OutputBytes,
		})
	}
	return out
}
