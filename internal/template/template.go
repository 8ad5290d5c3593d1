// Package template classifies overlay images against a known reference
// template using normalized cross-correlation.
package template

import (
	"image"
	"math"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"epconvert/internal/logging"
)

// DefaultReferenceFile is the bundled reference template, under the
// resources data directory.
const DefaultReferenceFile = "overlay_template.png"

// Canonical overlay geometry the template is compared at.
const (
	canonicalWidth  = 360
	canonicalHeight = 640
)

// Result is the outcome of a template classification.
type Result struct {
	IsStandard bool
	Score      float64
}

// Classifier compares overlay images with a reference template. The
// reference is loaded lazily on first use and cached for the process
// lifetime; a Classifier is safe for concurrent use after construction.
type Classifier struct {
	path      string
	threshold float64

	once sync.Once
	tmpl []float64
	ok   bool
}

// NewClassifier creates a classifier for the reference template at path.
// threshold is the correlation score above which an image counts as the
// standard template.
func NewClassifier(path string, threshold float64) *Classifier {
	return &Classifier{path: path, threshold: threshold}
}

// Classify reports whether img matches the reference template. A missing
// or unreadable reference degrades to "not standard" instead of failing.
func (c *Classifier) Classify(img image.Image) Result {
	c.once.Do(c.load)
	if !c.ok {
		return Result{IsStandard: false, Score: 0}
	}

	score := correlate(grayValues(img), c.tmpl)
	return Result{IsStandard: score > c.threshold, Score: score}
}

func (c *Classifier) load() {
	f, err := os.Open(c.path)
	if err != nil {
		logging.Warn("reference template unavailable, overlays will classify as non-standard",
			"path", c.path, "error", err)
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		logging.Warn("reference template unreadable", "path", c.path, "error", err)
		return
	}

	c.tmpl = grayValues(img)
	c.ok = true
}

// grayValues resizes img to the canonical overlay geometry and flattens it
// to row-major luminance values. Any alpha channel is dropped.
func grayValues(img image.Image) []float64 {
	resized := imaging.Resize(img, canonicalWidth, canonicalHeight, imaging.Box)

	vals := make([]float64, canonicalWidth*canonicalHeight)
	for y := 0; y < canonicalHeight; y++ {
		for x := 0; x < canonicalWidth; x++ {
			px := resized.NRGBAAt(x, y)
			vals[y*canonicalWidth+x] = 0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B)
		}
	}
	return vals
}

// correlate computes the Pearson correlation of two equal-length series.
// A zero-variance series yields 0, never NaN.
func correlate(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
