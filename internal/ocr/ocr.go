// Package ocr extracts the printed subject name from overlay images using
// an external text-recognition engine.
package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"epconvert/internal/errors"
	"epconvert/internal/logging"
)

// Text region of the standard template, in post-rotation coordinates.
const (
	regionTop    = 415
	regionBottom = 460
	regionLeft   = 70
	regionRight  = 300
)

// Engine recognizes text in a PNG-encoded image and returns the recognized
// fragments in reading order.
type Engine interface {
	Recognize(pngData []byte) ([]string, error)
	Close() error
}

// tesseractEngine wraps a gosseract client. The client is not safe for
// concurrent use, so calls are serialized.
type tesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine creates an Engine backed by the system tesseract
// installation, configured for a single language.
func NewTesseractEngine(language string) (Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, errors.NewToolUnavailableError("tesseract", err)
	}
	return &tesseractEngine{client: client}, nil
}

func (e *tesseractEngine) Recognize(pngData []byte) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(pngData); err != nil {
		return nil, errors.NewRecognitionError("set image", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, errors.NewRecognitionError("recognize", err)
	}

	var fragments []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fragments = append(fragments, line)
		}
	}
	return fragments, nil
}

func (e *tesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Extractor crops the name region from overlay images and runs recognition
// on it. The underlying engine is constructed lazily on first use and
// reused for the process lifetime; construction is guarded so concurrent
// first calls initialize it once.
type Extractor struct {
	newEngine func() (Engine, error)

	once   sync.Once
	engine Engine
	err    error
}

// NewExtractor creates an extractor using a tesseract engine configured for
// the given language.
func NewExtractor(language string) *Extractor {
	return &Extractor{
		newEngine: func() (Engine, error) { return NewTesseractEngine(language) },
	}
}

// NewExtractorWithEngine creates an extractor around a caller-supplied
// engine.
func NewExtractorWithEngine(factory func() (Engine, error)) *Extractor {
	return &Extractor{newEngine: factory}
}

// ExtractText recognizes the subject name printed on an overlay image.
// It returns the trimmed concatenation of the recognized fragments, joined
// with no separator, or the empty string when nothing is recognized. Engine
// failures return an error of kind recognition; callers treat them as "no
// text produced".
func (e *Extractor) ExtractText(overlay image.Image) (string, error) {
	e.once.Do(func() {
		e.engine, e.err = e.newEngine()
		if e.err != nil {
			logging.Warn("text recognition unavailable", "error", e.err)
		}
	})
	if e.err != nil {
		return "", e.err
	}

	data, err := encodeRegion(overlay)
	if err != nil {
		return "", err
	}

	fragments, err := e.engine.Recognize(data)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.Join(fragments, "")), nil
}

// encodeRegion crops the fixed text region and composites it onto an opaque
// black background, normalizing contrast for overlays whose signal lives in
// the alpha channel.
func encodeRegion(overlay image.Image) ([]byte, error) {
	crop := imaging.Crop(overlay, image.Rect(regionLeft, regionTop, regionRight, regionBottom))

	bounds := crop.Bounds()
	flat := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := crop.NRGBAAt(x, y)
			a := uint32(px.A)
			flat.SetNRGBA(x, y, color.NRGBA{
				R: uint8(uint32(px.R) * a / 255),
				G: uint8(uint32(px.G) * a / 255),
				B: uint8(uint32(px.B) * a / 255),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, errors.NewIOError("encode text region", err)
	}
	return buf.Bytes(), nil
}
