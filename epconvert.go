// Package epconvert provides a Go library for migrating legacy e-pass
// material bundles into the current bundle format.
//
// A legacy bundle is a folder holding an upside-down loop video, optional
// intro video, raw BGRA overlay and logo buffers, and a terse text config.
// Conversion re-encodes the videos, recognizes the overlay subject, and
// emits a structured epconfig.json alongside the produced assets.
//
// Basic usage:
//
//	conv, err := epconvert.New(
//	    epconvert.WithResourcesDir("./resources"),
//	    epconvert.WithDataDir("./resources/data"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome, err := conv.ConvertBatch(ctx, "./legacy", "./out",
//	    epconvert.ModeAuto, false, nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%d/%d bundles converted\n", outcome.Succeeded(), outcome.Attempted())
package epconvert

import (
	"context"
	"path/filepath"

	"epconvert/internal/config"
	"epconvert/internal/convert"
	"epconvert/internal/ffmpeg"
	"epconvert/internal/ffprobe"
	"epconvert/internal/identity"
	"epconvert/internal/ocr"
	"epconvert/internal/reporter"
	"epconvert/internal/scan"
	"epconvert/internal/template"
)

// Re-exported core types.
type (
	OverlayMode  = convert.OverlayMode
	Result       = convert.Result
	BatchOutcome = convert.BatchOutcome
	Reporter     = reporter.Reporter
	Bundle       = scan.Bundle
	ConfirmFunc  = identity.ConfirmFunc
	Candidate    = identity.Candidate
	Record       = identity.Record
)

// Overlay handling modes.
const (
	ModeAuto      = convert.ModeAuto
	ModeArknights = convert.ModeArknights
	ModeImage     = convert.ModeImage
)

// ParseOverlayMode validates a mode string.
func ParseOverlayMode(s string) (OverlayMode, error) {
	return convert.ParseOverlayMode(s)
}

// Scan lists the legacy bundles under root in lexicographic name order.
func Scan(root string) ([]Bundle, error) {
	return scan.Discover(root)
}

// Converter is the main entry point. The recognition services it owns
// (template classifier, OCR engine, identity index) are lazily constructed
// once and shared across conversions.
type Converter struct {
	cfg        *config.Config
	transcoder *ffmpeg.Transcoder
	prober     *ffprobe.Prober
	classifier *template.Classifier
	extractor  *ocr.Extractor
	index      *identity.Index
}

// Option configures the converter.
type Option func(*config.Config)

// WithResourcesDir points at the bundled static assets (class icons, brand
// logo, reference template).
func WithResourcesDir(dir string) Option {
	return func(c *config.Config) { c.ResourcesDir = dir }
}

// WithDataDir points at the operator and faction JSON tables.
func WithDataDir(dir string) Option {
	return func(c *config.Config) { c.DataDir = dir }
}

// WithFFmpegPath overrides encoder discovery.
func WithFFmpegPath(path string) Option {
	return func(c *config.Config) { c.FFmpegPath = path }
}

// WithFFprobePath overrides prober discovery.
func WithFFprobePath(path string) Option {
	return func(c *config.Config) { c.FFprobePath = path }
}

// WithOCRLanguage sets the recognition language.
func WithOCRLanguage(lang string) Option {
	return func(c *config.Config) { c.OCRLanguage = lang }
}

// WithVideoBitrate sets the re-encode bitrate in kbps.
func WithVideoBitrate(kbps int) Option {
	return func(c *config.Config) { c.VideoBitrateKbps = kbps }
}

// WithFuzzyThreshold sets the minimum fuzzy-match score (0-100).
func WithFuzzyThreshold(score int) Option {
	return func(c *config.Config) { c.FuzzyThreshold = score }
}

// WithIconSize sets the square edge of generated icons in pixels.
func WithIconSize(px int) Option {
	return func(c *config.Config) { c.IconSize = px }
}

// New creates a converter with the given options.
func New(opts ...Option) (*Converter, error) {
	cfg := config.NewConfig(".", ".")
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return FromConfig(cfg), nil
}

// FromConfig creates a converter over an already-validated configuration.
func FromConfig(cfg *config.Config) *Converter {
	locator := ffmpeg.NewLocator(cfg.FFmpegPath, cfg.FFprobePath)
	templatePath := filepath.Join(cfg.ResourcesDir, "data", template.DefaultReferenceFile)

	return &Converter{
		cfg:        cfg,
		transcoder: ffmpeg.NewTranscoder(locator, cfg.VideoBitrateKbps),
		prober:     ffprobe.NewProber(locator),
		classifier: template.NewClassifier(templatePath, cfg.TemplateThreshold),
		extractor:  ocr.NewExtractor(cfg.OCRLanguage),
		index:      identity.NewIndex(cfg.DataDir),
	}
}

// Config exposes the effective configuration.
func (c *Converter) Config() *config.Config {
	return c.cfg
}

// Index exposes the identity index for lookups outside conversion.
func (c *Converter) Index() *identity.Index {
	return c.index
}

func (c *Converter) core(rep Reporter) *convert.Converter {
	return convert.New(c.cfg, c.transcoder, c.prober, c.classifier, c.extractor, c.index, rep)
}

// ConvertBundle converts a single legacy bundle directory into dstDir.
func (c *Converter) ConvertBundle(ctx context.Context, srcDir, dstDir string, mode OverlayMode, autoOCR bool, rep Reporter, confirm ConfirmFunc) (Result, error) {
	bundle, err := scan.InspectBundle(srcDir)
	if err != nil {
		return Result{SourcePath: srcDir, DestPath: dstDir, Message: err.Error()}, err
	}
	return c.core(rep).ConvertBundle(ctx, bundle, dstDir, mode, autoOCR, confirm), nil
}

// ConvertBatch discovers and converts every legacy bundle under srcRoot
// into same-named folders under dstRoot.
func (c *Converter) ConvertBatch(ctx context.Context, srcRoot, dstRoot string, mode OverlayMode, autoOCR bool, rep Reporter, confirm ConfirmFunc) (*BatchOutcome, error) {
	return c.core(rep).RunBatch(ctx, srcRoot, dstRoot, mode, autoOCR, confirm)
}

// SearchOperators looks up identity records whose name, localized name, or
// code contains keyword.
func (c *Converter) SearchOperators(keyword string, limit int) []*Record {
	return c.index.Search(keyword, limit)
}
