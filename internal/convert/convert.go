// Package convert orchestrates the conversion of legacy material bundles
// into the new bundle format.
package convert

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"epconvert/internal/config"
	"epconvert/internal/epconfig"
	"epconvert/internal/errors"
	"epconvert/internal/identity"
	"epconvert/internal/logging"
	"epconvert/internal/rawimg"
	"epconvert/internal/reporter"
	"epconvert/internal/scan"
	"epconvert/internal/util"
)

// OverlayMode selects how the raw overlay buffer is handled.
type OverlayMode string

const (
	// ModeAuto recognizes the subject; unidentified non-template overlays
	// fall back to a plain image asset.
	ModeAuto OverlayMode = "auto"
	// ModeArknights always emits the identity config block.
	ModeArknights OverlayMode = "arknights"
	// ModeImage always converts the overlay to a plain image asset.
	ModeImage OverlayMode = "image"
)

// ParseOverlayMode validates a mode string from the CLI or config.
func ParseOverlayMode(s string) (OverlayMode, error) {
	switch OverlayMode(s) {
	case ModeAuto, ModeArknights, ModeImage:
		return OverlayMode(s), nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown overlay mode %q", s))
	}
}

// Output file names inside a converted bundle.
const (
	LoopOutName      = "loop.mp4"
	IntroOutName     = "intro.mp4"
	OverlayOutName   = "overlay.png"
	IconOutName      = "icon.png"
	ConfigOutName    = "epconfig.json"
	ClassIconOutName = "class_icon.png"
	BrandLogoName    = "ak_logo.png"

	// DefaultClassIconFile is the bundled icon used when no subject was
	// resolved.
	DefaultClassIconFile = "specialist.png"

	// ClassIconsDir is the resources subdirectory holding bundled icons.
	ClassIconsDir = "class_icons"
)

// Result records the outcome of converting one bundle. It is created once
// per bundle and never mutated after it is returned.
type Result struct {
	Success    bool
	SourcePath string
	DestPath   string
	Message    string
	Files      []string
	// OutputBytes is the combined size of the produced files.
	OutputBytes uint64
}

// Transcoder re-encodes videos and extracts frames.
type Transcoder interface {
	Available() error
	ReencodeRotated(ctx context.Context, src, dst string) error
	FirstFrame(ctx context.Context, videoPath string) (image.Image, error)
}

// DurationProber reads container durations in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Converter converts legacy bundles. It owns no per-bundle state; every
// conversion gets fresh working state.
type Converter struct {
	cfg        *config.Config
	transcoder Transcoder
	prober     DurationProber
	classifier identity.Classifier
	extractor  identity.TextExtractor
	index      *identity.Index
	rep        reporter.Reporter
}

// New wires a converter. rep may be nil; a NullReporter is used then.
func New(
	cfg *config.Config,
	transcoder Transcoder,
	prober DurationProber,
	classifier identity.Classifier,
	extractor identity.TextExtractor,
	index *identity.Index,
	rep reporter.Reporter,
) *Converter {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &Converter{
		cfg:        cfg,
		transcoder: transcoder,
		prober:     prober,
		classifier: classifier,
		extractor:  extractor,
		index:      index,
		rep:        rep,
	}
}

// ConvertBundle converts one legacy bundle into dstDir. Only the loop video
// is mandatory; every other step degrades or is skipped on failure. Success
// is true iff at least one output file was produced.
func (c *Converter) ConvertBundle(ctx context.Context, bundle scan.Bundle, dstDir string, mode OverlayMode, autoOCR bool, confirm identity.ConfirmFunc) Result {
	res := Result{SourcePath: bundle.Dir, DestPath: dstDir}

	if !scan.IsLegacyBundle(bundle.Dir) {
		res.Message = "not a legacy bundle (missing " + scan.LoopFileName + ")"
		return res
	}
	if err := c.transcoder.Available(); err != nil {
		res.Message = "encoder unavailable: " + err.Error()
		return res
	}
	if err := util.EnsureDirectory(dstDir); err != nil {
		res.Message = "cannot create output directory: " + err.Error()
		return res
	}

	// 1. Loop video (mandatory).
	c.stage("video", "re-encoding loop video")
	if err := c.transcoder.ReencodeRotated(ctx, bundle.LoopPath(), filepath.Join(dstDir, LoopOutName)); err != nil {
		res.Message = "loop re-encode failed: " + err.Error()
		logging.Error("loop re-encode failed", "bundle", bundle.Name, "error", err)
		return res
	}
	res.Files = append(res.Files, LoopOutName)

	// 2. Intro video (optional, non-fatal).
	hasIntro := false
	introDuration := int64(config.DefaultIntroDurationMicros)
	if bundle.HasIntro {
		c.stage("video", "re-encoding intro video")
		introDst := filepath.Join(dstDir, IntroOutName)
		if err := c.transcoder.ReencodeRotated(ctx, bundle.IntroPath(), introDst); err != nil {
			c.rep.Warning("intro re-encode failed, skipping: " + err.Error())
			logging.Warn("intro re-encode failed", "bundle", bundle.Name, "error", err)
		} else {
			res.Files = append(res.Files, IntroOutName)
			hasIntro = true
			if secs, err := c.prober.Duration(ctx, introDst); err == nil && secs > 0 {
				introDuration = util.MicrosFromSeconds(secs)
			} else {
				c.rep.Warning("intro duration unavailable, using default")
			}
		}
	}

	// 3. Overlay.
	overlay := c.resolveOverlay(ctx, bundle, dstDir, mode, autoOCR, confirm, &res)

	// 4. Icon: prefer the raw logo, fall back to the first loop frame.
	hasIcon := c.deriveIcon(ctx, bundle, dstDir, &res)

	// 5. Static assets for the default identity block.
	hasClassIcon, hasBrandLogo := false, false
	if overlay.effective == ModeArknights && overlay.identityOpts == nil {
		hasClassIcon = c.copyResource(DefaultClassIconFile, filepath.Join(dstDir, ClassIconOutName), ClassIconOutName, &res)
		hasBrandLogo = c.copyResource(BrandLogoName, filepath.Join(dstDir, BrandLogoName), BrandLogoName, &res)
	}

	// 6. Generated config.
	c.stage("config", "writing "+ConfigOutName)
	out := epconfig.New()
	out.Name = bundle.Name
	out.Description = "Converted from legacy bundle: " + bundle.Name
	out.Loop = epconfig.Loop{File: LoopOutName}

	color := bundle.Config.Color
	if hasIntro {
		out.Intro = &epconfig.Intro{Enabled: true, File: IntroOutName, Duration: introDuration}
		out.TransitionLoop = epconfig.NewTransition(epconfig.TransitionFade, color)
	}
	out.TransitionIn = epconfig.NewTransition(epconfig.TransitionSwipe, color)

	switch {
	case overlay.identityOpts != nil:
		out.Overlay = epconfig.NewArknightsOverlay(overlay.identityOpts)
	case overlay.effective == ModeImage && overlay.hasImage:
		out.Overlay = epconfig.NewImageOverlay(&epconfig.ImageOptions{
			AppearTime: epconfig.DefaultOverlayAppearTime,
			Duration:   epconfig.DefaultOverlayAppearTime,
			Image:      OverlayOutName,
		})
	default:
		logo, classIcon := "", ""
		if hasBrandLogo {
			logo = BrandLogoName
		}
		if hasClassIcon {
			classIcon = ClassIconOutName
		}
		out.Overlay = epconfig.NewArknightsOverlay(epconfig.DefaultArknightsOptions(color, logo, classIcon))
	}

	if hasIcon {
		out.Icon = IconOutName
	}

	if err := out.Save(filepath.Join(dstDir, ConfigOutName)); err != nil {
		c.rep.Warning("config write failed: " + err.Error())
		logging.Error("config write failed", "bundle", bundle.Name, "error", err)
	} else {
		res.Files = append(res.Files, ConfigOutName)
	}

	res.Success = len(res.Files) > 0
	res.Message = fmt.Sprintf("converted %d files", len(res.Files))
	res.OutputBytes = outputSize(dstDir, res.Files)
	return res
}

// outputSize sums the sizes of the produced files. A file that cannot be
// statted contributes zero.
func outputSize(dstDir string, files []string) uint64 {
	var total uint64
	for _, name := range files {
		if size, err := util.GetFileSize(filepath.Join(dstDir, name)); err == nil {
			total += size
		}
	}
	return total
}

// overlayState is the working state of the overlay step.
type overlayState struct {
	effective    OverlayMode
	identityOpts *epconfig.ArknightsOptions
	hasImage     bool
}

func (c *Converter) resolveOverlay(ctx context.Context, bundle scan.Bundle, dstDir string, mode OverlayMode, autoOCR bool, confirm identity.ConfirmFunc, res *Result) overlayState {
	_ = ctx
	state := overlayState{effective: mode}
	if mode == ModeAuto {
		state.effective = ModeArknights
	}
	if !bundle.HasOverlay {
		return state
	}

	recognize := mode == ModeAuto || (mode == ModeArknights && autoOCR)
	switch {
	case recognize:
		c.stage("overlay", "recognizing subject")
		img, err := rawimg.DecodeAndTransform(bundle.OverlayPath(), rawimg.OverlaySpec, rawimg.Options{Rotate180: true})
		if err != nil {
			c.rep.Warning("overlay unreadable: " + err.Error())
			logging.Warn("overlay decode failed", "bundle", bundle.Name, "error", err)
			return state
		}

		resolver := identity.NewResolver(c.classifier, c.extractor, c.index, c.cfg.FuzzyThreshold, c.cfg.FuzzyLimit, confirm)
		resolution := resolver.ResolveOverlay(img)

		switch resolution.Outcome {
		case identity.OutcomeIdentified:
			c.rep.Identified(reporter.Identification{
				Bundle:       bundle.Name,
				RawText:      resolution.RawText,
				OperatorName: resolution.Record.Name,
				Exact:        resolution.Exact,
			})
			state.identityOpts = c.identityOverlay(resolution.Record, dstDir, res)
			state.effective = ModeArknights

		case identity.OutcomeStandardUnidentified:
			state.effective = ModeArknights

		case identity.OutcomeNonStandardUnidentified:
			if mode == ModeAuto {
				c.stage("overlay", "converting overlay to image")
				if c.writeOverlayImage(bundle, dstDir, res) {
					state.hasImage = true
				}
				state.effective = ModeImage
			}
		}

	case mode == ModeImage:
		c.stage("overlay", "converting overlay to image")
		if c.writeOverlayImage(bundle, dstDir, res) {
			state.hasImage = true
		}
	}

	return state
}

func (c *Converter) writeOverlayImage(bundle scan.Bundle, dstDir string, res *Result) bool {
	dst := filepath.Join(dstDir, OverlayOutName)
	err := rawimg.ConvertToPNG(bundle.OverlayPath(), dst, rawimg.OverlaySpec, rawimg.Options{Rotate180: true})
	if err != nil {
		c.rep.Warning("overlay conversion failed: " + err.Error())
		logging.Warn("overlay conversion failed", "bundle", bundle.Name, "error", err)
		return false
	}
	res.Files = append(res.Files, OverlayOutName)
	return true
}

// identityOverlay builds the identity options for a resolved subject and
// copies its supporting assets, tolerating their absence.
func (c *Converter) identityOverlay(rec *identity.Record, dstDir string, res *Result) *epconfig.ArknightsOptions {
	classIconFile := identity.ClassIconFile(rec.Class)
	classIcon := ""
	if c.copyResource(classIconFile, filepath.Join(dstDir, classIconFile), classIconFile, res) {
		classIcon = classIconFile
	}

	logo := ""
	if c.copyResource(BrandLogoName, filepath.Join(dstDir, BrandLogoName), BrandLogoName, res) {
		logo = BrandLogoName
	}

	nation := rec.Nation
	if nation == "" {
		nation = "Rhodes Island"
	}
	nation = capitalize(nation)

	name := strings.ToUpper(rec.Name)
	return &epconfig.ArknightsOptions{
		AppearTime:        epconfig.DefaultOverlayAppearTime,
		OperatorName:      name,
		OperatorCode:      "ARKNIGHTS - " + rec.Code,
		BarcodeText:       name + " - ARKNIGHTS",
		AuxText:           fmt.Sprintf("Operator of %s\n%s/%s\nArknight-EPass", nation, rec.Class, nation),
		StaffText:         "STAFF",
		Color:             rec.Color,
		Logo:              logo,
		OperatorClassIcon: classIcon,
	}
}

func (c *Converter) deriveIcon(ctx context.Context, bundle scan.Bundle, dstDir string, res *Result) bool {
	iconDst := filepath.Join(dstDir, IconOutName)

	if bundle.HasLogo {
		c.stage("icon", "converting logo")
		err := rawimg.ConvertToPNG(bundle.LogoPath(), iconDst, rawimg.LogoSpec, rawimg.Options{TargetSize: c.cfg.IconSize})
		if err == nil {
			res.Files = append(res.Files, IconOutName)
			return true
		}
		c.rep.Warning("logo conversion failed, deriving icon from video: " + err.Error())
	} else {
		c.stage("icon", "deriving icon from first frame")
	}

	frame, err := c.transcoder.FirstFrame(ctx, bundle.LoopPath())
	if err != nil {
		c.rep.Warning("icon derivation failed: " + err.Error())
		logging.Warn("icon derivation failed", "bundle", bundle.Name, "error", err)
		return false
	}
	icon := rawimg.IconFromFrame(frame, c.cfg.IconSize)
	if err := rawimg.WritePNG(iconDst, icon); err != nil {
		c.rep.Warning("icon write failed: " + err.Error())
		return false
	}
	res.Files = append(res.Files, IconOutName)
	return true
}

// copyResource copies a bundled static asset into the output bundle.
// A missing asset is tolerated and reported as absent.
func (c *Converter) copyResource(name, dst, outName string, res *Result) bool {
	src := filepath.Join(c.cfg.ResourcesDir, ClassIconsDir, name)
	if !util.FileExists(src) {
		logging.Debug("bundled asset absent", "asset", name)
		return false
	}
	if err := util.CopyFile(src, dst); err != nil {
		c.rep.Warning("asset copy failed: " + err.Error())
		return false
	}
	res.Files = append(res.Files, outName)
	return true
}

func (c *Converter) stage(stage, message string) {
	c.rep.StageProgress(reporter.StageProgress{Stage: stage, Message: message})
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
