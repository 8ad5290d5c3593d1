package convert

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"epconvert/internal/config"
	"epconvert/internal/epconfig"
	"epconvert/internal/errors"
	"epconvert/internal/identity"
	"epconvert/internal/reporter"
	"epconvert/internal/scan"
	"epconvert/internal/template"
)

const (
	testCharacterTable = `{
  "Characters": {
    "char_002_amiya": {
      "Appellation": "Amiya",
      "Name": "阿米娅",
      "DisplayNumber": "R001",
      "NationId": "rhodes",
      "Profession": 32
    },
    "char_003_kalts": {
      "Appellation": "Kal'tsit",
      "Name": "凯尔希",
      "DisplayNumber": "R002",
      "NationId": "",
      "Profession": 8
    }
  }
}`
	testHandbookTable = `{
  "groupList": {
    "g1": {
      "forceDataList": [
        {"color": "0098dc", "charList": ["char_002_amiya"]}
      ]
    }
  }
}`
)

type fakeTranscoder struct {
	failLoop  bool
	failFrame bool
	frame     image.Image
}

func (f *fakeTranscoder) Available() error { return nil }

func (f *fakeTranscoder) ReencodeRotated(_ context.Context, src, dst string) error {
	if f.failLoop && strings.HasSuffix(src, scan.LoopFileName) {
		return errors.NewCommandFailedError("ffmpeg", 1, "boom")
	}
	return os.WriteFile(dst, []byte("encoded:"+src), 0o644)
}

func (f *fakeTranscoder) FirstFrame(_ context.Context, _ string) (image.Image, error) {
	if f.failFrame {
		return nil, errors.NewCommandFailedError("ffmpeg", 1, "no frame")
	}
	if f.frame != nil {
		return f.frame, nil
	}
	return image.NewNRGBA(image.Rect(0, 0, 360, 640)), nil
}

type fakeProber struct {
	secs float64
	err  error
}

func (f *fakeProber) Duration(_ context.Context, _ string) (float64, error) {
	return f.secs, f.err
}

type fakeClassifier struct{ standard bool }

func (f *fakeClassifier) Classify(_ image.Image) template.Result {
	return template.Result{IsStandard: f.standard, Score: 0.95}
}

type fakeExtractor struct{ text string }

func (f *fakeExtractor) ExtractText(_ image.Image) (string, error) {
	return f.text, nil
}

// bundleFiles selects which optional files a test bundle carries.
type bundleFiles struct {
	intro   bool
	overlay bool
	logo    bool
	config  string
}

func writeBundle(t *testing.T, root, name string, files bundleFiles) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(filepath.Join(dir, scan.LoopFileName), []byte("loop"), 0o644))
	if files.intro {
		must(os.WriteFile(filepath.Join(dir, scan.IntroFileName), []byte("intro"), 0o644))
	}
	if files.overlay {
		buf := make([]byte, 360*640*4)
		must(os.WriteFile(filepath.Join(dir, scan.OverlayFileName), buf, 0o644))
	}
	if files.logo {
		buf := make([]byte, 256*256*4)
		must(os.WriteFile(filepath.Join(dir, scan.LogoFileName), buf, 0o644))
	}
	if files.config != "" {
		must(os.WriteFile(filepath.Join(dir, scan.ConfigFileName), []byte(files.config), 0o644))
	}
}

// testEnv assembles a converter over temp resources, data tables, and fakes.
func testEnv(t *testing.T, tr Transcoder, pr DurationProber, standard bool, text string) (*Converter, *config.Config) {
	t.Helper()
	return testEnvWithReporter(t, tr, pr, standard, text, nil)
}

func testEnvWithReporter(t *testing.T, tr Transcoder, pr DurationProber, standard bool, text string, rep reporter.Reporter) (*Converter, *config.Config) {
	t.Helper()

	resources := t.TempDir()
	icons := filepath.Join(resources, ClassIconsDir)
	if err := os.MkdirAll(icons, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"caster.png", "medic.png", DefaultClassIconFile, BrandLogoName} {
		if err := os.WriteFile(filepath.Join(icons, name), []byte("png:"+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	data := t.TempDir()
	if err := os.WriteFile(filepath.Join(data, identity.CharacterTableFile), []byte(testCharacterTable), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, identity.HandbookTableFile), []byte(testHandbookTable), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig(resources, data)
	index := identity.NewIndex(data)
	conv := New(cfg, tr, pr, &fakeClassifier{standard: standard}, &fakeExtractor{text: text}, index, rep)
	return conv, cfg
}

// recordingReporter captures identification events and the batch summary
// for assertions.
type recordingReporter struct {
	reporter.NullReporter
	identified []reporter.Identification
	batch      *reporter.BatchSummary
}

func (r *recordingReporter) Identified(id reporter.Identification) {
	r.identified = append(r.identified, id)
}

func (r *recordingReporter) BatchComplete(s reporter.BatchSummary) {
	r.batch = &s
}

func hasFile(files []string, name string) bool {
	for _, f := range files {
		if f == name {
			return true
		}
	}
	return false
}

func TestConvertBundleIdentified(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "amiya", bundleFiles{intro: true, overlay: true, logo: true, config: "1 ff0098dc"})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 7.25}, true, "Amiya")
	dst := filepath.Join(t.TempDir(), "amiya")

	bundles, err := scan.Discover(src)
	if err != nil || len(bundles) != 1 {
		t.Fatalf("Discover() = %v, %v", bundles, err)
	}

	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatalf("conversion failed: %s", res.Message)
	}
	for _, name := range []string{LoopOutName, IntroOutName, "caster.png", BrandLogoName, IconOutName, ConfigOutName} {
		if !hasFile(res.Files, name) {
			t.Errorf("missing output %s in %v", name, res.Files)
		}
	}
	if hasFile(res.Files, OverlayOutName) {
		t.Error("identified overlay should not emit overlay.png")
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != "amiya" {
		t.Errorf("Name = %s, want amiya", out.Name)
	}
	if out.Icon != IconOutName {
		t.Errorf("Icon = %s, want %s", out.Icon, IconOutName)
	}
	if out.Intro == nil || out.Intro.Duration != 7_250_000 {
		t.Errorf("Intro = %+v, want probed 7250000us duration", out.Intro)
	}
	if out.TransitionIn == nil || out.TransitionIn.Type != epconfig.TransitionSwipe {
		t.Errorf("TransitionIn = %+v, want swipe", out.TransitionIn)
	}
	if out.TransitionIn.Options.BackgroundColor != "#0098dc" {
		t.Errorf("accent color = %s, want #0098dc", out.TransitionIn.Options.BackgroundColor)
	}
	if out.TransitionLoop == nil || out.TransitionLoop.Type != epconfig.TransitionFade {
		t.Errorf("TransitionLoop = %+v, want fade", out.TransitionLoop)
	}

	if out.Overlay == nil || out.Overlay.Type != epconfig.OverlayArknights {
		t.Fatalf("Overlay = %+v, want arknights", out.Overlay)
	}
	opts := out.Overlay.Arknights
	if opts.OperatorName != "AMIYA" {
		t.Errorf("OperatorName = %s, want AMIYA", opts.OperatorName)
	}
	if opts.OperatorCode != "ARKNIGHTS - R001" {
		t.Errorf("OperatorCode = %s", opts.OperatorCode)
	}
	if opts.BarcodeText != "AMIYA - ARKNIGHTS" {
		t.Errorf("BarcodeText = %s", opts.BarcodeText)
	}
	if opts.Color != "#0098dc" {
		t.Errorf("Color = %s, want #0098dc", opts.Color)
	}
	if opts.OperatorClassIcon != "caster.png" {
		t.Errorf("OperatorClassIcon = %s, want caster.png", opts.OperatorClassIcon)
	}
	if !strings.Contains(opts.AuxText, "Operator of Rhodes") {
		t.Errorf("AuxText = %q, want nation line", opts.AuxText)
	}
}

func TestConvertBundleOutputBytes(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "plain", bundleFiles{})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "")
	dst := filepath.Join(t.TempDir(), "plain")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatalf("conversion failed: %s", res.Message)
	}

	var want uint64
	for _, name := range res.Files {
		info, err := os.Stat(filepath.Join(dst, name))
		if err != nil {
			t.Fatal(err)
		}
		want += uint64(info.Size())
	}
	if want == 0 {
		t.Fatal("produced files are all empty")
	}
	if res.OutputBytes != want {
		t.Errorf("OutputBytes = %d, want %d", res.OutputBytes, want)
	}
}

func TestConvertBundleReportsMatchKind(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantExact bool
	}{
		{"exact lookup", "Amiya", true},
		{"fuzzy auto-accept", "Amiyaa", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			writeBundle(t, src, "amiya", bundleFiles{overlay: true})

			rec := &recordingReporter{}
			conv, _ := testEnvWithReporter(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, tt.text, rec)
			dst := filepath.Join(t.TempDir(), "amiya")

			bundles, _ := scan.Discover(src)
			res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
			if !res.Success {
				t.Fatalf("conversion failed: %s", res.Message)
			}

			if len(rec.identified) != 1 {
				t.Fatalf("identified events = %d, want 1", len(rec.identified))
			}
			id := rec.identified[0]
			if id.OperatorName != "Amiya" || id.RawText != tt.text {
				t.Errorf("event = %+v", id)
			}
			if id.Exact != tt.wantExact {
				t.Errorf("Exact = %v, want %v", id.Exact, tt.wantExact)
			}
		})
	}
}

func TestConvertBundleLoopOnlyDefaults(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "plain", bundleFiles{})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "")
	dst := filepath.Join(t.TempDir(), "plain")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatalf("conversion failed: %s", res.Message)
	}

	// No logo: icon derives from the first loop frame.
	if !hasFile(res.Files, IconOutName) {
		t.Error("expected icon derived from first frame")
	}
	// No identity: the default templated block with bundled assets.
	if !hasFile(res.Files, ClassIconOutName) || !hasFile(res.Files, BrandLogoName) {
		t.Errorf("expected default asset copies, got %v", res.Files)
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if out.Intro != nil || out.TransitionLoop != nil {
		t.Error("loop-only bundle should have no intro and no loop transition")
	}
	if out.TransitionIn == nil || out.TransitionIn.Options.BackgroundColor != "#000000" {
		t.Errorf("TransitionIn = %+v, want default black accent", out.TransitionIn)
	}
	if out.Overlay == nil || out.Overlay.Type != epconfig.OverlayArknights {
		t.Fatalf("Overlay = %+v, want default arknights", out.Overlay)
	}
	if out.Overlay.Arknights.OperatorName != "OPERATOR" {
		t.Errorf("OperatorName = %s, want OPERATOR placeholder", out.Overlay.Arknights.OperatorName)
	}
	if out.Overlay.Arknights.OperatorClassIcon != ClassIconOutName {
		t.Errorf("OperatorClassIcon = %s, want %s", out.Overlay.Arknights.OperatorClassIcon, ClassIconOutName)
	}
}

func TestConvertBundleNonStandardOverlayBecomesImage(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "custom", bundleFiles{overlay: true})

	// Non-standard template, nothing recognized.
	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, false, "")
	dst := filepath.Join(t.TempDir(), "custom")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatalf("conversion failed: %s", res.Message)
	}
	if !hasFile(res.Files, OverlayOutName) {
		t.Errorf("expected overlay image, got %v", res.Files)
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if out.Overlay == nil || out.Overlay.Type != epconfig.OverlayImage {
		t.Fatalf("Overlay = %+v, want image", out.Overlay)
	}
	if out.Overlay.Image.Image != OverlayOutName {
		t.Errorf("overlay image = %s, want %s", out.Overlay.Image.Image, OverlayOutName)
	}
	if out.Overlay.Image.AppearTime != epconfig.DefaultOverlayAppearTime {
		t.Errorf("AppearTime = %d", out.Overlay.Image.AppearTime)
	}
}

func TestConvertBundleImageMode(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "img", bundleFiles{overlay: true})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "Amiya")
	dst := filepath.Join(t.TempDir(), "img")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeImage, false, nil)
	if !res.Success {
		t.Fatal(res.Message)
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	// Image mode never runs recognition, even when the overlay would match.
	if out.Overlay == nil || out.Overlay.Type != epconfig.OverlayImage {
		t.Fatalf("Overlay = %+v, want image", out.Overlay)
	}
}

func TestConvertBundleConfirmChoiceWins(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "fuzzy", bundleFiles{overlay: true})

	// A near miss produces fuzzy candidates and routes through confirm.
	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "Amiyaa")
	dst := filepath.Join(t.TempDir(), "fuzzy")

	var sawCandidates int
	confirm := func(rawText string, candidates []identity.Candidate) *identity.Record {
		sawCandidates = len(candidates)
		if rawText != "Amiyaa" {
			t.Errorf("confirm rawText = %q", rawText)
		}
		return candidates[0].Record
	}

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, confirm)
	if !res.Success {
		t.Fatal(res.Message)
	}
	if sawCandidates == 0 {
		t.Fatal("confirm hook was not invoked")
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if out.Overlay.Type != epconfig.OverlayArknights || out.Overlay.Arknights.OperatorName != "AMIYA" {
		t.Errorf("confirmed choice not reflected in config: %+v", out.Overlay)
	}
}

func TestConvertBundleConfirmSkip(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "fuzzy", bundleFiles{overlay: true})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "Amiyaa")
	dst := filepath.Join(t.TempDir(), "fuzzy")

	confirm := func(string, []identity.Candidate) *identity.Record { return nil }

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, confirm)
	if !res.Success {
		t.Fatal(res.Message)
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	// Skipped: standard template falls back to the placeholder block.
	if out.Overlay.Type != epconfig.OverlayArknights || out.Overlay.Arknights.OperatorName != "OPERATOR" {
		t.Errorf("skip should fall back to placeholder, got %+v", out.Overlay)
	}
}

func TestConvertBundleEmptyNationDefaults(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "kaltsit", bundleFiles{overlay: true})

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "Kal'tsit")
	dst := filepath.Join(t.TempDir(), "kaltsit")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatal(res.Message)
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Overlay.Arknights.AuxText, "Operator of Rhodes island") {
		t.Errorf("empty nation should default, AuxText = %q", out.Overlay.Arknights.AuxText)
	}
}

func TestConvertBundleLoopFailureAborts(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "broken", bundleFiles{intro: true})

	conv, _ := testEnv(t, &fakeTranscoder{failLoop: true}, &fakeProber{secs: 1}, true, "")
	dst := filepath.Join(t.TempDir(), "broken")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if res.Success {
		t.Error("loop re-encode failure must fail the bundle")
	}
	if len(res.Files) != 0 {
		t.Errorf("failed bundle should produce no files, got %v", res.Files)
	}
}

func TestConvertBundleIconFallbackFailureTolerated(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "noicon", bundleFiles{})

	conv, _ := testEnv(t, &fakeTranscoder{failFrame: true}, &fakeProber{secs: 1}, true, "")
	dst := filepath.Join(t.TempDir(), "noicon")

	bundles, _ := scan.Discover(src)
	res := conv.ConvertBundle(context.Background(), bundles[0], dst, ModeAuto, false, nil)
	if !res.Success {
		t.Fatalf("icon failure must not fail the bundle: %s", res.Message)
	}
	if hasFile(res.Files, IconOutName) {
		t.Error("icon should be absent when derivation failed")
	}

	out, err := epconfig.Load(filepath.Join(dst, ConfigOutName))
	if err != nil {
		t.Fatal(err)
	}
	if out.Icon != "" {
		t.Errorf("Icon = %s, want empty", out.Icon)
	}
}

func TestConvertBundleNotABundle(t *testing.T) {
	dir := t.TempDir()
	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "")

	res := conv.ConvertBundle(context.Background(), scan.Bundle{Dir: dir, Name: "x"}, t.TempDir(), ModeAuto, false, nil)
	if res.Success {
		t.Error("non-bundle directory must not convert")
	}
}

func TestRunBatch(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "alpha", bundleFiles{})
	writeBundle(t, src, "gamma", bundleFiles{intro: true, overlay: true, logo: true, config: "1 ff0098dc"})
	// A folder without a loop video is not a bundle.
	if err := os.MkdirAll(filepath.Join(src, "beta"), 0o755); err != nil {
		t.Fatal(err)
	}

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 7.25}, true, "Amiya")
	dst := t.TempDir()

	outcome, err := conv.RunBatch(context.Background(), src, dst, ModeAuto, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Attempted() != 2 {
		t.Fatalf("Attempted() = %d, want 2", outcome.Attempted())
	}
	if outcome.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", outcome.Succeeded())
	}

	// Discovery order is lexicographic.
	if outcome.Results[0].SourcePath != filepath.Join(src, "alpha") {
		t.Errorf("first result = %s, want alpha", outcome.Results[0].SourcePath)
	}

	for _, name := range []string{"alpha", "gamma"} {
		cfgPath := filepath.Join(dst, name, ConfigOutName)
		if _, err := os.Stat(cfgPath); err != nil {
			t.Errorf("missing generated config for %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "beta")); !os.IsNotExist(err) {
		t.Error("non-bundle folder should produce no output directory")
	}
}

func TestRunBatchSummaryTotals(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "alpha", bundleFiles{})
	writeBundle(t, src, "gamma", bundleFiles{intro: true})

	rec := &recordingReporter{}
	conv, _ := testEnvWithReporter(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "", rec)

	outcome, err := conv.RunBatch(context.Background(), src, t.TempDir(), ModeAuto, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	var want uint64
	for _, r := range outcome.Results {
		want += r.OutputBytes
	}
	if want == 0 || outcome.OutputBytes() != want {
		t.Errorf("OutputBytes() = %d, want %d (nonzero)", outcome.OutputBytes(), want)
	}

	if rec.batch == nil {
		t.Fatal("no batch summary reported")
	}
	if rec.batch.OutputBytes != want {
		t.Errorf("summary OutputBytes = %d, want %d", rec.batch.OutputBytes, want)
	}
	if rec.batch.TotalFiles != outcome.TotalFiles() {
		t.Errorf("summary TotalFiles = %d, want %d", rec.batch.TotalFiles, outcome.TotalFiles())
	}
	if rec.batch.ElapsedSeconds < 0 {
		t.Errorf("ElapsedSeconds = %v, want non-negative", rec.batch.ElapsedSeconds)
	}
}

func TestRunBatchOneFailureDoesNotAbort(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, "a-broken", bundleFiles{})
	writeBundle(t, src, "b-fine", bundleFiles{})

	tr := &selectiveTranscoder{failFor: "a-broken"}
	conv, _ := testEnv(t, tr, &fakeProber{secs: 1}, true, "")

	outcome, err := conv.RunBatch(context.Background(), src, t.TempDir(), ModeAuto, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Attempted() != 2 || outcome.Succeeded() != 1 {
		t.Errorf("attempted/succeeded = %d/%d, want 2/1", outcome.Attempted(), outcome.Succeeded())
	}
}

func TestRunBatchNoBundles(t *testing.T) {
	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "")

	_, err := conv.RunBatch(context.Background(), t.TempDir(), t.TempDir(), ModeAuto, false, nil)
	if !errors.IsNoBundlesFound(err) {
		t.Errorf("err = %v, want no-bundles-found", err)
	}
}

func TestRunBatchCancellation(t *testing.T) {
	src := t.TempDir()
	for i := 0; i < 3; i++ {
		writeBundle(t, src, fmt.Sprintf("b%d", i), bundleFiles{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv, _ := testEnv(t, &fakeTranscoder{}, &fakeProber{secs: 1}, true, "")
	outcome, err := conv.RunBatch(ctx, src, t.TempDir(), ModeAuto, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Attempted() != 0 {
		t.Errorf("cancelled batch scheduled %d bundles, want 0", outcome.Attempted())
	}
}

func TestParseOverlayMode(t *testing.T) {
	for _, valid := range []string{"auto", "arknights", "image"} {
		if _, err := ParseOverlayMode(valid); err != nil {
			t.Errorf("ParseOverlayMode(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseOverlayMode("bogus"); !errors.IsKind(err, errors.KindConfig) {
		t.Errorf("ParseOverlayMode(bogus) err = %v, want config error", err)
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"rhodes", "Rhodes"},
		{"RHODES ISLAND", "Rhodes island"},
		{"", ""},
		{"lungmen", "Lungmen"},
	}
	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// selectiveTranscoder fails the loop re-encode for one named bundle.
type selectiveTranscoder struct {
	failFor string
}

func (s *selectiveTranscoder) Available() error { return nil }

func (s *selectiveTranscoder) ReencodeRotated(_ context.Context, src, dst string) error {
	if strings.Contains(src, s.failFor) {
		return errors.NewCommandFailedError("ffmpeg", 1, "bad input")
	}
	return os.WriteFile(dst, []byte("ok"), 0o644)
}

func (s *selectiveTranscoder) FirstFrame(_ context.Context, _ string) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, 360, 640)), nil
}
