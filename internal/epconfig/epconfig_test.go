package epconfig

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Screen != Screen360x640 {
		t.Errorf("Screen = %s, want 360x640", cfg.Screen)
	}
	if _, err := uuid.Parse(cfg.UUID); err != nil {
		t.Errorf("UUID %q does not parse: %v", cfg.UUID, err)
	}
	if New().UUID == cfg.UUID {
		t.Error("every config should get a fresh UUID")
	}
}

func TestArknightsOverlayJSON(t *testing.T) {
	overlay := NewArknightsOverlay(&ArknightsOptions{
		AppearTime:        DefaultOverlayAppearTime,
		OperatorName:      "AMIYA",
		OperatorCode:      "ARKNIGHTS - R001",
		BarcodeText:       "AMIYA - ARKNIGHTS",
		AuxText:           "Operator of Rhodes\nCASTER/Rhodes\nArknight-EPass",
		StaffText:         "STAFF",
		Color:             "#0098dc",
		Logo:              "ak_logo.png",
		OperatorClassIcon: "caster.png",
	})

	data, err := json.Marshal(overlay)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if wire["type"] != "arknights" {
		t.Errorf("type = %v, want arknights", wire["type"])
	}
	opts, ok := wire["options"].(map[string]any)
	if !ok {
		t.Fatal("options block missing")
	}
	if opts["operator_name"] != "AMIYA" {
		t.Errorf("operator_name = %v", opts["operator_name"])
	}
	if opts["appear_time"] != float64(100000) {
		t.Errorf("appear_time = %v, want 100000", opts["appear_time"])
	}

	var back Overlay
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Type != OverlayArknights || back.Arknights == nil || back.Image != nil {
		t.Errorf("round trip produced wrong variant: %+v", back)
	}
	if back.Arknights.Color != "#0098dc" {
		t.Errorf("Color = %s", back.Arknights.Color)
	}
}

func TestImageOverlayJSON(t *testing.T) {
	overlay := NewImageOverlay(&ImageOptions{
		AppearTime: DefaultOverlayAppearTime,
		Duration:   DefaultOverlayAppearTime,
		Image:      "overlay.png",
	})

	data, err := json.Marshal(overlay)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"image"`) {
		t.Errorf("wire shape missing image tag: %s", data)
	}

	var back Overlay
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Image == nil || back.Image.Image != "overlay.png" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestOverlayUnknownType(t *testing.T) {
	bad := Overlay{Type: "sparkles"}
	if _, err := json.Marshal(bad); err == nil {
		t.Error("marshaling an unknown overlay type should fail")
	}
	var o Overlay
	if err := json.Unmarshal([]byte(`{"type":"sparkles","options":{}}`), &o); err == nil {
		t.Error("unmarshaling an unknown overlay type should fail")
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := New()
	cfg.Name = "测试素材"
	cfg.Description = "Converted from legacy bundle: 测试素材"
	cfg.Loop = Loop{File: "loop.mp4"}
	cfg.Intro = &Intro{Enabled: true, File: "intro.mp4", Duration: 7_250_000}
	cfg.TransitionIn = NewTransition(TransitionSwipe, "#112233")
	cfg.TransitionLoop = NewTransition(TransitionFade, "#112233")
	cfg.Overlay = NewArknightsOverlay(DefaultArknightsOptions("#112233", "ak_logo.png", "class_icon.png"))
	cfg.Icon = "icon.png"

	path := filepath.Join(t.TempDir(), "sub", "epconfig.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if back.Name != cfg.Name || back.UUID != cfg.UUID {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if back.Intro == nil || back.Intro.Duration != 7_250_000 {
		t.Errorf("Intro = %+v", back.Intro)
	}
	if back.TransitionIn == nil || back.TransitionIn.Type != TransitionSwipe {
		t.Errorf("TransitionIn = %+v", back.TransitionIn)
	}
	if back.TransitionIn.Options.Duration != DefaultTransitionDuration {
		t.Errorf("transition duration = %d", back.TransitionIn.Options.Duration)
	}
	if back.Overlay == nil || back.Overlay.Arknights == nil {
		t.Fatalf("Overlay = %+v", back.Overlay)
	}
	if back.Overlay.Arknights.OperatorName != "OPERATOR" {
		t.Errorf("default operator name = %s", back.Overlay.Arknights.OperatorName)
	}
}

func TestOmittedOptionalBlocks(t *testing.T) {
	cfg := New()
	cfg.Name = "minimal"
	cfg.Loop = Loop{File: "loop.mp4"}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"intro", "transition_in", "transition_loop", "overlay", "icon", "description"} {
		if strings.Contains(string(data), `"`+absent+`"`) {
			t.Errorf("minimal config should omit %q: %s", absent, data)
		}
	}
}
