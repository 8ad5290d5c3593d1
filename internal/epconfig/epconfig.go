// Package epconfig models the generated epconfig.json material config.
package epconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"epconvert/internal/errors"
)

// Screen is the target device resolution.
type Screen string

const (
	Screen360x640  Screen = "360x640"
	Screen480x854  Screen = "480x854"
	Screen720x1080 Screen = "720x1080"
)

// TransitionType selects the effect used when entering or leaving a phase.
type TransitionType string

const (
	TransitionNone  TransitionType = "none"
	TransitionFade  TransitionType = "fade"
	TransitionMove  TransitionType = "move"
	TransitionSwipe TransitionType = "swipe"
)

// Timing constants, in microseconds.
const (
	DefaultTransitionDuration = 500_000
	DefaultOverlayAppearTime  = 100_000
	DefaultIntroDuration      = 5_000_000
)

// TransitionOptions tunes a transition effect.
type TransitionOptions struct {
	Duration        int64  `json:"duration"`
	BackgroundColor string `json:"background_color"`
	Image           string `json:"image,omitempty"`
}

// Transition pairs an effect with its options.
type Transition struct {
	Type    TransitionType     `json:"type"`
	Options *TransitionOptions `json:"options,omitempty"`
}

// NewTransition builds a transition with the default duration and the given
// background color.
func NewTransition(kind TransitionType, color string) *Transition {
	return &Transition{
		Type: kind,
		Options: &TransitionOptions{
			Duration:        DefaultTransitionDuration,
			BackgroundColor: color,
		},
	}
}

// Loop references the mandatory loop animation.
type Loop struct {
	File    string `json:"file"`
	IsImage bool   `json:"is_image,omitempty"`
}

// Intro references the optional intro animation. Duration is microseconds.
type Intro struct {
	Enabled  bool   `json:"enabled"`
	File     string `json:"file"`
	Duration int64  `json:"duration"`
}

// ArknightsOptions is the identity overlay variant.
type ArknightsOptions struct {
	AppearTime        int64  `json:"appear_time"`
	OperatorName      string `json:"operator_name"`
	TopLeftRhodes     string `json:"top_left_rhodes,omitempty"`
	TopRightBarText   string `json:"top_right_bar_text,omitempty"`
	OperatorCode      string `json:"operator_code"`
	BarcodeText       string `json:"barcode_text"`
	AuxText           string `json:"aux_text"`
	StaffText         string `json:"staff_text"`
	Color             string `json:"color"`
	Logo              string `json:"logo,omitempty"`
	OperatorClassIcon string `json:"operator_class_icon,omitempty"`
}

// DefaultArknightsOptions returns the identity block used when no subject
// was resolved.
func DefaultArknightsOptions(color, logo, classIcon string) *ArknightsOptions {
	return &ArknightsOptions{
		AppearTime:        DefaultOverlayAppearTime,
		OperatorName:      "OPERATOR",
		OperatorCode:      "ARKNIGHTS - UNK0",
		BarcodeText:       "OPERATOR - ARKNIGHTS",
		AuxText:           "Operator of Rhodes Island\nUndefined/Rhodes Island\n Hypergryph",
		StaffText:         "STAFF",
		Color:             color,
		Logo:              logo,
		OperatorClassIcon: classIcon,
	}
}

// ImageOptions is the plain-image overlay variant.
type ImageOptions struct {
	AppearTime int64  `json:"appear_time"`
	Duration   int64  `json:"duration"`
	Image      string `json:"image,omitempty"`
}

// Overlay is a tagged union of the two overlay variants. Exactly one of
// Arknights and Image is set, matching Type.
type Overlay struct {
	Type      string
	Arknights *ArknightsOptions
	Image     *ImageOptions
}

// Overlay type tags.
const (
	OverlayArknights = "arknights"
	OverlayImage     = "image"
)

// NewArknightsOverlay wraps an identity options block.
func NewArknightsOverlay(opts *ArknightsOptions) *Overlay {
	return &Overlay{Type: OverlayArknights, Arknights: opts}
}

// NewImageOverlay wraps a plain-image options block.
func NewImageOverlay(opts *ImageOptions) *Overlay {
	return &Overlay{Type: OverlayImage, Image: opts}
}

type overlayJSON struct {
	Type    string          `json:"type"`
	Options json.RawMessage `json:"options,omitempty"`
}

// MarshalJSON emits {"type": ..., "options": ...} with the variant's own
// options shape.
func (o Overlay) MarshalJSON() ([]byte, error) {
	wire := overlayJSON{Type: o.Type}

	var opts any
	switch o.Type {
	case OverlayArknights:
		opts = o.Arknights
	case OverlayImage:
		opts = o.Image
	default:
		return nil, fmt.Errorf("unknown overlay type %q", o.Type)
	}
	if opts != nil {
		data, err := json.Marshal(opts)
		if err != nil {
			return nil, err
		}
		wire.Options = data
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the tagged wire shape back into the right variant.
func (o *Overlay) UnmarshalJSON(data []byte) error {
	var wire overlayJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	o.Type = wire.Type
	o.Arknights = nil
	o.Image = nil

	if wire.Options == nil {
		return nil
	}
	switch wire.Type {
	case OverlayArknights:
		o.Arknights = &ArknightsOptions{}
		return json.Unmarshal(wire.Options, o.Arknights)
	case OverlayImage:
		o.Image = &ImageOptions{}
		return json.Unmarshal(wire.Options, o.Image)
	default:
		return fmt.Errorf("unknown overlay type %q", wire.Type)
	}
}

// Config is the complete generated material config.
type Config struct {
	Version        int         `json:"version"`
	UUID           string      `json:"uuid"`
	Screen         Screen      `json:"screen"`
	Name           string      `json:"name,omitempty"`
	Description    string      `json:"description,omitempty"`
	Icon           string      `json:"icon,omitempty"`
	Loop           Loop        `json:"loop"`
	Intro          *Intro      `json:"intro,omitempty"`
	TransitionIn   *Transition `json:"transition_in,omitempty"`
	TransitionLoop *Transition `json:"transition_loop,omitempty"`
	Overlay        *Overlay    `json:"overlay,omitempty"`
}

// New creates a config with a fresh UUID and the standard screen geometry.
func New() *Config {
	return &Config{
		Version: 1,
		UUID:    uuid.NewString(),
		Screen:  Screen360x640,
	}
}

// Save writes the config as indented JSON, creating the parent directory
// if needed.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return errors.NewJSONParseError("encode config", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIOError(fmt.Sprintf("create %s", dir), err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError(fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// Load reads a config previously written by Save.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("read %s", path), err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewJSONParseError(fmt.Sprintf("parse %s", path), err)
	}
	return cfg, nil
}
