// Package config provides configuration types and defaults for epconvert.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default constants.
const (
	// DefaultFuzzyThreshold is the minimum similarity score (0-100) for a
	// fuzzy identity candidate.
	DefaultFuzzyThreshold = 80

	// DefaultFuzzyLimit is the maximum number of fuzzy candidates returned.
	DefaultFuzzyLimit = 5

	// DefaultTemplateThreshold is the correlation score above which an
	// overlay is classified as the standard template.
	DefaultTemplateThreshold = 0.9

	// DefaultVideoBitrateKbps is the constant bitrate used for re-encoding.
	DefaultVideoBitrateKbps = 3000

	// DefaultIconSize is the square edge of generated icons in pixels.
	DefaultIconSize = 50

	// DefaultIntroDurationMicros is used when the intro duration cannot be
	// probed from the re-encoded file.
	DefaultIntroDurationMicros = 5_000_000

	// DefaultConfirmTimeout bounds the wait for a disambiguation decision.
	// A timed-out confirmation is treated as "skip".
	DefaultConfirmTimeout = 120 * time.Second

	// DefaultFrameWorkers is the frame processor worker pool size.
	DefaultFrameWorkers = 4

	// DefaultFrameCacheEntries bounds the memoized single-frame cache.
	DefaultFrameCacheEntries = 32

	// DefaultMetadataCacheEntries bounds the video metadata cache, sized
	// independently from the frame cache.
	DefaultMetadataCacheEntries = 16

	// DefaultChunkSize is the read size for chunked file hashing and copy.
	DefaultChunkSize = 1 << 20

	// DefaultOCRLanguage is the single language the OCR engine is
	// configured for.
	DefaultOCRLanguage = "eng"
)

// Validation errors.
var (
	ErrInvalidFuzzyThreshold    = errors.New("fuzzy threshold must be between 0 and 100")
	ErrInvalidTemplateThreshold = errors.New("template threshold must be between 0 and 1")
	ErrInvalidWorkers           = errors.New("frame workers must be at least 1")
	ErrInvalidCacheSize         = errors.New("cache sizes must be at least 1")
	ErrInvalidBitrate           = errors.New("video bitrate must be positive")
)

// Config contains all epconvert settings. Zero values are filled in by
// NewConfig; a TOML file may override any field.
type Config struct {
	// FFmpegPath and FFprobePath override external tool discovery when set.
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`

	// ResourcesDir holds bundled static assets: class icons, the brand
	// logo, and the overlay reference template.
	ResourcesDir string `toml:"resources_dir"`

	// DataDir holds the operator and faction JSON tables.
	DataDir string `toml:"data_dir"`

	OCRLanguage       string  `toml:"ocr_language"`
	FuzzyThreshold    int     `toml:"fuzzy_threshold"`
	FuzzyLimit        int     `toml:"fuzzy_limit"`
	TemplateThreshold float64 `toml:"template_threshold"`

	VideoBitrateKbps int `toml:"video_bitrate_kbps"`
	IconSize         int `toml:"icon_size"`

	// ConfirmTimeoutSecs bounds the disambiguation wait; zero uses the
	// default. The wait never blocks forever.
	ConfirmTimeoutSecs int `toml:"confirm_timeout_secs"`

	FrameWorkers         int `toml:"frame_workers"`
	FrameCacheEntries    int `toml:"frame_cache_entries"`
	MetadataCacheEntries int `toml:"metadata_cache_entries"`
	ChunkSize            int `toml:"chunk_size"`

	// HistoryDB is the path of the SQLite conversion history database.
	// Empty disables history recording.
	HistoryDB string `toml:"history_db"`
}

// NewConfig creates a configuration with defaults applied.
func NewConfig(resourcesDir, dataDir string) *Config {
	return &Config{
		ResourcesDir:         resourcesDir,
		DataDir:              dataDir,
		OCRLanguage:          DefaultOCRLanguage,
		FuzzyThreshold:       DefaultFuzzyThreshold,
		FuzzyLimit:           DefaultFuzzyLimit,
		TemplateThreshold:    DefaultTemplateThreshold,
		VideoBitrateKbps:     DefaultVideoBitrateKbps,
		IconSize:             DefaultIconSize,
		FrameWorkers:         DefaultFrameWorkers,
		FrameCacheEntries:    DefaultFrameCacheEntries,
		MetadataCacheEntries: DefaultMetadataCacheEntries,
		ChunkSize:            DefaultChunkSize,
	}
}

// ConfirmTimeout returns the effective disambiguation timeout.
func (c *Config) ConfirmTimeout() time.Duration {
	if c.ConfirmTimeoutSecs > 0 {
		return time.Duration(c.ConfirmTimeoutSecs) * time.Second
	}
	return DefaultConfirmTimeout
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return ErrInvalidFuzzyThreshold
	}
	if c.TemplateThreshold < 0 || c.TemplateThreshold > 1 {
		return ErrInvalidTemplateThreshold
	}
	if c.FrameWorkers < 1 {
		return ErrInvalidWorkers
	}
	if c.FrameCacheEntries < 1 || c.MetadataCacheEntries < 1 {
		return ErrInvalidCacheSize
	}
	if c.VideoBitrateKbps <= 0 {
		return ErrInvalidBitrate
	}
	return nil
}

// LoadFile reads a TOML configuration file and merges it over the defaults.
// A missing file is not an error: defaults are returned unchanged.
func LoadFile(path string, base *Config) (*Config, error) {
	if base == nil {
		base = NewConfig("", "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := *base
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}
