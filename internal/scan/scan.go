// Package scan provides legacy bundle discovery and legacy config parsing.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"epconvert/internal/errors"
	"epconvert/internal/logging"
)

// Well-known file names inside a legacy bundle.
const (
	LoopFileName    = "loop.mp4"
	IntroFileName   = "intro.mp4"
	OverlayFileName = "overlay.argb"
	LogoFileName    = "logo.argb"
	ConfigFileName  = "epconfig.txt"
)

// LegacyConfig holds the parsed terse text config of a legacy bundle.
type LegacyConfig struct {
	Version int
	// Color is a "#rrggbb" accent color. An 8-hex-digit ARGB value in the
	// source file has its alpha discarded.
	Color string
}

// DefaultLegacyConfig is returned when a bundle carries no config file.
func DefaultLegacyConfig() LegacyConfig {
	return LegacyConfig{Version: 0, Color: "#000000"}
}

// Bundle describes a detected legacy material bundle. It is read-only after
// discovery.
type Bundle struct {
	// Dir is the bundle's source directory.
	Dir string
	// Name is the folder name, used as the material name.
	Name string

	HasIntro   bool
	HasOverlay bool
	HasLogo    bool

	Config LegacyConfig
}

// LoopPath returns the path of the mandatory loop video.
func (b *Bundle) LoopPath() string { return filepath.Join(b.Dir, LoopFileName) }

// IntroPath returns the path of the optional intro video.
func (b *Bundle) IntroPath() string { return filepath.Join(b.Dir, IntroFileName) }

// OverlayPath returns the path of the optional raw overlay buffer.
func (b *Bundle) OverlayPath() string { return filepath.Join(b.Dir, OverlayFileName) }

// LogoPath returns the path of the optional raw logo buffer.
func (b *Bundle) LogoPath() string { return filepath.Join(b.Dir, LogoFileName) }

// IsLegacyBundle reports whether folder is a legacy material bundle.
// A bundle must contain loop.mp4 directly; the text config is optional.
func IsLegacyBundle(folder string) bool {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return false
	}
	loop, err := os.Stat(filepath.Join(folder, LoopFileName))
	return err == nil && !loop.IsDir()
}

// ParseLegacyConfig reads the terse one-line config of a bundle.
//
// The format is "<integer version> [<6-or-8-hex-digit color>]". A missing
// file yields the defaults. A version token that does not parse as an
// integer is a format error; the color token is handled leniently: 8 digits
// are treated as ARGB with alpha discarded, anything else is taken verbatim.
func ParseLegacyConfig(dir string) (LegacyConfig, error) {
	cfg := DefaultLegacyConfig()

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("legacy config absent, using defaults", "dir", dir)
			return cfg, nil
		}
		return cfg, errors.NewIOError(fmt.Sprintf("read %s", path), err)
	}

	parts := strings.Fields(strings.TrimSpace(string(data)))
	if len(parts) >= 1 {
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return cfg, errors.NewFormatError(fmt.Sprintf("legacy config %s: version token %q is not an integer", path, parts[0]))
		}
		cfg.Version = version
	}
	if len(parts) >= 2 {
		cfg.Color = "#" + stripAlpha(parts[1])
	}

	return cfg, nil
}

// stripAlpha drops the leading alpha byte of an 8-hex-digit ARGB value.
// Other lengths are preserved as-is for leniency with hand-edited files.
func stripAlpha(hex string) string {
	if len(hex) == 8 {
		return hex[2:]
	}
	return hex
}

// Discover lists the legacy bundles among the immediate subdirectories of
// root, in lexicographic folder-name order. Folders without a loop video are
// excluded. Config parse failures do not exclude a bundle; the defaults are
// kept and the error is logged.
func Discover(root string) ([]Bundle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("source root %s", root), err)
	}
	if !info.IsDir() {
		return nil, errors.NewIOError(fmt.Sprintf("source root %s is not a directory", root), nil)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("read source root %s", root), err)
	}

	var bundles []Bundle
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if !IsLegacyBundle(dir) {
			continue
		}
		bundles = append(bundles, inspect(dir, entry.Name()))
	}

	// Directory listing order is platform-dependent; sort for a stable
	// batch order.
	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Name < bundles[j].Name
	})

	return bundles, nil
}

// InspectBundle examines a single directory as a legacy bundle.
func InspectBundle(dir string) (Bundle, error) {
	if !IsLegacyBundle(dir) {
		return Bundle{}, errors.NewFormatError(fmt.Sprintf("%s is not a legacy bundle (missing %s)", dir, LoopFileName))
	}
	return inspect(dir, filepath.Base(dir)), nil
}

// inspect fills in a Bundle's presence flags and config.
func inspect(dir, name string) Bundle {
	b := Bundle{Dir: dir, Name: name}

	b.HasIntro = fileExists(filepath.Join(dir, IntroFileName))
	b.HasOverlay = fileExists(filepath.Join(dir, OverlayFileName))
	b.HasLogo = fileExists(filepath.Join(dir, LogoFileName))

	cfg, err := ParseLegacyConfig(dir)
	if err != nil {
		logging.Warn("legacy config unreadable, using defaults", "dir", dir, "error", err)
		cfg = DefaultLegacyConfig()
	}
	b.Config = cfg

	return b
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
