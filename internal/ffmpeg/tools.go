// Package ffmpeg wraps the external encoder used to re-encode legacy
// videos and to extract frames.
package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"epconvert/internal/errors"
	"epconvert/internal/logging"
)

// Locator resolves external tool paths. Each tool is resolved once and the
// result is cached for the process lifetime. The search order is: next to
// the running binary, the current working directory, then the system path.
type Locator struct {
	ffmpegOverride  string
	ffprobeOverride string

	ffmpegOnce sync.Once
	ffmpegPath string
	ffmpegErr  error

	ffprobeOnce sync.Once
	ffprobePath string
	ffprobeErr  error
}

// NewLocator creates a locator. Non-empty overrides bypass the search.
func NewLocator(ffmpegOverride, ffprobeOverride string) *Locator {
	return &Locator{
		ffmpegOverride:  ffmpegOverride,
		ffprobeOverride: ffprobeOverride,
	}
}

// FFmpeg returns the resolved encoder path.
func (l *Locator) FFmpeg() (string, error) {
	l.ffmpegOnce.Do(func() {
		l.ffmpegPath, l.ffmpegErr = locate("ffmpeg", l.ffmpegOverride)
	})
	return l.ffmpegPath, l.ffmpegErr
}

// FFprobe returns the resolved prober path.
func (l *Locator) FFprobe() (string, error) {
	l.ffprobeOnce.Do(func() {
		l.ffprobePath, l.ffprobeErr = locate("ffprobe", l.ffprobeOverride)
	})
	return l.ffprobePath, l.ffprobeErr
}

func locate(name, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", errors.NewToolUnavailableError(name, err)
		}
		return override, nil
	}

	candidates := []string{}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), exeName(name)))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, exeName(name)))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			logging.Debug("external tool resolved", "tool", name, "path", candidate)
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.NewToolUnavailableError(name, err)
	}
	logging.Debug("external tool resolved", "tool", name, "path", path)
	return path, nil
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
