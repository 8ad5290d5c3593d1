// Package ffprobe wraps the external prober used to read container
// durations and basic stream metadata.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"epconvert/internal/errors"
	"epconvert/internal/ffmpeg"
)

// MediaInfo contains the stream metadata the frame processor needs.
type MediaInfo struct {
	Duration    float64
	Width       int
	Height      int
	TotalFrames uint64
	FPS         float64
}

// Prober runs the external probing tool.
type Prober struct {
	locator *ffmpeg.Locator
}

// NewProber creates a prober resolving the tool through locator.
func NewProber(locator *ffmpeg.Locator) *Prober {
	return &Prober{locator: locator}
}

// Duration reads the container duration in seconds. Only the format-level
// duration is requested; the tool prints a plain number on stdout.
// Callers fall back to a default duration on error instead of failing.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	bin, err := p.locator.FFprobe()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, errors.WrapExecError("ffprobe", err, strings.TrimSpace(stderr.String()))
	}

	return ParseDuration(stdout.String())
}

// ParseDuration parses the plain numeric stdout of a duration probe.
func ParseDuration(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	secs, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, errors.NewProbeParseError(fmt.Sprintf("duration %q", trimmed), err)
	}
	if secs < 0 {
		return 0, errors.NewProbeParseError(fmt.Sprintf("negative duration %q", trimmed), nil)
	}
	return secs, nil
}

// probeOutput mirrors the JSON shape of a full probe.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		NbFrames   string `json:"nb_frames"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe reads stream-level metadata for a video file.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	bin, err := p.locator.FFprobe()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.WrapExecError("ffprobe", err, "")
	}

	return ParseMediaInfo(out)
}

// ParseMediaInfo parses the JSON output of a full probe into MediaInfo.
func ParseMediaInfo(data []byte) (*MediaInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.NewProbeParseError("media info", err)
	}

	info := &MediaInfo{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		if stream.NbFrames != "" {
			if frames, err := strconv.ParseUint(stream.NbFrames, 10, 64); err == nil {
				info.TotalFrames = frames
			}
		}
		info.FPS = parseFrameRate(stream.RFrameRate)
		break
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, errors.NewProbeParseError("no video stream with valid dimensions", nil)
	}
	return info, nil
}

// parseFrameRate converts ffprobe's "num/den" rate notation to a float.
func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}
	num, den, found := strings.Cut(rate, "/")
	if !found {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			return f
		}
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
