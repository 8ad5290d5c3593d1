package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"epconvert/internal/errors"
	"epconvert/internal/logging"
)

// stderrExcerptLen bounds how much encoder stderr is carried into error
// messages.
const stderrExcerptLen = 512

// Transcoder re-encodes legacy videos to the fixed output profile.
type Transcoder struct {
	locator     *Locator
	bitrateKbps int
}

// NewTranscoder creates a transcoder resolving tools through locator.
func NewTranscoder(locator *Locator, bitrateKbps int) *Transcoder {
	return &Transcoder{locator: locator, bitrateKbps: bitrateKbps}
}

// Available reports whether the encoder binary can be resolved.
func (t *Transcoder) Available() error {
	_, err := t.locator.FFmpeg()
	return err
}

// ReencodeArgs builds the encoder argument list for one re-encode.
// Legacy videos are stored upside-down; a vertical plus horizontal flip
// nets a 180 degree rotation and decodes more widely than a rotate filter.
func ReencodeArgs(src, dst string, bitrateKbps int) []string {
	return []string{
		"-i", src,
		"-vf", "vflip,hflip",
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level", "4.0",
		"-pix_fmt", "yuv420p",
		"-b:v", fmt.Sprintf("%dk", bitrateKbps),
		"-an",
		"-y",
		dst,
	}
}

// ReencodeRotated re-encodes src into dst, correcting the legacy 180 degree
// orientation and dropping any audio stream.
func (t *Transcoder) ReencodeRotated(ctx context.Context, src, dst string) error {
	bin, err := t.locator.FFmpeg()
	if err != nil {
		return err
	}

	args := ReencodeArgs(src, dst, t.bitrateKbps)
	logging.Debug("re-encoding video", "src", src, "dst", dst)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.NewCommandStartError("ffmpeg", err)
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError()
		}
		return errors.WrapExecError("ffmpeg", err, excerpt(stderr.String()))
	}
	return nil
}

// FirstFrame decodes the first frame of a video by piping a single PNG
// through stdout. It returns an error rather than a partial image on any
// decode failure so callers can fall back to another icon source.
func (t *Transcoder) FirstFrame(ctx context.Context, videoPath string) (image.Image, error) {
	bin, err := t.locator.FFmpeg()
	if err != nil {
		return nil, err
	}

	args := []string{
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError()
		}
		return nil, errors.WrapExecError("ffmpeg", err, excerpt(stderr.String()))
	}

	frame, err := png.Decode(&stdout)
	if err != nil {
		return nil, errors.NewFormatError(fmt.Sprintf("decode first frame of %s: %v", videoPath, err))
	}
	return frame, nil
}

// excerpt trims stderr to a bounded tail; the end of the stream carries the
// actual failure reason.
func excerpt(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) <= stderrExcerptLen {
		return stderr
	}
	return "..." + stderr[len(stderr)-stderrExcerptLen:]
}
