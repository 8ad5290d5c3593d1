package frameproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"os/exec"

	"github.com/disintegration/imaging"

	"epconvert/internal/errors"
	"epconvert/internal/ffmpeg"
	"epconvert/internal/ffprobe"
)

// FFmpegSource decodes frames by piping single PNGs or raw RGBA streams
// through the external encoder binary. It implements FrameSource and
// Transformer.
type FFmpegSource struct {
	locator     *ffmpeg.Locator
	bitrateKbps int
}

// NewFFmpegSource creates a source resolving the binary through locator.
// bitrateKbps applies to transform outputs.
func NewFFmpegSource(locator *ffmpeg.Locator, bitrateKbps int) *FFmpegSource {
	return &FFmpegSource{locator: locator, bitrateKbps: bitrateKbps}
}

// FrameAt decodes the frame nearest timestamp seconds. Seeking happens
// before the input for speed; the decoder lands on the closest keyframe and
// rolls forward.
func (s *FFmpegSource) FrameAt(ctx context.Context, path string, timestamp float64) (image.Image, error) {
	return s.pipeFrame(ctx, []string{
		"-ss", fmt.Sprintf("%.6f", timestamp),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	})
}

// FrameAtIndex decodes the frame with the given zero-based index using a
// select filter.
func (s *FFmpegSource) FrameAtIndex(ctx context.Context, path string, index int) (image.Image, error) {
	if index < 0 {
		return nil, errors.NewFormatError(fmt.Sprintf("negative frame index %d", index))
	}
	return s.pipeFrame(ctx, []string{
		"-i", path,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", index),
		"-vsync", "0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	})
}

func (s *FFmpegSource) pipeFrame(ctx context.Context, args []string) (image.Image, error) {
	bin, err := s.locator.FFmpeg()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError()
		}
		return nil, errors.WrapExecError("ffmpeg", err, stderr.String())
	}

	frame, err := png.Decode(&stdout)
	if err != nil {
		return nil, errors.NewFormatError(fmt.Sprintf("decode piped frame: %v", err))
	}
	return frame, nil
}

// Transform streams src through fn into dst using raw RGBA pipes: one
// decoder process feeds frames, the encoder process is started once the
// first transformed frame fixes the output geometry.
func (s *FFmpegSource) Transform(ctx context.Context, src, dst string, info *ffprobe.MediaInfo, fn FrameFunc, progress ProgressFunc) error {
	bin, err := s.locator.FFmpeg()
	if err != nil {
		return err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return errors.NewFormatError(fmt.Sprintf("transform needs probed dimensions, got %dx%d", info.Width, info.Height))
	}

	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}

	decoder := exec.CommandContext(ctx, bin,
		"-i", src,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	decoded, err := decoder.StdoutPipe()
	if err != nil {
		return errors.NewCommandStartError("ffmpeg", err)
	}
	var decodeErr bytes.Buffer
	decoder.Stderr = &decodeErr
	if err := decoder.Start(); err != nil {
		return errors.NewCommandStartError("ffmpeg", err)
	}

	var encoder *exec.Cmd
	var encodeIn writeCloserSink
	var encodeErr bytes.Buffer

	startEncoder := func(w, h int) error {
		encoder = exec.CommandContext(ctx, bin,
			"-f", "rawvideo",
			"-pix_fmt", "rgba",
			"-s", fmt.Sprintf("%dx%d", w, h),
			"-r", fmt.Sprintf("%.6f", fps),
			"-i", "-",
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-b:v", fmt.Sprintf("%dk", s.bitrateKbps),
			"-y",
			dst,
		)
		in, err := encoder.StdinPipe()
		if err != nil {
			return errors.NewCommandStartError("ffmpeg", err)
		}
		encodeIn = in
		encoder.Stderr = &encodeErr
		if err := encoder.Start(); err != nil {
			return errors.NewCommandStartError("ffmpeg", err)
		}
		return nil
	}

	done, err := streamFrames(decoded, info, fn, progress, func(out *image.NRGBA) error {
		if encoder == nil {
			b := out.Bounds()
			if err := startEncoder(b.Dx(), b.Dy()); err != nil {
				return err
			}
		}
		_, err := encodeIn.Write(out.Pix)
		return err
	})

	decoded.Close()
	decoderWait := decoder.Wait()
	if encodeIn != nil {
		encodeIn.Close()
	}
	if encoder != nil {
		if waitErr := encoder.Wait(); waitErr != nil && err == nil {
			err = errors.WrapExecError("ffmpeg", waitErr, encodeErr.String())
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError()
		}
		return err
	}
	if done == 0 {
		if decoderWait != nil {
			return errors.WrapExecError("ffmpeg", decoderWait, decodeErr.String())
		}
		return errors.NewFormatError("transform decoded no frames from " + src)
	}
	return nil
}

// writeCloserSink is the minimal stdin surface the encoder wiring needs.
type writeCloserSink interface {
	Write(p []byte) (int, error)
	Close() error
}

// resizeFrame returns a frame function scaling every frame to width x height.
func resizeFrame(width, height int) FrameFunc {
	return func(frame *image.NRGBA) *image.NRGBA {
		return imaging.Resize(frame, width, height, imaging.Box)
	}
}
