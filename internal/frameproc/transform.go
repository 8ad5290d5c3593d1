package frameproc

import (
	"fmt"
	"image"
	"io"

	"epconvert/internal/errors"
	"epconvert/internal/ffprobe"
)

// streamFrames reads raw RGBA frames with the probed input geometry from r,
// applies fn to each, and hands the transformed frames to sink in order.
// Progress fires every progressFrameInterval frames against the probed
// total. It returns how many frames were processed.
//
// Memory stays bounded: exactly one input frame is allocated per iteration.
func streamFrames(r io.Reader, info *ffprobe.MediaInfo, fn FrameFunc, progress ProgressFunc, sink func(*image.NRGBA) error) (int, error) {
	frameSize := info.Width * info.Height * 4
	total := int(info.TotalFrames)

	var outWidth, outHeight int
	count := 0
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return count, errors.NewFormatError(fmt.Sprintf("truncated frame after %d full frames", count))
			}
			return count, errors.NewIOError("read frame stream", err)
		}

		frame := &image.NRGBA{
			Pix:    buf,
			Stride: info.Width * 4,
			Rect:   image.Rect(0, 0, info.Width, info.Height),
		}

		out := frame
		if fn != nil {
			out = fn(frame)
		}
		if out == nil {
			return count, errors.NewFormatError(fmt.Sprintf("frame function returned nil at frame %d", count))
		}

		b := out.Bounds()
		if count == 0 {
			outWidth, outHeight = b.Dx(), b.Dy()
		} else if b.Dx() != outWidth || b.Dy() != outHeight {
			return count, errors.NewFormatError(fmt.Sprintf(
				"frame %d transformed to %dx%d, expected constant %dx%d", count, b.Dx(), b.Dy(), outWidth, outHeight))
		}

		if err := sink(out); err != nil {
			return count, err
		}

		count++
		if progress != nil && count%progressFrameInterval == 0 {
			progress(count, total)
		}
	}

	return count, nil
}
