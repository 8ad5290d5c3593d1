// Package rawimg decodes fixed-geometry raw BGRA pixel buffers, applies
// geometric corrections, and encodes the result as PNG.
package rawimg

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"epconvert/internal/errors"
	"epconvert/internal/logging"
)

// BytesPerPixel is the fixed raw buffer element size (BGRA).
const BytesPerPixel = 4

// Spec describes the geometry of a raw pixel buffer.
type Spec struct {
	Width  int
	Height int
}

// Canonical buffer geometries of the legacy format.
var (
	// LogoSpec is the raw logo buffer geometry.
	LogoSpec = Spec{Width: 256, Height: 256}
	// OverlaySpec is the raw overlay buffer geometry.
	OverlaySpec = Spec{Width: 360, Height: 640}
)

// Size returns the expected byte length of a buffer with this geometry.
func (s Spec) Size() int { return s.Width * s.Height * BytesPerPixel }

// knownGeometries is scanned during recovery when a buffer does not match
// its expected spec. Order matters: earlier entries win.
var knownGeometries = []Spec{
	{256, 256},
	{360, 640},
	{480, 854},
	{720, 1080},
	{512, 512},
	{128, 128},
}

// RecoverGeometry finds a plausible geometry for a raw buffer of the given
// byte length. The known-size table is scanned first; if nothing matches,
// a perfect square is attempted.
func RecoverGeometry(byteLen int) (Spec, error) {
	if byteLen <= 0 || byteLen%BytesPerPixel != 0 {
		return Spec{}, errors.NewFormatError(fmt.Sprintf("raw buffer length %d is not a multiple of %d", byteLen, BytesPerPixel))
	}
	pixels := byteLen / BytesPerPixel

	for _, g := range knownGeometries {
		if g.Width*g.Height == pixels {
			return g, nil
		}
	}

	// Square fallback for one-off assets with unusual dimensions.
	for edge := 1; edge*edge <= pixels; edge++ {
		if edge*edge == pixels {
			return Spec{Width: edge, Height: edge}, nil
		}
	}

	return Spec{}, errors.NewFormatError(fmt.Sprintf("no known geometry for raw buffer of %d pixels", pixels))
}

// Decode converts a raw BGRA buffer with the exact given geometry into an
// NRGBA image. The buffer length must match the spec exactly.
func Decode(data []byte, spec Spec) (*image.NRGBA, error) {
	if len(data) != spec.Size() {
		return nil, errors.NewSizeMismatchError(len(data), spec.Size())
	}

	img := image.NewNRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	for i := 0; i < len(data); i += BytesPerPixel {
		// BGRA in, RGBA out.
		img.Pix[i+0] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i+0]
		img.Pix[i+3] = data[i+3]
	}
	return img, nil
}

// Options selects the geometric corrections applied after decoding.
// Rotation is applied before the flip; at most one of each is supported.
type Options struct {
	// Rotate180 undoes the upside-down storage convention of legacy
	// overlay buffers.
	Rotate180 bool
	// FlipVertical undoes the bottom-up row order of legacy logo buffers.
	FlipVertical bool
	// TargetSize, when positive, resizes the result to a TargetSize
	// square with an area-preserving filter.
	TargetSize int
}

// DecodeAndTransform reads a raw buffer file, decodes it against spec
// (recovering the geometry from the known-size table when the length does
// not match), and applies the requested corrections.
func DecodeAndTransform(path string, spec Spec, opts Options) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("read raw buffer %s", path), err)
	}

	if len(data) != spec.Size() {
		recovered, rerr := RecoverGeometry(len(data))
		if rerr != nil {
			return nil, errors.NewSizeMismatchError(len(data), spec.Size())
		}
		logging.Debug("raw buffer geometry recovered",
			"path", path,
			"expected", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
			"recovered", fmt.Sprintf("%dx%d", recovered.Width, recovered.Height))
		spec = recovered
	}

	img, err := Decode(data, spec)
	if err != nil {
		return nil, err
	}
	return Transform(img, opts), nil
}

// Transform applies the corrections in Options to an already-decoded image.
func Transform(img *image.NRGBA, opts Options) *image.NRGBA {
	out := img
	if opts.Rotate180 {
		out = imaging.Rotate180(out)
	}
	if opts.FlipVertical {
		out = imaging.FlipV(out)
	}
	if opts.TargetSize > 0 {
		out = imaging.Resize(out, opts.TargetSize, opts.TargetSize, imaging.Box)
	}
	return out
}

// WritePNG encodes img as PNG at path. The path is opened directly so
// non-Latin destination names work on every platform.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError(fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return errors.NewIOError(fmt.Sprintf("encode png %s", path), err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOError(fmt.Sprintf("flush %s", path), err)
	}
	return nil
}

// ConvertToPNG decodes the raw buffer at src and writes it as a PNG at dst.
func ConvertToPNG(src, dst string, spec Spec, opts Options) error {
	img, err := DecodeAndTransform(src, spec, opts)
	if err != nil {
		return err
	}
	return WritePNG(dst, img)
}

// IconFromFrame derives a square icon from a decoded video frame. Legacy
// videos are stored upside-down, so the frame is rotated 180 degrees first,
// then a square region below the top letterbox band is cropped and shrunk
// to the icon size.
func IconFromFrame(frame image.Image, iconSize int) *image.NRGBA {
	const topOffset = 100
	const maxEdge = 360

	rotated := imaging.Rotate180(frame)
	bounds := rotated.Bounds()

	edge := bounds.Dx()
	if edge > maxEdge {
		edge = maxEdge
	}
	top := topOffset
	if top+edge > bounds.Dy() {
		top = bounds.Dy() - edge
		if top < 0 {
			top = 0
			edge = bounds.Dy()
		}
	}

	cropped := imaging.Crop(rotated, image.Rect(0, top, edge, top+edge))
	return imaging.Resize(cropped, iconSize, iconSize, imaging.Box)
}
