// Package capture produces rasters of the page region beneath the navbar.
//
// The rod capturer clips the CDP screenshot to the requested band instead of
// rasterizing the whole page: capture cost stays proportional to the navbar
// footprint and the sampler only ever sees the band.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"
)

// ErrCaptureFailure wraps every reason a raster could not be produced.
var ErrCaptureFailure = errors.New("capture: failure")

// Capturer produces a Snapshot of a region. Implementations must return
// errors wrapping ErrCaptureFailure and must not panic on restricted content.
type Capturer interface {
	Capture(ctx context.Context, region Rect) (*Snapshot, error)
}

// Format is the encoding requested from the rendering engine.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// Decode turns encoded screenshot bytes into a Snapshot.
func Decode(data []byte, format Format) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrCaptureFailure)
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatPNG, "":
		img, err = png.Decode(r)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrCaptureFailure, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCaptureFailure, format, err)
	}

	snap := NewSnapshot(img)
	if snap.Width() == 0 || snap.Height() == 0 {
		return nil, fmt.Errorf("%w: zero-sized raster", ErrCaptureFailure)
	}
	return snap, nil
}

// DetectFormat guesses the encoding from magic bytes. Unknown data is
// reported as PNG so Decode yields a descriptive error.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return FormatJPEG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	default:
		return FormatPNG
	}
}

// Static serves a fixed image, cropped to the requested region. Used for
// one-shot classification of image files and in tests.
type Static struct {
	img image.Image
}

// NewStatic creates a Static capturer over img.
func NewStatic(img image.Image) *Static {
	return &Static{img: img}
}

// Capture crops the image to region. A region outside the image fails.
func (s *Static) Capture(ctx context.Context, region Rect) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	if s.img == nil {
		return nil, fmt.Errorf("%w: no image", ErrCaptureFailure)
	}

	b := s.img.Bounds()
	crop := b
	if !region.Empty() {
		crop = image.Rect(
			b.Min.X+region.X, b.Min.Y+region.Y,
			b.Min.X+region.X+region.Width, b.Min.Y+region.Y+region.Height,
		).Intersect(b)
	}
	if crop.Empty() {
		return nil, fmt.Errorf("%w: region %+v outside image %v", ErrCaptureFailure, region, b)
	}

	if sub, ok := s.img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return NewSnapshot(sub.SubImage(crop)), nil
	}
	return &Snapshot{img: s.img, origin: crop.Min, width: crop.Dx(), height: crop.Dy()}, nil
}
