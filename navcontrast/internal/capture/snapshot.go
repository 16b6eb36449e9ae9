package capture

import (
	"image"
	"image/color"
)

// Rect is a region in viewport CSS pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the region covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Snapshot is an immutable raster of a captured region. Coordinates are
// relative to the top-left of the capture, whatever the underlying image
// bounds are.
type Snapshot struct {
	img    image.Image
	origin image.Point
	width  int
	height int
}

// NewSnapshot wraps img. The image must not be mutated afterwards.
func NewSnapshot(img image.Image) *Snapshot {
	b := img.Bounds()
	return &Snapshot{img: img, origin: b.Min, width: b.Dx(), height: b.Dy()}
}

// Width of the raster in pixels.
func (s *Snapshot) Width() int { return s.width }

// Height of the raster in pixels.
func (s *Snapshot) Height() int { return s.height }

// Image returns the underlying raster. Callers must not mutate it.
func (s *Snapshot) Image() image.Image { return s.img }

// RGB returns the unpremultiplied channel values at (x, y). Out-of-range
// coordinates return black.
func (s *Snapshot) RGB(x, y int) (r, g, b uint8) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return 0, 0, 0
	}
	px, py := s.origin.X+x, s.origin.Y+y

	switch im := s.img.(type) {
	case *image.NRGBA:
		i := im.PixOffset(px, py)
		return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
	case *image.RGBA:
		i := im.PixOffset(px, py)
		if im.Pix[i+3] == 0xff {
			return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
		}
	}

	c := color.NRGBAModel.Convert(s.img.At(px, py)).(color.NRGBA)
	return c.R, c.G, c.B
}
