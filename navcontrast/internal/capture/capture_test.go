package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSnapshot_RGB_OutOfRange(t *testing.T) {
	snap := NewSnapshot(uniform(4, 4, color.NRGBA{200, 100, 50, 255}))
	if r, g, b := snap.RGB(4, 0); r != 0 || g != 0 || b != 0 {
		t.Fatalf("out of range: got %d,%d,%d, want black", r, g, b)
	}
	if r, g, b := snap.RGB(3, 3); r != 200 || g != 100 || b != 50 {
		t.Fatalf("in range: got %d,%d,%d", r, g, b)
	}
}

func TestSnapshot_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 20, 20))
	img.SetRGBA(10, 10, color.RGBA{1, 2, 3, 255})
	snap := NewSnapshot(img)
	if snap.Width() != 10 || snap.Height() != 10 {
		t.Fatalf("size: got %dx%d", snap.Width(), snap.Height())
	}
	if r, g, b := snap.RGB(0, 0); r != 1 || g != 2 || b != 3 {
		t.Fatalf("origin pixel: got %d,%d,%d", r, g, b)
	}
}

func TestSnapshot_GrayImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 77})
	snap := NewSnapshot(img)
	if r, g, b := snap.RGB(1, 1); r != 77 || g != 77 || b != 77 {
		t.Fatalf("gray pixel: got %d,%d,%d", r, g, b)
	}
}

func TestDecode_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, uniform(30, 12, color.NRGBA{255, 255, 255, 255})); err != nil {
		t.Fatal(err)
	}
	snap, err := Decode(buf.Bytes(), FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Width() != 30 || snap.Height() != 12 {
		t.Fatalf("size: got %dx%d", snap.Width(), snap.Height())
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]struct {
		data   []byte
		format Format
	}{
		"empty":       {nil, FormatPNG},
		"garbage":     {[]byte("not an image"), FormatPNG},
		"unsupported": {[]byte{1, 2, 3}, Format("bmp")},
	}
	for name, tc := range cases {
		if _, err := Decode(tc.data, tc.format); !errors.Is(err, ErrCaptureFailure) {
			t.Errorf("%s: got %v, want ErrCaptureFailure", name, err)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	var pngBuf, jpgBuf bytes.Buffer
	png.Encode(&pngBuf, uniform(2, 2, color.NRGBA{A: 255}))
	jpeg.Encode(&jpgBuf, uniform(2, 2, color.NRGBA{A: 255}), nil)

	if got := DetectFormat(pngBuf.Bytes()); got != FormatPNG {
		t.Errorf("png: got %q", got)
	}
	if got := DetectFormat(jpgBuf.Bytes()); got != FormatJPEG {
		t.Errorf("jpeg: got %q", got)
	}
	webpHeader := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	if got := DetectFormat(webpHeader); got != FormatWebP {
		t.Errorf("webp: got %q", got)
	}
}

func TestStatic_CropsRegion(t *testing.T) {
	img := uniform(100, 300, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{250, 250, 250, 255})
		}
	}

	snap, err := NewStatic(img).Capture(context.Background(), Rect{Width: 100, Height: 80})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Width() != 100 || snap.Height() != 80 {
		t.Fatalf("size: got %dx%d, want 100x80", snap.Width(), snap.Height())
	}
	if r, _, _ := snap.RGB(50, 79); r != 250 {
		t.Fatalf("band pixel: got r=%d, want 250", r)
	}
}

func TestStatic_ClampsToImage(t *testing.T) {
	snap, err := NewStatic(uniform(40, 20, color.NRGBA{A: 255})).
		Capture(context.Background(), Rect{Width: 1000, Height: 80})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Width() != 40 || snap.Height() != 20 {
		t.Fatalf("size: got %dx%d, want 40x20", snap.Width(), snap.Height())
	}
}

func TestStatic_Failures(t *testing.T) {
	ctx := context.Background()
	if _, err := NewStatic(nil).Capture(ctx, Rect{Width: 1, Height: 1}); !errors.Is(err, ErrCaptureFailure) {
		t.Errorf("nil image: got %v", err)
	}

	outside := Rect{X: 500, Y: 500, Width: 10, Height: 10}
	if _, err := NewStatic(uniform(10, 10, color.NRGBA{})).Capture(ctx, outside); !errors.Is(err, ErrCaptureFailure) {
		t.Errorf("outside region: got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewStatic(uniform(10, 10, color.NRGBA{})).Capture(cancelled, Rect{}); !errors.Is(err, ErrCaptureFailure) {
		t.Errorf("cancelled: got %v", err)
	}
}
