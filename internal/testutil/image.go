package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// SolidPNG renders a w by h PNG filled with c.
func SolidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return EncodePNG(t, img)
}

// RecolorRegion decodes a PNG, repaints the given rectangle with c,
// and re-encodes. Used to fake localized tampering.
func RecolorRegion(t *testing.T, data []byte, region image.Rectangle, c color.NRGBA) []byte {
	t.Helper()

	img := DecodeNRGBA(t, data)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return EncodePNG(t, img)
}

// DecodeNRGBA decodes PNG bytes into an NRGBA image.
func DecodeNRGBA(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	out := image.NewNRGBA(src.Bounds())
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

// EncodePNG encodes an image to PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}
