package tamperdiff

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// overlayAlpha is the opacity at which the mask is blended over the
// reference in the combined artifact. The mask itself stays fully
// opaque; the blend exists so the reference remains visible underneath.
const overlayAlpha = 128

// Overlay alpha-blends the tamper mask over the reference image,
// producing the combined.png verification artifact.
func Overlay(reference []byte, mask *image.NRGBA) ([]byte, error) {
	ref, err := decodePNG(reference)
	if err != nil {
		return nil, fmt.Errorf("decoding reference: %w", err)
	}

	bounds := ref.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Copy(out, bounds.Min, ref, bounds, draw.Src, nil)

	faded := image.NewNRGBA(mask.Bounds())
	for y := mask.Bounds().Min.Y; y < mask.Bounds().Max.Y; y++ {
		for x := mask.Bounds().Min.X; x < mask.Bounds().Max.X; x++ {
			c := mask.NRGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			c.A = overlayAlpha
			faded.SetNRGBA(x, y, c)
		}
	}
	draw.Draw(out, bounds, faded, faded.Bounds().Min, draw.Over)

	return EncodePNG(out)
}
