// Package tamperdiff computes pixel-level difference masks between a
// submitted image and the stored watermark-bearing reference, plus the
// tampering ratio used by the verification pipeline.
package tamperdiff

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// Threshold is the Euclidean RGB-difference magnitude above which a
// pixel counts as tampered. It is fixed for the whole system; results
// from different deployments must stay comparable.
const Threshold = 10.0

// maskColor marks tampered pixels in the mask: opaque red. Untouched
// pixels stay fully transparent.
var maskColor = color.NRGBA{R: 255, A: 255}

// Result is the outcome of one comparison.
type Result struct {
	// Mask is an RGBA image with the reference's dimensions; tampered
	// pixels are opaque, everything else transparent.
	Mask *image.NRGBA
	// Ratio is tampered pixels over total pixels, in percent.
	Ratio float64
	// TamperedPixels and TotalPixels back the ratio for logging.
	TamperedPixels int
	TotalPixels    int
}

// Diff decodes both PNGs, resizes the candidate to the reference's
// dimensions when they differ, and classifies each pixel by the
// Euclidean magnitude of its per-channel difference. Identical inputs
// yield exactly ratio 0 and an all-transparent mask.
func Diff(candidate, reference []byte) (*Result, error) {
	cand, err := decodePNG(candidate)
	if err != nil {
		return nil, fmt.Errorf("decoding candidate: %w", err)
	}
	ref, err := decodePNG(reference)
	if err != nil {
		return nil, fmt.Errorf("decoding reference: %w", err)
	}
	return diffImages(cand, ref), nil
}

func diffImages(cand, ref image.Image) *Result {
	bounds := ref.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if !cand.Bounds().Eq(bounds) {
		scaled := image.NewNRGBA(bounds)
		draw.ApproxBiLinear.Scale(scaled, bounds, cand, cand.Bounds(), draw.Src, nil)
		cand = scaled
	}

	// One float plane per channel, differenced as matrices; the
	// magnitude plane is the per-pixel Euclidean norm across channels.
	magnitude := mat.NewDense(h, w, nil)
	var diff mat.Dense
	for ch := 0; ch < 3; ch++ {
		cp := channelPlane(cand, bounds, ch)
		rp := channelPlane(ref, bounds, ch)
		diff.Sub(cp, rp)
		diff.MulElem(&diff, &diff)
		magnitude.Add(magnitude, &diff)
	}

	mask := image.NewNRGBA(bounds)
	tampered := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if math.Sqrt(magnitude.At(y, x)) > Threshold {
				tampered++
				mask.SetNRGBA(bounds.Min.X+x, bounds.Min.Y+y, maskColor)
			}
		}
	}

	total := w * h
	return &Result{
		Mask:           mask,
		Ratio:          float64(tampered) / float64(total) * 100,
		TamperedPixels: tampered,
		TotalPixels:    total,
	}
}

// channelPlane extracts one 8-bit channel (0=R, 1=G, 2=B) as a float
// matrix in row-major order.
func channelPlane(img image.Image, bounds image.Rectangle, ch int) *mat.Dense {
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]float64, w*h)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			var v uint32
			switch ch {
			case 0:
				v = r
			case 1:
				v = g
			default:
				v = b
			}
			data[i] = float64(v >> 8)
			i++
		}
	}
	return mat.NewDense(h, w, data)
}

func decodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// EncodePNG renders an image produced by this package back to bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
