package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/yyyoichi/bitstream-go"

	"wmguard/internal/codec"
	"wmguard/internal/guard"
)

// StegoOracle is an in-process guard.Oracle that hides the payload in
// the low bit of the red channel of the first pixels. The perturbation
// is far below the tamper-analysis threshold, so embedding never
// registers as pixel damage, while extraction survives any edit that
// leaves the first pixels alone. That lets end-to-end tests exercise
// the real codec and diff paths without a network service.
type StegoOracle struct {
	// Returned verbatim from Extract, for exercising the degraded
	// fallback path.
	Tampered   bool
	TamperRate float64
	MaskBytes  []byte
}

var _ guard.Oracle = (*StegoOracle)(nil)

// NewStegoOracle creates a StegoOracle with a quiet tamper estimate.
func NewStegoOracle() *StegoOracle {
	return &StegoOracle{}
}

func (o *StegoOracle) Embed(ctx context.Context, data []byte, payload string) (*guard.EmbedResult, error) {
	img, err := decodeNRGBA(data)
	if err != nil {
		return nil, err
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if len(payload) > w*h {
		return nil, fmt.Errorf("image too small: %d pixels for %d payload bits", w*h, len(payload))
	}

	// Pack the payload into a bit plane, then spread it over the red
	// channel's low bits.
	plane := bitstream.NewBitWriter[uint64](0, 0)
	for _, ch := range payload {
		plane.WriteBool(ch == '1')
	}
	r := bitstream.NewBitReader(plane.Data(), 0, 0)
	r.SetBits(plane.Bits())

	for i := 0; i < len(payload); i++ {
		bit, err := r.ReadBitAt(i)
		if err != nil {
			return nil, fmt.Errorf("reading payload bit %d: %w", i, err)
		}
		off := pixOffset(img, i, w)
		if bit {
			img.Pix[off] |= 1
		} else {
			img.Pix[off] &^= 1
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding stego image: %w", err)
	}
	return &guard.EmbedResult{Image: buf.Bytes(), PayloadEcho: payload}, nil
}

func (o *StegoOracle) Extract(ctx context.Context, data []byte) (*guard.Extraction, error) {
	img, err := decodeNRGBA(data)
	if err != nil {
		return nil, err
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if codec.PayloadLength > w*h {
		return nil, fmt.Errorf("image too small: %d pixels", w*h)
	}

	plane := bitstream.NewBitWriter[uint64](0, 0)
	for i := 0; i < codec.PayloadLength; i++ {
		plane.WriteBool(img.Pix[pixOffset(img, i, w)]&1 == 1)
	}
	r := bitstream.NewBitReader(plane.Data(), 0, 0)
	r.SetBits(plane.Bits())

	bits := make([]byte, codec.PayloadLength)
	for i := range bits {
		bit, err := r.ReadBitAt(i)
		if err != nil {
			return nil, fmt.Errorf("reading extracted bit %d: %w", i, err)
		}
		if bit {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}

	return &guard.Extraction{
		Bits:       string(bits),
		Mask:       o.MaskBytes,
		Tampered:   o.Tampered,
		TamperRate: o.TamperRate,
	}, nil
}

// pixOffset maps logical bit index i to the red byte of pixel i in
// row-major order.
func pixOffset(img *image.NRGBA, i, w int) int {
	x := i % w
	y := i / w
	return img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
}

func decodeNRGBA(data []byte) (*image.NRGBA, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if nrgba, ok := src.(*image.NRGBA); ok {
		return nrgba, nil
	}
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out, nil
}
