package guard

import "context"

// Oracle is the external perceptual-watermarking capability. Any
// implementation satisfies it: a remote service, an in-process model,
// or a test double. The core never assumes internals; the only shared
// contract is the fixed-length bit payload (see internal/codec).
type Oracle interface {
	// Embed returns a watermark-bearing copy of the image carrying the
	// payload. The result echoes the payload for an integrity
	// cross-check; a mismatch is logged by the caller, not fatal.
	Embed(ctx context.Context, image []byte, payload string) (*EmbedResult, error)

	// Extract recovers the raw bit payload from an image, together with
	// the oracle's own tamper estimate. The estimate is a fallback
	// signal only; pixel diffing is authoritative.
	Extract(ctx context.Context, image []byte) (*Extraction, error)
}

// EmbedResult is the oracle's answer to an embed request.
type EmbedResult struct {
	// Image is the watermark-bearing copy.
	Image []byte
	// PayloadEcho is the payload as the oracle understood it.
	PayloadEcho string
}

// Extraction is the oracle's answer to an extract request.
type Extraction struct {
	// Bits is the extracted payload, ideally codec.PayloadLength
	// characters of '0'/'1'.
	Bits string
	// Mask is an optional pre-computed tamper mask (PNG bytes), used
	// only when local analysis is unavailable.
	Mask []byte
	// Tampered is the oracle's own boolean estimate.
	Tampered bool
	// TamperRate is the oracle's native tamper estimate in percent,
	// meaningful when Tampered is true.
	TamperRate float64
}
