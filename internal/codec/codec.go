// Package codec turns asset identifiers into the fixed-length
// error-correcting bit payload embedded by the watermark oracle, and
// recovers identifiers from possibly corrupted extractions.
//
// The payload contract is shared verbatim with the oracle: 63 codeword
// bits followed by one framing bit, rendered as a 64-character string
// of '0'/'1'. Character k of the payload is the coefficient of x^k in
// the codeword polynomial. All parameters are compile-time constants;
// the embed and verify sides can never drift.
package codec

import (
	"errors"
	"fmt"
)

// PayloadLength is the number of characters in a payload: one codeword
// plus the framing bit.
const PayloadLength = BlockLength + 1

// MaxID is the largest encodable asset identifier.
const MaxID = 1<<MessageLength - 1

// framingBit terminates every payload. Its value is not validated on
// decode; a flipped framing bit carries no information.
const framingBit = '1'

var (
	// ErrUncorrectable reports more than CorrectionRadius bit errors.
	// It is a valid "no watermark present" outcome, not a fault.
	ErrUncorrectable = errors.New("payload not correctable")

	// ErrMalformedPayload reports a payload of the wrong length or
	// alphabet, before any error correction is attempted.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Encode produces the payload for an asset identifier. The identifier
// is zero-padded to the code's message length, parity bits are
// computed, and the framing bit is appended.
func Encode(id uint64) (string, error) {
	if id > MaxID {
		return "", fmt.Errorf("identifier %d exceeds %d bits", id, MessageLength)
	}
	cw := encodeBlock(id)

	buf := make([]byte, PayloadLength)
	for k := 0; k < BlockLength; k++ {
		buf[k] = '0' + byte(cw>>uint(k)&1)
	}
	buf[BlockLength] = framingBit
	return string(buf), nil
}

// Decode strips the framing bit, runs bounded-distance error
// correction and returns the recovered identifier together with the
// number of corrected bit errors. When the payload lies outside the
// correction radius it returns ErrUncorrectable; callers must treat
// the identifier as unrecoverable rather than guess.
func Decode(payload string) (id uint64, corrected int, err error) {
	if len(payload) != PayloadLength {
		return 0, 0, fmt.Errorf("%w: length %d, want %d", ErrMalformedPayload, len(payload), PayloadLength)
	}
	var cw uint64
	for k := 0; k < BlockLength; k++ {
		switch payload[k] {
		case '1':
			cw |= 1 << uint(k)
		case '0':
		default:
			return 0, 0, fmt.Errorf("%w: byte %q at %d", ErrMalformedPayload, payload[k], k)
		}
	}
	switch payload[BlockLength] {
	case '0', '1':
	default:
		return 0, 0, fmt.Errorf("%w: framing byte %q", ErrMalformedPayload, payload[BlockLength])
	}

	fixed, n, ok := decodeBlock(cw)
	if !ok {
		return 0, 0, ErrUncorrectable
	}
	return fixed >> ParityLength, n, nil
}
