package guard

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxImageBytes is the submission size ceiling: 10 MiB, enforced
// before any downstream call.
const MaxImageBytes = 10 << 20

// pngSignature is the fixed 8-byte PNG file header.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// validateSubmission rejects anything that is not a PNG under the size
// cap. It runs before any side effect on both the upload and the
// verification path.
func validateSubmission(data []byte, filename string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", ErrValidation)
	}
	if filename == "" || !strings.HasSuffix(strings.ToLower(filename), ".png") {
		return fmt.Errorf("%w: only PNG files are accepted", ErrValidation)
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return fmt.Errorf("%w: not a PNG file", ErrValidation)
	}
	if len(data) > MaxImageBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxImageBytes)
	}
	return nil
}

// cleanFilename strips the "protected_" prefix that downloaded
// watermark-bearing copies carry, so re-uploads and verification
// records keep the original display name.
func cleanFilename(filename string) string {
	return strings.TrimPrefix(filename, "protected_")
}
