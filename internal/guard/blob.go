package guard

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// BlobStore is durable byte storage addressed by path. Implementations
// must honor context cancellation and wrap capacity exhaustion in
// ErrStorageExhausted so the uploader can distinguish it.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Blob path conventions. Assets keep a pristine and a watermark-bearing
// copy under image/{id}/; verification artifacts live under
// record/{token}/.

// AssetPaths returns the pristine and watermark-bearing blob paths for
// an asset identifier and its display filename.
func AssetPaths(id int64, filename string) (pristine, marked string) {
	stem := strings.TrimSuffix(filename, path.Ext(filename))
	pristine = fmt.Sprintf("image/%d/%s_origi.png", id, stem)
	marked = fmt.Sprintf("image/%d/%s_wm.png", id, stem)
	return pristine, marked
}

// RecordPath returns the path of a stored verification artifact.
func RecordPath(token, filename string) string {
	return fmt.Sprintf("record/%s/%s", token, filename)
}

// RecordMaskPath returns the path of a record's tamper mask artifact.
func RecordMaskPath(token string) string {
	return RecordPath(token, "mask.png")
}

// RecordOverlayPath returns the path of a record's blended overlay
// artifact.
func RecordOverlayPath(token string) string {
	return RecordPath(token, "combined.png")
}
