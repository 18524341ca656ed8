package blob

import (
	"context"
	"fmt"

	"wmguard/internal/config"
	"wmguard/internal/guard"
)

// NewBlobStoreFromConfig creates a blob store based on the config type.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobStoreConfig) (guard.BlobStore, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem blob store")
		}
		return NewFileSystemStore(cfg.FSRoot)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
