package guard

import (
	"bytes"
	"context"
	"fmt"

	"wmguard/internal/codec"
	"wmguard/internal/model"
)

// UploadInput carries a protection request.
type UploadInput struct {
	Data      []byte
	Filename  string
	Copyright string
	Algorithm model.ProtectionAlgorithm
	OwnerID   int64
}

// Upload protects an image: it obtains an identifier from the catalog,
// embeds it through the oracle, writes the pristine and watermark-
// bearing copies to the blob store, and commits.
//
// The catalog insert and the blob writes cannot share an atomic
// commit, so the sequence is a compensating transaction: any failure
// after the provisional insert deletes the blobs written in this
// attempt and rolls the row back, leaving no trace. A failed upload is
// never partially visible.
func (s *GuardService) Upload(ctx context.Context, in UploadInput) (*model.Asset, error) {
	if err := validateSubmission(in.Data, in.Filename); err != nil {
		return nil, err
	}
	filename := cleanFilename(in.Filename)

	creation, err := s.catalog.BeginAsset(ctx, &model.Asset{
		OwnerID:   in.OwnerID,
		Filename:  filename,
		Copyright: in.Copyright,
		Algorithm: in.Algorithm,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("inserting provisional asset: %w", err)
	}
	asset := creation.Asset()

	payload, err := codec.Encode(uint64(asset.ID))
	if err != nil {
		creation.Rollback()
		return nil, fmt.Errorf("encoding identifier %d: %w", asset.ID, err)
	}

	embedded, err := s.oracle.Embed(ctx, in.Data, payload)
	if err != nil {
		creation.Rollback()
		return nil, fmt.Errorf("%w: embed: %v", ErrOracleUnavailable, err)
	}
	if embedded.PayloadEcho != "" && embedded.PayloadEcho != payload {
		s.logger.Warn("oracle payload echo mismatch",
			"asset_id", asset.ID,
			"sent", payload,
			"echoed", embedded.PayloadEcho)
	}

	pristinePath, markedPath := AssetPaths(asset.ID, filename)

	pristine := in.Data
	if s.encryptor != nil && s.encryptor.IsConfigured() {
		var sealed bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(in.Data), &sealed); err != nil {
			creation.Rollback()
			return nil, fmt.Errorf("encrypting pristine copy: %w", err)
		}
		pristine = sealed.Bytes()
	}

	// Blob writes. Compensation deletes whatever this attempt wrote,
	// then rolls the catalog row back.
	var written []string
	compensate := func() {
		// Cleanup must proceed even when ctx was the failure cause.
		cleanupCtx := context.WithoutCancel(ctx)
		for _, p := range written {
			if derr := s.blobs.Delete(cleanupCtx, p); derr != nil {
				s.logger.Error("compensation: deleting blob", "path", p, "error", derr)
			}
		}
		if rerr := creation.Rollback(); rerr != nil {
			s.logger.Error("compensation: rolling back asset row", "asset_id", asset.ID, "error", rerr)
		}
	}

	if err := s.blobs.Put(ctx, pristinePath, pristine); err != nil {
		compensate()
		return nil, fmt.Errorf("writing pristine blob: %w", err)
	}
	written = append(written, pristinePath)

	if err := s.blobs.Put(ctx, markedPath, embedded.Image); err != nil {
		compensate()
		return nil, fmt.Errorf("writing watermarked blob: %w", err)
	}
	written = append(written, markedPath)

	if err := creation.Commit(ctx, pristinePath, markedPath); err != nil {
		compensate()
		return nil, fmt.Errorf("committing asset: %w", err)
	}

	asset.PristinePath = pristinePath
	asset.MarkedPath = markedPath
	s.logger.Info("asset protected",
		"asset_id", asset.ID,
		"owner_id", in.OwnerID,
		"algorithm", in.Algorithm,
		"filename", filename)
	return asset, nil
}

// ExportPristine fetches an asset's pristine copy and, when an
// encryptor is configured, decrypts it with the supplied context.
func (s *GuardService) ExportPristine(ctx context.Context, assetID int64, dc DecryptionContext) ([]byte, error) {
	asset, err := s.catalog.FindAssetByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: asset %d", ErrRecordNotFound, assetID)
	}

	data, err := s.blobs.Get(ctx, asset.PristinePath)
	if err != nil {
		return nil, fmt.Errorf("fetching pristine blob: %w", err)
	}
	if s.encryptor == nil || !s.encryptor.IsConfigured() {
		return data, nil
	}
	if dc == nil {
		return nil, fmt.Errorf("pristine copy is encrypted: decryption context required")
	}
	var plain bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(data), &plain); err != nil {
		return nil, fmt.Errorf("decrypting pristine copy: %w", err)
	}
	return plain.Bytes(), nil
}
