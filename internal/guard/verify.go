package guard

import (
	"context"
	"errors"
	"fmt"

	"wmguard/internal/codec"
	"wmguard/internal/model"
	"wmguard/internal/tamperdiff"
)

// VerifyInput carries one verification request.
type VerifyInput struct {
	Data       []byte
	Filename   string
	Algorithm  model.ProtectionAlgorithm
	VerifierID int64
}

// Outcome is the result of one verification attempt, shaped so the
// calling layer has every input the notification policy needs.
type Outcome struct {
	Token            string
	Marked           bool // watermark present
	AssetID          *int64
	Ratio            float64 // authoritative when Marked, fallback estimate otherwise
	RatioDegraded    bool    // true when Ratio came from the oracle, not pixel diffing
	CorrectedBits    int
	Relation         model.Relation
	OwnerContact     string
	Filename         string
	Record           *model.VerificationRecord
}

// Verify recovers the embedded identifier from a submitted image,
// checks it against the catalog, computes the authoritative pixel-diff
// tamper result against the stored watermark-bearing copy, persists a
// VerificationRecord with its artifacts, and classifies the
// verifier/owner relation.
//
// An uncorrectable payload is a valid "no watermark" outcome. A
// recovered identifier that names no asset is ErrCatalogInconsistent:
// a genuine failure, never reported as "no tampering".
func (s *GuardService) Verify(ctx context.Context, in VerifyInput) (*Outcome, error) {
	if err := validateSubmission(in.Data, in.Filename); err != nil {
		return nil, err
	}
	filename := cleanFilename(in.Filename)
	token := s.tokens.New()

	extraction, err := s.oracle.Extract(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %v", ErrOracleUnavailable, err)
	}

	outcome := &Outcome{
		Token:    token,
		Filename: filename,
		Relation: model.RelationNone,
	}

	id, corrected, err := codec.Decode(extraction.Bits)
	if err == nil && id == 0 {
		// The all-zero codeword is indistinguishable from a blank
		// carrier. Identifiers start at 1.
		err = codec.ErrUncorrectable
	}
	switch {
	case err == nil:
		outcome.Marked = true
		outcome.CorrectedBits = corrected
		if corrected > 0 {
			s.logger.Info("payload recovered with corrections",
				"token", token, "asset_id", id, "corrected_bits", corrected)
		}
	case errors.Is(err, codec.ErrUncorrectable), errors.Is(err, codec.ErrMalformedPayload):
		// No watermark. The oracle's own estimate is the only signal
		// left; surface it, but the persisted ratio stays null.
		if extraction.Tampered {
			outcome.Ratio = extraction.TamperRate
			outcome.RatioDegraded = true
		}
		s.logger.Debug("no recoverable watermark", "token", token, "reason", err)
	default:
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	var (
		asset   *model.Asset
		mask    []byte
		overlay []byte
	)
	if outcome.Marked {
		assetID := int64(id)
		asset, err = s.catalog.FindAssetByID(ctx, assetID)
		if err != nil {
			return nil, fmt.Errorf("looking up asset %d: %w", assetID, err)
		}
		if asset == nil {
			return nil, fmt.Errorf("%w: identifier %d", ErrCatalogInconsistent, assetID)
		}
		outcome.AssetID = &assetID

		reference, err := s.blobs.Get(ctx, asset.MarkedPath)
		if err != nil {
			return nil, fmt.Errorf("fetching reference blob %q: %w", asset.MarkedPath, err)
		}

		mask, overlay = s.analyze(in.Data, reference, extraction, token, outcome)
	}

	record := &model.VerificationRecord{
		Token:      token,
		VerifierID: in.VerifierID,
		Filename:   filename,
		Marked:     outcome.Marked,
		AssetID:    outcome.AssetID,
		Algorithm:  in.Algorithm,
		CreatedAt:  s.clock.Now(),
	}
	if outcome.Marked {
		ratio := outcome.Ratio
		record.Ratio = &ratio
	}
	if err := s.catalog.CreateVerificationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting verification record: %w", err)
	}
	outcome.Record = record

	s.storeArtifacts(ctx, token, filename, in.Data, mask, overlay)

	if asset != nil {
		if asset.OwnerID == in.VerifierID {
			outcome.Relation = model.RelationSelf
		} else {
			outcome.Relation = model.RelationOther
			if owner, oerr := s.catalog.FindUserByID(ctx, asset.OwnerID); oerr == nil && owner != nil {
				outcome.OwnerContact = owner.Email
			} else if oerr != nil {
				s.logger.Warn("owner contact lookup failed", "owner_id", asset.OwnerID, "error", oerr)
			}
		}
	}

	s.logger.Info("verification complete",
		"token", token,
		"marked", outcome.Marked,
		"ratio", outcome.Ratio,
		"relation", outcome.Relation)
	return outcome, nil
}

// analyze runs the authoritative pixel diff, falling back to the
// oracle's native estimate when the submission cannot be processed as
// an image. The fallback is logged as degraded, never treated as
// equally trustworthy.
func (s *GuardService) analyze(submitted, reference []byte, extraction *Extraction, token string, outcome *Outcome) (mask, overlay []byte) {
	res, err := tamperdiff.Diff(submitted, reference)
	if err != nil {
		outcome.Ratio = 0
		if extraction.Tampered {
			outcome.Ratio = extraction.TamperRate
		}
		outcome.RatioDegraded = true
		s.logger.Warn("tamper analysis degraded: using oracle estimate",
			"token", token, "ratio", outcome.Ratio, "error", err)
		return extraction.Mask, nil
	}

	outcome.Ratio = res.Ratio
	if res.Ratio == 0 {
		return nil, nil
	}

	mask, err = tamperdiff.EncodePNG(res.Mask)
	if err != nil {
		s.logger.Error("encoding tamper mask", "token", token, "error", err)
		mask = nil
	}
	overlay, err = tamperdiff.Overlay(reference, res.Mask)
	if err != nil {
		s.logger.Error("rendering tamper overlay", "token", token, "error", err)
		overlay = nil
	}
	return mask, overlay
}

// storeArtifacts writes the submitted image and, when present, the
// mask and overlay under the record's correlation token. Artifact
// storage is best-effort: the verification result stands even if the
// blob store rejects the copies.
func (s *GuardService) storeArtifacts(ctx context.Context, token, filename string, submitted, mask, overlay []byte) {
	put := func(path string, data []byte) {
		if err := s.blobs.Put(ctx, path, data); err != nil {
			s.logger.Error("storing verification artifact", "path", path, "error", err)
		}
	}
	put(RecordPath(token, filename), submitted)
	if mask != nil {
		put(RecordMaskPath(token), mask)
	}
	if overlay != nil {
		put(RecordOverlayPath(token), overlay)
	}
}

// GetRecord returns one verification record by correlation token.
func (s *GuardService) GetRecord(ctx context.Context, token string) (*model.VerificationRecord, error) {
	record, err := s.catalog.FindVerificationByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("finding record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: token %s", ErrRecordNotFound, token)
	}
	return record, nil
}

// History summarizes one party's activity: protected assets and
// verification attempts, newest first.
type History struct {
	AssetCount        int64
	VerificationCount int64
	Assets            []*model.Asset
	Verifications     []*model.VerificationRecord
}

// GetHistory returns a party's upload and verification history.
func (s *GuardService) GetHistory(ctx context.Context, userID int64, limit, offset int) (*History, error) {
	assetCount, err := s.catalog.CountAssetsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}
	verCount, err := s.catalog.CountVerificationsByVerifier(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting verifications: %w", err)
	}
	assets, err := s.catalog.ListAssetsByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	verifications, err := s.catalog.ListVerificationsByVerifier(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing verifications: %w", err)
	}
	return &History{
		AssetCount:        assetCount,
		VerificationCount: verCount,
		Assets:            assets,
		Verifications:     verifications,
	}, nil
}
