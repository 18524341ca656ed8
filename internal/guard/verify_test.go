package guard_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmguard/internal/codec"
	"wmguard/internal/guard"
	"wmguard/internal/model"
	"wmguard/internal/testutil"
)

func TestVerifySelfIntact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	asset, marked := f.uploadAsset(t)

	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       marked,
		Filename:   "protected_cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.owner.ID,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Marked)
	require.NotNil(t, outcome.AssetID)
	assert.Equal(t, asset.ID, *outcome.AssetID)
	assert.Equal(t, 0.0, outcome.Ratio)
	assert.False(t, outcome.RatioDegraded)
	assert.Zero(t, outcome.CorrectedBits)
	assert.Equal(t, model.RelationSelf, outcome.Relation)
	assert.Empty(t, outcome.OwnerContact)
	assert.Equal(t, "cat.png", outcome.Filename)

	// Record is persisted with the authoritative ratio.
	record, err := f.catalog.FindVerificationByToken(ctx, outcome.Token)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Marked)
	require.NotNil(t, record.Ratio)
	assert.Equal(t, 0.0, *record.Ratio)
	require.NotNil(t, record.AssetID)
	assert.Equal(t, asset.ID, *record.AssetID)

	// The submitted copy is kept; no tamper means no mask artifacts.
	assert.True(t, f.blobs.Exists(guard.RecordPath(outcome.Token, "cat.png")))
	assert.False(t, f.blobs.Exists(guard.RecordMaskPath(outcome.Token)))
	assert.False(t, f.blobs.Exists(guard.RecordOverlayPath(outcome.Token)))
}

func TestVerifyTamperedByThirdParty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	asset, marked := f.uploadAsset(t)

	// Paint the bottom three rows black: 30 of 100 pixels, away from
	// the embedded payload.
	tampered := testutil.RecolorRegion(t, marked,
		image.Rect(0, 7, 10, 10), color.NRGBA{A: 255})

	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       tampered,
		Filename:   "suspicious.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Marked)
	require.NotNil(t, outcome.AssetID)
	assert.Equal(t, asset.ID, *outcome.AssetID)
	assert.Equal(t, 30.0, outcome.Ratio)
	assert.False(t, outcome.RatioDegraded)
	assert.Equal(t, model.RelationOther, outcome.Relation)
	assert.Equal(t, f.owner.Email, outcome.OwnerContact)

	record, err := f.catalog.FindVerificationByToken(ctx, outcome.Token)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, record.Ratio)
	assert.Equal(t, 30.0, *record.Ratio)

	// Tamper evidence is stored alongside the submitted copy.
	assert.True(t, f.blobs.Exists(guard.RecordPath(outcome.Token, "suspicious.png")))
	assert.True(t, f.blobs.Exists(guard.RecordMaskPath(outcome.Token)))
	assert.True(t, f.blobs.Exists(guard.RecordOverlayPath(outcome.Token)))
}

func TestVerifyCorrectsBitErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	asset, marked := f.uploadAsset(t)

	// Flip three payload bits by re-embedding a damaged payload.
	extraction, err := f.oracle.Extract(ctx, marked)
	require.NoError(t, err)
	damaged := []byte(extraction.Bits)
	for _, k := range []int{0, 10, 20} {
		if damaged[k] == '0' {
			damaged[k] = '1'
		} else {
			damaged[k] = '0'
		}
	}
	res, err := f.oracle.Embed(ctx, marked, string(damaged))
	require.NoError(t, err)

	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       res.Image,
		Filename:   "cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.owner.ID,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Marked)
	require.NotNil(t, outcome.AssetID)
	assert.Equal(t, asset.ID, *outcome.AssetID)
	assert.Equal(t, 3, outcome.CorrectedBits)
	assert.Equal(t, 0.0, outcome.Ratio, "bit-level damage stays below the pixel threshold")
}

func TestVerifyUnmarked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})

	// Plain gray carrier: no payload was ever embedded.
	plain := testutil.SolidPNG(t, 10, 10, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       plain,
		Filename:   "vacation.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	require.NoError(t, err)

	assert.False(t, outcome.Marked)
	assert.Nil(t, outcome.AssetID)
	assert.Equal(t, model.RelationNone, outcome.Relation)

	// The record is kept, with no ratio: absence of a watermark is not
	// evidence of anything.
	record, err := f.catalog.FindVerificationByToken(ctx, outcome.Token)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Marked)
	assert.Nil(t, record.Ratio)
	assert.Nil(t, record.AssetID)

	assert.True(t, f.blobs.Exists(guard.RecordPath(outcome.Token, "vacation.png")))
}

func TestVerifyUnknownIdentifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})

	// A well-formed payload whose identifier was never issued.
	payload, err := codec.Encode(54321)
	require.NoError(t, err)
	src := testutil.SolidPNG(t, 10, 10, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	res, err := f.oracle.Embed(ctx, src, payload)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, guard.VerifyInput{
		Data:       res.Image,
		Filename:   "orphan.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	assert.ErrorIs(t, err, guard.ErrCatalogInconsistent)

	// The failure aborts before anything is persisted.
	n, err := f.catalog.CountVerificationsByVerifier(ctx, f.verifier.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.blobs.Len())
}

func TestVerifyDegradedAnalysis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	asset, marked := f.uploadAsset(t)

	// Corrupt the stored reference so pixel diffing cannot run; the
	// oracle's native estimate is the only signal left.
	require.NoError(t, f.blobs.Put(ctx, asset.MarkedPath, []byte("\x89PNG but truncated")))
	f.oracle.Tampered = true
	f.oracle.TamperRate = 42.5
	f.oracle.MaskBytes = []byte("oracle-mask")

	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       marked,
		Filename:   "cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Marked)
	assert.Equal(t, 42.5, outcome.Ratio)
	assert.True(t, outcome.RatioDegraded)

	record, err := f.catalog.FindVerificationByToken(ctx, outcome.Token)
	require.NoError(t, err)
	require.NotNil(t, record.Ratio)
	assert.Equal(t, 42.5, *record.Ratio)

	// The oracle-provided mask is kept as the only available evidence.
	assert.True(t, f.blobs.Exists(guard.RecordMaskPath(outcome.Token)))
}

func TestVerifyOracleUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{oracle: failingOracle{}})

	src := testutil.SolidPNG(t, 10, 10, color.NRGBA{A: 255})
	_, err := f.svc.Verify(context.Background(), guard.VerifyInput{
		Data:       src,
		Filename:   "cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	assert.ErrorIs(t, err, guard.ErrOracleUnavailable)
}

func TestGetRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	_, marked := f.uploadAsset(t)

	outcome, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       marked,
		Filename:   "cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.owner.ID,
	})
	require.NoError(t, err)

	record, err := f.svc.GetRecord(ctx, outcome.Token)
	require.NoError(t, err)
	assert.Equal(t, outcome.Token, record.Token)

	_, err = f.svc.GetRecord(ctx, "no-such-token")
	assert.ErrorIs(t, err, guard.ErrRecordNotFound)
}

func TestGetHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, fixtureOpts{})
	first, _ := f.uploadAsset(t)
	second, marked := f.uploadAsset(t)

	_, err := f.svc.Verify(ctx, guard.VerifyInput{
		Data:       marked,
		Filename:   "cat.png",
		Algorithm:  model.AlgorithmEditGuard,
		VerifierID: f.verifier.ID,
	})
	require.NoError(t, err)

	owner, err := f.svc.GetHistory(ctx, f.owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), owner.AssetCount)
	assert.Zero(t, owner.VerificationCount)
	require.Len(t, owner.Assets, 2)
	assert.Equal(t, second.ID, owner.Assets[0].ID, "newest first")
	assert.Equal(t, first.ID, owner.Assets[1].ID)

	verifier, err := f.svc.GetHistory(ctx, f.verifier.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, verifier.AssetCount)
	assert.Equal(t, int64(1), verifier.VerificationCount)
	require.Len(t, verifier.Verifications, 1)
}
