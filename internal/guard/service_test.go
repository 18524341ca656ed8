package guard_test

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wmguard/internal/blob"
	"wmguard/internal/guard"
	"wmguard/internal/model"
	"wmguard/internal/testutil"
)

// fixture wires a GuardService against an in-memory catalog and blob
// store with the stego oracle, plus two registered users.
type fixture struct {
	svc     *guard.GuardService
	catalog guard.Catalog
	blobs   *blob.MemoryStore
	oracle  *testutil.StegoOracle
	clock   *testutil.StubClock

	owner    *model.User
	verifier *model.User
}

type fixtureOpts struct {
	encryptor guard.Encryptor
	blobs     guard.BlobStore
	oracle    guard.Oracle
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	f := &fixture{
		catalog: testutil.NewTestCatalog(t),
		blobs:   blob.NewMemoryStore(),
		oracle:  testutil.NewStegoOracle(),
		clock:   testutil.FixedClock(),
	}

	var blobs guard.BlobStore = f.blobs
	if opts.blobs != nil {
		blobs = opts.blobs
	}
	var oracle guard.Oracle = f.oracle
	if opts.oracle != nil {
		oracle = opts.oracle
	}

	f.svc = guard.NewGuardService(f.catalog, blobs, oracle, opts.encryptor,
		nil, f.clock, testutil.NewStubTokenGenerator())

	ctx := context.Background()
	f.owner = &model.User{Name: "Owner", Email: "owner@example.com", CreatedAt: f.clock.Now()}
	require.NoError(t, f.catalog.CreateUser(ctx, f.owner))
	f.verifier = &model.User{Name: "Verifier", Email: "verifier@example.com", CreatedAt: f.clock.Now()}
	require.NoError(t, f.catalog.CreateUser(ctx, f.verifier))

	return f
}

// uploadAsset protects a white 10x10 test image for the owner and
// returns the asset together with its stored watermark-bearing copy.
func (f *fixture) uploadAsset(t *testing.T) (*model.Asset, []byte) {
	t.Helper()
	ctx := context.Background()

	src := testutil.SolidPNG(t, 10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	asset, err := f.svc.Upload(ctx, guard.UploadInput{
		Data:      src,
		Filename:  "cat.png",
		Copyright: "owner 2025",
		Algorithm: model.AlgorithmEditGuard,
		OwnerID:   f.owner.ID,
	})
	require.NoError(t, err)

	marked, err := f.blobs.Get(ctx, asset.MarkedPath)
	require.NoError(t, err)
	return asset, marked
}

// flakyBlobs fails Put for paths containing a marker substring.
type flakyBlobs struct {
	*blob.MemoryStore
	failSubstring string
}

func (f *flakyBlobs) Put(ctx context.Context, path string, data []byte) error {
	if f.failSubstring != "" && strings.Contains(path, f.failSubstring) {
		return fmt.Errorf("%w: injected failure at %s", guard.ErrStorageExhausted, path)
	}
	return f.MemoryStore.Put(ctx, path, data)
}

// failingOracle rejects every call.
type failingOracle struct{}

func (failingOracle) Embed(context.Context, []byte, string) (*guard.EmbedResult, error) {
	return nil, fmt.Errorf("model backend offline")
}

func (failingOracle) Extract(context.Context, []byte) (*guard.Extraction, error) {
	return nil, fmt.Errorf("model backend offline")
}
