package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("/var/lib/wmguard")

	assert.Equal(t, "/var/lib/wmguard", cfg.BaseDir)
	assert.Equal(t, "sqlite", cfg.Catalog.Type)
	assert.Equal(t, filepath.Join("/var/lib/wmguard", "data"), cfg.Catalog.DataDir)
	assert.Equal(t, "filesystem", cfg.BlobStore.Type)
	assert.Equal(t, 30*time.Second, cfg.Oracle.TimeoutOrDefault())
	assert.Equal(t, "age", cfg.Encryption.Type)
}

func TestReadWriteRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("/tmp/wm")
	cfg.BlobStore = BlobStoreConfig{
		Type:     "s3",
		S3Bucket: "wm-assets",
		S3Prefix: "prod",
		S3Region: "eu-central-1",
	}
	cfg.Oracle.Timeout = duration{45 * time.Second}

	var buf bytes.Buffer
	m := &Manager{}
	require.NoError(t, m.Write(&buf, cfg))

	got, err := m.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestReadTaggedUnion(t *testing.T) {
	t.Parallel()

	raw := `
base_dir = "/srv/wmguard"

[catalog]
type = "memory"

[blobstore]
type = "s3"
s3_bucket = "assets"
s3_endpoint = "http://localhost:9000"

[oracle]
base_url = "http://oracle:8500"
timeout = "2m"
extract_threshold = 0.7

[encryption]
type = "none"
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Catalog.Type)
	assert.Equal(t, "s3", cfg.BlobStore.Type)
	assert.Equal(t, "http://localhost:9000", cfg.BlobStore.S3Endpoint)
	assert.Equal(t, 2*time.Minute, cfg.Oracle.TimeoutOrDefault())
	assert.Equal(t, 0.7, cfg.Oracle.ExtractThreshold)
	assert.Equal(t, "none", cfg.Encryption.Type)
}

func TestTimeoutDefault(t *testing.T) {
	t.Parallel()

	var o OracleConfig
	assert.Equal(t, 30*time.Second, o.TimeoutOrDefault())
}

func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := NewConfig(dir)

	require.NoError(t, Init(path, cfg))
	assert.Error(t, Init(path, cfg))

	// Save always overwrites.
	cfg.Oracle.BaseURL = "http://changed:8500"
	require.NoError(t, Save(path, cfg))

	got, err := ReadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://changed:8500", got.Oracle.BaseURL)
}

func TestReadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
