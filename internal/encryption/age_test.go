package encryption

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmguard/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "wmguard.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "wmguard.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	assert.False(t, e.IsConfigured())
	require.NoError(t, e.Setup("test-passphrase"))
	assert.True(t, e.IsConfigured())
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			passphrase := "test-passphrase"
			e := newTestAgeEncryptor(t)
			require.NoError(t, e.Setup(passphrase))

			var encrypted bytes.Buffer
			require.NoError(t, e.Encrypt(bytes.NewReader(tt.input), &encrypted))

			if len(tt.input) > 0 {
				assert.NotEqual(t, tt.input, encrypted.Bytes(), "ciphertext must differ from plaintext")
			}

			dc, err := e.Unlock(passphrase)
			require.NoError(t, err)

			var decrypted bytes.Buffer
			require.NoError(t, dc.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted))
			assert.Equal(t, tt.input, decrypted.Bytes())
		})
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	require.NoError(t, e.Setup("correct-passphrase"))

	_, err := e.Unlock("wrong-passphrase")
	assert.Error(t, err)
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	assert.Error(t, e.Encrypt(bytes.NewReader([]byte("data")), &buf))

	_, err := e.Unlock("passphrase")
	assert.Error(t, err)
}

func TestTestEncryptorRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	assert.True(t, e.IsConfigured())

	var encrypted bytes.Buffer
	require.NoError(t, e.Encrypt(bytes.NewReader([]byte("payload")), &encrypted))
	assert.NotEqual(t, []byte("payload"), encrypted.Bytes())

	dc, err := e.Unlock("anything")
	require.NoError(t, err)

	var decrypted bytes.Buffer
	require.NoError(t, dc.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted))
	assert.Equal(t, []byte("payload"), decrypted.Bytes())
}

func TestTestDecryptionContext_RejectsForeignData(t *testing.T) {
	t.Parallel()

	dc := &TestDecryptionContext{}
	var out bytes.Buffer
	assert.Error(t, dc.Decrypt(bytes.NewReader([]byte("not encrypted data")), &out))
}
