package guard

import "io"

// Encryptor protects pristine blob copies at rest. The watermark-
// bearing copy stays plain: verification reads it on every submission.
type Encryptor interface {
	// Setup generates and stores the key material, protecting the
	// secret half with the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock derives a DecryptionContext from the passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material is in place.
	IsConfigured() bool
}

// DecryptionContext holds unlocked key material for reading pristine
// copies back out of the blob store.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
