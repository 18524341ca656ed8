package encryption

import (
	"fmt"

	"wmguard/internal/config"
	"wmguard/internal/guard"
)

// NewEncryptorFromConfig creates an Encryptor based on the
// configuration type. Type "none" returns nil: pristine copies are
// stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (guard.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
