package guard

import (
	"context"

	"wmguard/internal/model"
)

// Catalog is the durable record of protected assets and verification
// events. Identifier assignment is the catalog's job: monotonic,
// unique, never reused.
type Catalog interface {
	// BeginAsset inserts a provisional asset row inside an open
	// transaction and returns a handle carrying the assigned
	// identifier. The row becomes visible to other readers only on
	// Commit; Rollback removes it without trace. Exactly one of
	// Commit/Rollback must be called.
	BeginAsset(ctx context.Context, asset *model.Asset) (AssetCreation, error)

	// FindAssetByID returns nil, nil when the identifier is unknown.
	FindAssetByID(ctx context.Context, id int64) (*model.Asset, error)

	// ListAssetsByOwner returns an owner's assets, newest first.
	ListAssetsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*model.Asset, error)

	// CountAssetsByOwner returns how many assets an owner has protected.
	CountAssetsByOwner(ctx context.Context, ownerID int64) (int64, error)

	// CreateVerificationRecord persists one verification attempt and
	// fills in the record's catalog identifier.
	CreateVerificationRecord(ctx context.Context, record *model.VerificationRecord) error

	// FindVerificationByToken returns nil, nil when the correlation
	// token is unknown.
	FindVerificationByToken(ctx context.Context, token string) (*model.VerificationRecord, error)

	// ListVerificationsByVerifier returns a party's verification
	// history, newest first.
	ListVerificationsByVerifier(ctx context.Context, verifierID int64, limit, offset int) ([]*model.VerificationRecord, error)

	// CountVerificationsByVerifier returns how many verifications a
	// party has run.
	CountVerificationsByVerifier(ctx context.Context, verifierID int64) (int64, error)

	// AttachReport sets the reporter fields on a record. It succeeds at
	// most once per record, only for the verifying party, and only when
	// the record registered a detected tamper.
	AttachReport(ctx context.Context, token string, verifierID int64, link, text string) error

	// FindUserByID returns nil, nil when the user is unknown.
	FindUserByID(ctx context.Context, id int64) (*model.User, error)

	// CreateUser registers a user and fills in the assigned identifier.
	CreateUser(ctx context.Context, user *model.User) error

	// Close closes the underlying store.
	Close() error
}

// AssetCreation is the open transaction handle for one upload attempt.
type AssetCreation interface {
	// Asset returns the provisional row with its assigned identifier.
	Asset() *model.Asset

	// Commit records the two blob paths and makes the row durable.
	Commit(ctx context.Context, pristinePath, markedPath string) error

	// Rollback removes the provisional row. Safe to call after a failed
	// Commit; a no-op after a successful one.
	Rollback() error
}
