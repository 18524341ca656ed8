// Package app is the application layer between the CLI and the guard
// service: it constructs all dependencies from config, exposes
// high-level operations that accept raw file paths, and manages
// resource lifecycles on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wmguard/internal/blob"
	"wmguard/internal/catalog"
	"wmguard/internal/config"
	"wmguard/internal/encryption"
	"wmguard/internal/guard"
	"wmguard/internal/model"
	"wmguard/internal/oracle"
)

// GuardApp wires the catalog, blob store, oracle client and encryptor
// into a GuardService. The caller must call Close when done.
type GuardApp struct {
	cfg       *config.Config
	catalog   guard.Catalog
	blobs     guard.BlobStore
	encryptor guard.Encryptor
	service   *guard.GuardService
	policy    guard.NotificationPolicy
	logger    guard.Logger
	logFile   *os.File
}

// NewGuardApp creates a fully wired GuardApp from the given config.
func NewGuardApp(ctx context.Context, cfg *config.Config) (*GuardApp, error) {
	cat, err := catalog.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	blobs, err := blob.NewBlobStoreFromConfig(ctx, cfg.BlobStore)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	svc := guard.NewGuardService(cat, blobs, oracle.NewClient(cfg.Oracle), enc,
		logger, guard.RealClock{}, guard.UUIDGenerator{})

	return &GuardApp{
		cfg:       cfg,
		catalog:   cat,
		blobs:     blobs,
		encryptor: enc,
		service:   svc,
		policy:    guard.DefaultNotificationPolicy{},
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// RegisterUser adds a party to the directory so relations and
// notifications can resolve against it.
func (a *GuardApp) RegisterUser(ctx context.Context, name, email string) (*model.User, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("name and email are required")
	}
	u := &model.User{Name: name, Email: email, CreatedAt: time.Now().UTC()}
	if err := a.catalog.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Protect reads an image from disk and runs it through the upload
// pipeline.
func (a *GuardApp) Protect(ctx context.Context, rawPath, copyright, algorithm string, ownerID int64) (*model.Asset, error) {
	algo, err := model.ParseProtectionAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return a.service.Upload(ctx, guard.UploadInput{
		Data:      data,
		Filename:  filepath.Base(rawPath),
		Copyright: copyright,
		Algorithm: algo,
		OwnerID:   ownerID,
	})
}

// Verify reads an image from disk, runs the verification pipeline, and
// applies the notification policy to the outcome. Delivery is the
// caller's concern; the decision is logged here.
func (a *GuardApp) Verify(ctx context.Context, rawPath, algorithm string, verifierID int64) (*guard.Outcome, guard.Notification, error) {
	algo, err := model.ParseProtectionAlgorithm(algorithm)
	if err != nil {
		return nil, guard.Notification{}, err
	}
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, guard.Notification{}, fmt.Errorf("reading image: %w", err)
	}

	outcome, err := a.service.Verify(ctx, guard.VerifyInput{
		Data:       data,
		Filename:   filepath.Base(rawPath),
		Algorithm:  algo,
		VerifierID: verifierID,
	})
	if err != nil {
		return nil, guard.Notification{}, err
	}

	n := a.policy.Decide(outcome)
	if n.Kind != guard.NotifyNone {
		a.logger.Info("notification decided",
			"kind", n.Kind, "token", n.Token, "contact", n.OwnerContact, "ratio", n.Ratio)
	}
	return outcome, n, nil
}

// Export writes an asset's pristine copy to outPath, decrypting it with
// the passphrase when encryption is configured.
func (a *GuardApp) Export(ctx context.Context, assetID int64, outPath, passphrase string) error {
	var dc guard.DecryptionContext
	if a.encryptor != nil && a.encryptor.IsConfigured() {
		var err error
		dc, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking key: %w", err)
		}
	}
	data, err := a.service.ExportPristine(ctx, assetID, dc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// Record returns one verification record by correlation token.
func (a *GuardApp) Record(ctx context.Context, token string) (*model.VerificationRecord, error) {
	return a.service.GetRecord(ctx, token)
}

// Report attaches a forgery sighting to a verification record.
func (a *GuardApp) Report(ctx context.Context, token string, verifierID int64, link, text string) error {
	return a.service.AttachReport(ctx, token, verifierID, link, text)
}

// History returns a party's upload and verification history.
func (a *GuardApp) History(ctx context.Context, userID int64, limit, offset int) (*guard.History, error) {
	return a.service.GetHistory(ctx, userID, limit, offset)
}

// EncryptionConfigured reports whether pristine copies are stored
// encrypted, so the CLI knows to prompt for a passphrase.
func (a *GuardApp) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// SetupKeys generates the encryption key pair protected by the
// passphrase.
func (a *GuardApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("key material already exists")
	}
	return a.encryptor.Setup(passphrase)
}

// Close releases the catalog connection and the log file.
func (a *GuardApp) Close() error {
	var firstErr error
	if err := a.catalog.Close(); err != nil {
		firstErr = err
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
