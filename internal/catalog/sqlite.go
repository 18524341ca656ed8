// Package catalog implements the durable asset catalog on SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wmguard/internal/guard"
	"wmguard/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements guard.Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

var _ guard.Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog wraps an already-configured database connection.
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the catalog relies on. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// Asset operations

func (c *SQLiteCatalog) BeginAsset(ctx context.Context, asset *model.Asset) (guard.AssetCreation, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO assets (owner_id, filename, copyright, algorithm, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		asset.OwnerID, asset.Filename, asset.Copyright, string(asset.Algorithm), asset.CreatedAt)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("inserting asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("reading assigned identifier: %w", err)
	}
	asset.ID = id

	return &assetCreation{tx: tx, asset: asset}, nil
}

// assetCreation holds the open transaction for one upload attempt.
type assetCreation struct {
	tx    *sql.Tx
	asset *model.Asset
	done  bool
}

func (a *assetCreation) Asset() *model.Asset { return a.asset }

func (a *assetCreation) Commit(ctx context.Context, pristinePath, markedPath string) error {
	if a.done {
		return fmt.Errorf("asset creation already finished")
	}
	_, err := a.tx.ExecContext(ctx,
		`UPDATE assets SET pristine_path = ?, marked_path = ? WHERE id = ?`,
		pristinePath, markedPath, a.asset.ID)
	if err != nil {
		return fmt.Errorf("recording blob paths: %w", err)
	}
	if err := a.tx.Commit(); err != nil {
		return fmt.Errorf("committing asset: %w", err)
	}
	a.done = true
	a.asset.PristinePath = pristinePath
	a.asset.MarkedPath = markedPath
	return nil
}

func (a *assetCreation) Rollback() error {
	if a.done {
		return nil
	}
	a.done = true
	if err := a.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back asset: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) FindAssetByID(ctx context.Context, id int64) (*model.Asset, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, owner_id, filename, copyright, algorithm, pristine_path, marked_path, created_at
		 FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding asset by id: %w", err)
	}
	return asset, nil
}

func (c *SQLiteCatalog) ListAssetsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*model.Asset, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, owner_id, filename, copyright, algorithm, pristine_path, marked_path, created_at
		 FROM assets WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []*model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (c *SQLiteCatalog) CountAssetsByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting assets: %w", err)
	}
	return n, nil
}

// Verification record operations

func (c *SQLiteCatalog) CreateVerificationRecord(ctx context.Context, record *model.VerificationRecord) error {
	var assetID sql.NullInt64
	if record.AssetID != nil {
		assetID = sql.NullInt64{Int64: *record.AssetID, Valid: true}
	}
	var ratio sql.NullFloat64
	if record.Ratio != nil {
		ratio = sql.NullFloat64{Float64: *record.Ratio, Valid: true}
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO verification_records
		 (token, verifier_id, filename, marked, asset_id, ratio, algorithm, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Token, record.VerifierID, record.Filename, record.Marked,
		assetID, ratio, string(record.Algorithm), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting verification record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading assigned identifier: %w", err)
	}
	record.ID = id
	return nil
}

func (c *SQLiteCatalog) FindVerificationByToken(ctx context.Context, token string) (*model.VerificationRecord, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, token, verifier_id, filename, marked, asset_id, ratio, algorithm,
		        report_link, report_text, reported_at, created_at
		 FROM verification_records WHERE token = ?`, token)
	record, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding record by token: %w", err)
	}
	return record, nil
}

func (c *SQLiteCatalog) ListVerificationsByVerifier(ctx context.Context, verifierID int64, limit, offset int) ([]*model.VerificationRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, token, verifier_id, filename, marked, asset_id, ratio, algorithm,
		        report_link, report_text, reported_at, created_at
		 FROM verification_records WHERE verifier_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		verifierID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing verification records: %w", err)
	}
	defer rows.Close()

	var records []*model.VerificationRecord
	for rows.Next() {
		record, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning verification record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (c *SQLiteCatalog) CountVerificationsByVerifier(ctx context.Context, verifierID int64) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_records WHERE verifier_id = ?`, verifierID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting verification records: %w", err)
	}
	return n, nil
}

func (c *SQLiteCatalog) AttachReport(ctx context.Context, token string, verifierID int64, link, text string) error {
	record, err := c.FindVerificationByToken(ctx, token)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: token %s", guard.ErrRecordNotFound, token)
	}

	// Once per record, verifying party only, detected tamper only. The
	// WHERE clause re-checks everything so concurrent attempts cannot
	// both win.
	res, err := c.db.ExecContext(ctx,
		`UPDATE verification_records
		 SET report_link = ?, report_text = ?, reported_at = CURRENT_TIMESTAMP
		 WHERE token = ? AND verifier_id = ? AND marked = 1
		   AND ratio > 0 AND reported_at IS NULL`,
		link, text, token, verifierID)
	if err != nil {
		return fmt.Errorf("attaching report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking report update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: token %s", guard.ErrReportRejected, token)
	}
	return nil
}

// User operations

func (c *SQLiteCatalog) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

func (c *SQLiteCatalog) CreateUser(ctx context.Context, user *model.User) error {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`,
		user.Name, user.Email, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading assigned identifier: %w", err)
	}
	user.ID = id
	return nil
}

func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (*model.Asset, error) {
	var (
		a    model.Asset
		algo string
	)
	if err := s.Scan(&a.ID, &a.OwnerID, &a.Filename, &a.Copyright, &algo,
		&a.PristinePath, &a.MarkedPath, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Algorithm = model.ProtectionAlgorithm(algo)
	return &a, nil
}

func scanVerification(s scanner) (*model.VerificationRecord, error) {
	var (
		r          model.VerificationRecord
		algo       string
		assetID    sql.NullInt64
		ratio      sql.NullFloat64
		reportedAt sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.Token, &r.VerifierID, &r.Filename, &r.Marked,
		&assetID, &ratio, &algo, &r.ReportLink, &r.ReportText,
		&reportedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Algorithm = model.ProtectionAlgorithm(algo)
	if assetID.Valid {
		r.AssetID = &assetID.Int64
	}
	if ratio.Valid {
		r.Ratio = &ratio.Float64
	}
	if reportedAt.Valid {
		r.ReportedAt = &reportedAt.Time
	}
	return &r, nil
}
