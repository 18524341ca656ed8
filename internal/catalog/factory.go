package catalog

import (
	"fmt"
	"path/filepath"

	"wmguard/internal/catalog/migrations"
	"wmguard/internal/config"
	"wmguard/internal/guard"
)

// NewCatalogFromConfig opens a catalog based on the config type and
// brings its schema up to date.
func NewCatalogFromConfig(cfg config.CatalogConfig) (guard.Catalog, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		path = filepath.Join(cfg.DataDir, "wmguard.db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}
	return NewSQLiteCatalog(db), nil
}
