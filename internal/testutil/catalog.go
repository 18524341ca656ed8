package testutil

import (
	"testing"

	"wmguard/internal/catalog"
	"wmguard/internal/catalog/migrations"
	"wmguard/internal/guard"
)

// NewTestCatalog creates an in-memory SQLite catalog with the schema
// applied. The catalog is closed when the test completes.
func NewTestCatalog(t *testing.T) guard.Catalog {
	t.Helper()

	db, err := catalog.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	c := catalog.NewSQLiteCatalog(db)
	t.Cleanup(func() {
		c.Close()
	})

	return c
}
