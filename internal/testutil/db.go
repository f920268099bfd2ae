package testutil

import (
	"database/sql"
	"testing"

	"github.com/vrsandeep/techmail/internal/assets"
	"github.com/vrsandeep/techmail/internal/db"
	"github.com/vrsandeep/techmail/internal/logger"
)

// SetupTestDB creates an in-memory SQLite database and applies all migrations.
// It returns the database connection, ready for use in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use in-memory database for testing to ensure tests are fast and isolated.
	database, err := db.InitDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database, assets.MigrationsFS, logger.Discard()); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}
