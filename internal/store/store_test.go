// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inkpress/internal/database"
	"inkpress/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "inkpress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "inkpress")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// uniqueEmail returns an address no other test run will use.
func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@store-test.local"
}

// testAccount creates a verified account (and its profile) that is removed
// when the test ends. Deleting the account cascades to everything it owns.
func testAccount(t *testing.T, db *sql.DB, prefix string) (*models.Account, *models.Profile) {
	t.Helper()
	ctx := context.Background()

	a, err := NewAccountStore(db).Create(ctx, uniqueEmail(prefix), "Strong#123", models.AccountFlags{IsVerified: true})
	if err != nil {
		t.Fatalf("create test account: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM accounts WHERE id = $1", a.ID) })

	p, err := NewProfileStore(db).FindByAccount(ctx, a.ID)
	if err != nil || p == nil {
		t.Fatalf("load test profile: %v", err)
	}
	return a, p
}
