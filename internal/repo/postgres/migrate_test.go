package postgres

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	return url
}

func TestRunMigrationsCreatesSchema(t *testing.T) {
	dbURL := testDatabaseURL(t)

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("database not reachable: %v", err)
	}

	if _, err := db.Exec(`
DROP TABLE IF EXISTS messages CASCADE;
DROP TABLE IF EXISTS rooms CASCADE;
DROP TABLE IF EXISTS reactions CASCADE;
DROP TABLE IF EXISTS posts CASCADE;
DROP TABLE IF EXISTS schema_migrations CASCADE;
`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("second run must be a no-op: %v", err)
	}

	for _, table := range []string{"posts", "reactions", "rooms", "messages"} {
		var exists bool
		if err := db.QueryRow(`
SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)
`, table).Scan(&exists); err != nil {
			t.Fatalf("lookup table %s: %v", table, err)
		}
		if !exists {
			t.Fatalf("table %s was not created", table)
		}
	}

	if _, err := db.Exec(`INSERT INTO rooms (user_a_id, user_b_id) VALUES (5, 3)`); err == nil {
		t.Fatalf("expected non-canonical room pair to be rejected")
	}
}
