package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return db
}

func TestApplyOrderAndIdempotence(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_column.sql": {Data: []byte(`ALTER TABLE things ADD COLUMN note TEXT;`)},
		"0001_create.sql":     {Data: []byte(`CREATE TABLE things (id INTEGER PRIMARY KEY);`)},
		"readme.md":           {Data: []byte(`not a migration`)},
		"0003_empty.sql":      {Data: []byte("  \n")},
	}

	db := openDB(t)
	if err := Apply(db, fsys); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// The ALTER in 0002 only works if 0001 ran first despite map order.
	if _, err := db.Exec(`INSERT INTO things (id, note) VALUES (1, 'x')`); err != nil {
		t.Fatalf("schema incomplete: %v", err)
	}

	// A second pass must not re-run anything.
	if err := Apply(db, fsys); err != nil {
		t.Fatalf("reapply: %v", err)
	}

	var applied int
	row := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`)
	if err := row.Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("recorded %d migrations, want 2 (empty file skipped)", applied)
	}
}

func TestApplyBadSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_bad.sql": {Data: []byte(`CREATE TABLE`)},
	}
	db := openDB(t)
	if err := Apply(db, fsys); err == nil {
		t.Fatalf("expected error for invalid SQL")
	}
}

func TestApplyNilDB(t *testing.T) {
	if err := Apply(nil, fstest.MapFS{}); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
