package db

import (
	"path/filepath"
	"testing"
)

const testMigrationsDir = "../../migrations"

// testDB opens a fresh database in a temp dir with the schema applied.
func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fibretrace-test.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	return db
}

func TestMigrateUpSetsLatestVersion(t *testing.T) {
	db := testDB(t)

	version, dirty, err := db.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("database is dirty after a clean migration")
	}

	latest, err := GetLatestMigrationVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion: %v", err)
	}
	if version != latest {
		t.Errorf("version = %d, want latest %d", version, latest)
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}
}

func TestMigrateDownDropsTables(t *testing.T) {
	db := testDB(t)
	if err := db.MigrateDown(testMigrationsDir); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('volumes', 'runs', 'streamlines')`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d domain tables after rollback, want 0", count)
	}
}

func TestCheckMigrationsCurrent(t *testing.T) {
	db := testDB(t)
	outstanding, err := db.CheckMigrations(testMigrationsDir)
	if err != nil {
		t.Fatalf("CheckMigrations: %v", err)
	}
	if outstanding {
		t.Error("expected no outstanding migrations on a fresh database")
	}
}

func TestCheckMigrationsOutOfDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	outstanding, err := db.CheckMigrations(testMigrationsDir)
	if err == nil {
		t.Error("expected an error for an unmigrated database")
	}
	if !outstanding {
		t.Error("expected outstanding migrations on an unmigrated database")
	}
}
