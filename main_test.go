package main

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/fibretrace/internal/testutil"
)

func TestOpenDatabaseMigratesFreshDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")

	database, err := openDatabase(path, "migrations")
	testutil.AssertNoError(t, err)
	defer database.Close()

	version, dirty, err := database.MigrateVersion("migrations")
	testutil.AssertNoError(t, err)
	if version == 0 || dirty {
		t.Errorf("fresh database at version %d (dirty %v), want migrated", version, dirty)
	}
}

func TestOpenDatabaseAcceptsMigratedDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.db")

	first, err := openDatabase(path, "migrations")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, first.Close())

	second, err := openDatabase(path, "migrations")
	testutil.AssertNoError(t, err)
	second.Close()
}

func TestOpenDatabaseBadMigrationsDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.db")
	_, err := openDatabase(path, filepath.Join(t.TempDir(), "no-migrations"))
	testutil.AssertError(t, err)
}
