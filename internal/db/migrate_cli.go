package db

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath, migrationsDir string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	database, err := NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(migrationsDir); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Print("Migrations applied")

	case "down":
		if err := database.MigrateDown(migrationsDir); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Print("Rolled back one migration")

	case "status":
		version, dirty, err := database.MigrateVersion(migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		latest, err := GetLatestMigrationVersion(migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read latest migration version: %v", err)
		}
		fmt.Printf("Database version: %d (dirty: %v)\nLatest available: %d\n", version, dirty, latest)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: fibretrace migrate force <version_number>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version number %q: %v", args[1], err)
		}
		if err := database.MigrateForce(migrationsDir, version); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		log.Printf("Forced migration version to %d", version)

	default:
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: fibretrace migrate <command>

Commands:
  up       Apply all pending migrations
  down     Roll back the most recent migration
  status   Show current and latest migration versions
  force N  Force the migration version to N (recovery only)`)
}
