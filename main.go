package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/fibretrace/internal/api"
	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/db"
	"github.com/banshee-data/fibretrace/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "fibretrace.db", "Path to the sqlite database")
	configPath    = flag.String("config", "", "Path to a tuning config JSON file")
	migrationsDir = flag.String("migrations", "migrations", "Path to the migrations directory")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// openDatabase opens the store and brings a fresh database up to the
// latest schema. Databases from a prior installation are not migrated
// implicitly; the migrate subcommand owns that.
func openDatabase(path, migrationsDir string) (*db.DB, error) {
	database, err := db.NewDB(path)
	if err != nil {
		return nil, err
	}

	dbVersion, dirty, err := database.MigrateVersion(migrationsDir)
	if err != nil {
		database.Close()
		return nil, err
	}
	if dbVersion == 0 && !dirty {
		if err := database.MigrateUp(migrationsDir); err != nil {
			database.Close()
			return nil, err
		}
		return database, nil
	}

	if outstanding, err := database.CheckMigrations(migrationsDir); outstanding || err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("fibretrace %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath, *migrationsDir)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	database, err := openDatabase(*dbPath, *migrationsDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes
		database.AttachAdminRoutes(mux)

		// mount the API handlers
		apiServer := api.NewServer(database, cfg)
		mux.Handle("/api/", apiServer.ServeMux())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("fibretrace listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
