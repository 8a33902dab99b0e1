// Command track runs atlas-guided streamline tracking as a batch job.
// Input volumes are binary volume containers on disk; results are stored
// in the fibretrace database so the daemon can serve reports over them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/db"
	"github.com/banshee-data/fibretrace/internal/tracking"
	"github.com/banshee-data/fibretrace/internal/voxel"
)

var (
	atlasPath     = flag.String("atlas", "", "Path to the tissue atlas container (required)")
	fieldPath     = flag.String("field", "", "Path to the spherical-function field container (required)")
	maskPath      = flag.String("mask", "", "Path to the seed mask container (required)")
	dbPath        = flag.String("db", "fibretrace.db", "Path to the sqlite database")
	migrationsDir = flag.String("migrations", "migrations", "Path to the migrations directory")
	configPath    = flag.String("config", "", "Path to a tuning config JSON file")
	modeName      = flag.String("mode", "probabilistic", "Tracking mode: probabilistic or deterministic")
	seedCount     = flag.Int("seeds", 1000, "Number of seeds to track")
	runName       = flag.String("name", "", "Name prefix for the stored volumes (defaults to file basenames)")
)

func main() {
	flag.Parse()

	if *atlasPath == "" || *fieldPath == "" || *maskPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *seedCount < 1 {
		log.Fatalf("seed count must be positive, got %d", *seedCount)
	}
	mode, err := tracking.ParseMode(*modeName)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	atlas, err := readVolume(*atlasPath)
	if err != nil {
		log.Fatalf("Failed to load atlas: %v", err)
	}
	field, err := readField(*fieldPath)
	if err != nil {
		log.Fatalf("Failed to load field: %v", err)
	}
	mask, err := readVolume(*maskPath)
	if err != nil {
		log.Fatalf("Failed to load seed mask: %v", err)
	}

	sphere, err := tracking.SphereForDirections(field.Channels)
	if err != nil {
		log.Fatal(err)
	}
	sf, err := tracking.NewSFField(sphere, field, cfg.GetSfThreshold(), cfg.GetSfThresholdInit())
	if err != nil {
		log.Fatal(err)
	}
	tracker, err := tracking.NewTracker(sf, atlas, cfg, mode)
	if err != nil {
		log.Fatal(err)
	}
	seeder, err := tracking.NewSeeder(mask, cfg.GetRandSeed())
	if err != nil {
		log.Fatal(err)
	}

	engine := &tracking.Engine{
		Tracker:          tracker,
		Seeder:           seeder,
		Workers:          cfg.GetWorkers(),
		Compress:         cfg.GetCompress(),
		CompressionError: cfg.GetCompressionError(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, err := engine.Run(ctx, *seedCount)
	if err != nil {
		log.Fatalf("Tracking failed: %v", err)
	}
	log.Printf("tracked %d seeds in %v, %d streamlines accepted",
		*seedCount, time.Since(start).Round(time.Millisecond), len(results))

	runID, err := storeRun(atlas, field, mask, cfg, mode, results)
	if err != nil {
		log.Fatalf("Failed to store run: %v", err)
	}
	fmt.Println(runID)
}

func readVolume(path string) (*voxel.Volume, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return voxel.DecodeVolume(blob)
}

func readField(path string) (*voxel.Field, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return voxel.DecodeField(blob)
}

// storeRun persists the input volumes, the run record and its
// streamlines, and returns the run ID.
func storeRun(atlas *voxel.Volume, field *voxel.Field, mask *voxel.Volume,
	cfg *config.TuningConfig, mode tracking.Mode, results []tracking.Result) (string, error) {

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return "", err
	}
	defer database.Close()
	if err := database.MigrateUp(*migrationsDir); err != nil {
		return "", err
	}

	prefix := *runName
	if prefix == "" {
		prefix = "track"
	}
	atlasID, err := database.InsertVolume(prefix+"-atlas", db.VolumeKindAtlas, atlas)
	if err != nil {
		return "", err
	}
	fieldID, err := database.InsertField(prefix+"-field", db.VolumeKindField, field)
	if err != nil {
		return "", err
	}
	maskID, err := database.InsertVolume(prefix+"-mask", db.VolumeKindMask, mask)
	if err != nil {
		return "", err
	}

	params, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	runID, err := database.CreateRun(atlasID, fieldID, maskID, mode.String(), *seedCount, string(params))
	if err != nil {
		return "", err
	}
	if err := database.MarkRunStarted(runID); err != nil {
		return "", err
	}

	records := make([]db.StreamlineRecord, len(results))
	for i, res := range results {
		records[i] = db.StreamlineRecord{
			SeedIndex: res.SeedIndex,
			Seed:      res.Seed,
			Length:    res.Line.Length(),
			Line:      res.Line,
		}
	}
	if err := database.InsertStreamlines(runID, records); err != nil {
		return "", err
	}
	if err := database.MarkRunDone(runID); err != nil {
		return "", err
	}
	return runID, nil
}
