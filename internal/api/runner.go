package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/db"
	"github.com/banshee-data/fibretrace/internal/tracking"
)

// ExecuteRun loads a pending run's volumes, tracks its seeds and stores
// the accepted streamlines. The run's status reflects the outcome.
func (s *Server) ExecuteRun(ctx context.Context, runID string) error {
	run, err := s.db.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Status != db.RunStatusPending {
		return fmt.Errorf("run %s is %s, only pending runs can execute", runID, run.Status)
	}

	if err := s.db.MarkRunStarted(runID); err != nil {
		return err
	}

	results, err := s.trackRun(ctx, run)
	if err != nil {
		if dbErr := s.db.MarkRunFailed(runID, err); dbErr != nil {
			log.Printf("failed to record run %s failure: %v", runID, dbErr)
		}
		return err
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
	if err := s.db.InsertStreamlines(runID, records); err != nil {
		if dbErr := s.db.MarkRunFailed(runID, err); dbErr != nil {
			log.Printf("failed to record run %s failure: %v", runID, dbErr)
		}
		return err
	}

	return s.db.MarkRunDone(runID)
}

// trackRun assembles the tracking engine for a run and executes it.
func (s *Server) trackRun(ctx context.Context, run *db.Run) ([]tracking.Result, error) {
	start := time.Now()

	cfg := config.EmptyTuningConfig()
	if run.Params != "" {
		if err := json.Unmarshal([]byte(run.Params), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse run params: %w", err)
		}
	}

	mode, err := tracking.ParseMode(run.Mode)
	if err != nil {
		return nil, err
	}

	atlas, err := s.db.GetVolume(run.AtlasID)
	if err != nil {
		return nil, fmt.Errorf("failed to load atlas: %w", err)
	}
	field, err := s.db.GetField(run.FieldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}
	mask, err := s.db.GetVolume(run.MaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed mask: %w", err)
	}

	sphere, err := tracking.SphereForDirections(field.Channels)
	if err != nil {
		return nil, err
	}
	sf, err := tracking.NewSFField(sphere, field, cfg.GetSfThreshold(), cfg.GetSfThresholdInit())
	if err != nil {
		return nil, err
	}
	tracker, err := tracking.NewTracker(sf, atlas, cfg, mode)
	if err != nil {
		return nil, err
	}
	seeder, err := tracking.NewSeeder(mask, cfg.GetRandSeed())
	if err != nil {
		return nil, err
	}

	engine := &tracking.Engine{
		Tracker:          tracker,
		Seeder:           seeder,
		Workers:          cfg.GetWorkers(),
		Compress:         cfg.GetCompress(),
		CompressionError: cfg.GetCompressionError(),
	}

	results, err := engine.Run(ctx, run.SeedCount)
	if err != nil {
		return nil, err
	}

	log.Printf("run %s: %d streamlines from %d seeds in %v",
		run.RunID, len(results), run.SeedCount, time.Since(start).Round(time.Millisecond))
	return results, nil
}
