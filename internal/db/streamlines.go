package db

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/fibretrace/internal/streamline"
)

// StreamlineRecord pairs a stored streamline with its seed provenance.
type StreamlineRecord struct {
	SeedIndex int                   `json:"seed_index"`
	Seed      r3.Vec                `json:"seed"`
	Length    float64               `json:"length_mm"`
	Line      streamline.Streamline `json:"points"`
}

// InsertStreamlines stores a batch of streamlines for a run in one
// transaction. Point coordinates go through the binary point codec.
func (db *DB) InsertStreamlines(runID string, records []StreamlineRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin streamline insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO streamlines (run_id, seed_index, seed_x, seed_y, seed_z, point_count, length_mm, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare streamline insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		blob, err := streamline.EncodePoints(rec.Line)
		if err != nil {
			return fmt.Errorf("failed to encode streamline for seed %d: %w", rec.SeedIndex, err)
		}
		if _, err := stmt.Exec(
			runID, rec.SeedIndex, rec.Seed.X, rec.Seed.Y, rec.Seed.Z,
			len(rec.Line), rec.Line.Length(), blob,
		); err != nil {
			return fmt.Errorf("failed to insert streamline for seed %d: %w", rec.SeedIndex, err)
		}
	}

	return tx.Commit()
}

// StreamlinesForRun loads all streamlines of a run in seed order.
func (db *DB) StreamlinesForRun(runID string) ([]StreamlineRecord, error) {
	rows, err := db.Query(
		`SELECT seed_index, seed_x, seed_y, seed_z, points
		FROM streamlines WHERE run_id = ? ORDER BY seed_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StreamlineRecord
	for rows.Next() {
		var rec StreamlineRecord
		var blob []byte
		if err := rows.Scan(&rec.SeedIndex, &rec.Seed.X, &rec.Seed.Y, &rec.Seed.Z, &blob); err != nil {
			return nil, err
		}
		rec.Line, err = streamline.DecodePoints(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode streamline for seed %d: %w", rec.SeedIndex, err)
		}
		rec.Length = rec.Line.Length()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// RunStats summarises the streamlines stored for a run.
type RunStats struct {
	Count       int     `json:"count"`
	TotalPoints int     `json:"total_points"`
	MeanLength  float64 `json:"mean_length_mm"`
	MaxLength   float64 `json:"max_length_mm"`
}

// StatsForRun computes summary statistics from the stored per-line
// columns without decoding any point payloads.
func (db *DB) StatsForRun(runID string) (*RunStats, error) {
	var stats RunStats
	err := db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(point_count), 0),
			COALESCE(AVG(length_mm), 0),
			COALESCE(MAX(length_mm), 0)
		FROM streamlines WHERE run_id = ?`, runID).Scan(
		&stats.Count, &stats.TotalPoints, &stats.MeanLength, &stats.MaxLength,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats for run %s: %w", runID, err)
	}
	return &stats, nil
}

// LengthsForRun returns the stored streamline lengths in seed order.
func (db *DB) LengthsForRun(runID string) ([]float64, error) {
	rows, err := db.Query(
		"SELECT length_mm FROM streamlines WHERE run_id = ? ORDER BY seed_index", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lengths []float64
	for rows.Next() {
		var l float64
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		lengths = append(lengths, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lengths, nil
}
