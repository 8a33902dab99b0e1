package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/fibretrace/internal/voxel"
)

// Volume kinds stored in the volumes table.
const (
	VolumeKindAtlas   = "atlas"
	VolumeKindField   = "field"
	VolumeKindMask    = "mask"
	VolumeKindDensity = "density"
)

// VolumeRecord describes a stored volume without its sample payload.
type VolumeRecord struct {
	VolumeID  string    `json:"volume_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	DimX      int       `json:"dim_x"`
	DimY      int       `json:"dim_y"`
	DimZ      int       `json:"dim_z"`
	ResX      float64   `json:"res_x"`
	ResY      float64   `json:"res_y"`
	ResZ      float64   `json:"res_z"`
	Channels  int       `json:"channels"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertField stores a multi-channel field under a fresh volume ID.
func (db *DB) InsertField(name, kind string, f *voxel.Field) (string, error) {
	blob, err := voxel.EncodeField(f)
	if err != nil {
		return "", fmt.Errorf("failed to encode volume %q: %w", name, err)
	}
	id := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO volumes (
			volume_id, name, kind, dim_x, dim_y, dim_z,
			res_x, res_y, res_z, channels, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, kind,
		int(f.Grid.Dim.X), int(f.Grid.Dim.Y), int(f.Grid.Dim.Z),
		f.Grid.Res.X, f.Grid.Res.Y, f.Grid.Res.Z,
		f.Channels, blob,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert volume %q: %w", name, err)
	}
	return id, nil
}

// InsertVolume stores a scalar volume as a one-channel field.
func (db *DB) InsertVolume(name, kind string, v *voxel.Volume) (string, error) {
	return db.InsertField(name, kind, &voxel.Field{Grid: v.Grid, Channels: 1, Data: v.Data})
}

// GetField loads a stored volume and decodes its payload.
func (db *DB) GetField(volumeID string) (*voxel.Field, error) {
	var blob []byte
	err := db.QueryRow("SELECT data FROM volumes WHERE volume_id = ?", volumeID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("volume %s not found", volumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load volume %s: %w", volumeID, err)
	}
	f, err := voxel.DecodeField(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode volume %s: %w", volumeID, err)
	}
	return f, nil
}

// GetVolume loads a stored scalar volume.
func (db *DB) GetVolume(volumeID string) (*voxel.Volume, error) {
	f, err := db.GetField(volumeID)
	if err != nil {
		return nil, err
	}
	if f.Channels != 1 {
		return nil, fmt.Errorf("volume %s has %d channels, expected a scalar volume", volumeID, f.Channels)
	}
	return &voxel.Volume{Grid: f.Grid, Data: f.Data}, nil
}

// GetVolumeRecord returns a volume's metadata without decoding the payload.
func (db *DB) GetVolumeRecord(volumeID string) (*VolumeRecord, error) {
	row := db.QueryRow(
		`SELECT volume_id, name, kind, dim_x, dim_y, dim_z,
			res_x, res_y, res_z, channels, created_at
		FROM volumes WHERE volume_id = ?`, volumeID)
	rec, err := scanVolumeRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("volume %s not found", volumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load volume record %s: %w", volumeID, err)
	}
	return rec, nil
}

// ListVolumes returns metadata for all stored volumes, newest first.
// An empty kind matches all kinds.
func (db *DB) ListVolumes(kind string) ([]VolumeRecord, error) {
	query := `SELECT volume_id, name, kind, dim_x, dim_y, dim_z,
		res_x, res_y, res_z, channels, created_at FROM volumes`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []VolumeRecord
	for rows.Next() {
		rec, err := scanVolumeRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVolumeRecord(row rowScanner) (*VolumeRecord, error) {
	var rec VolumeRecord
	err := row.Scan(
		&rec.VolumeID, &rec.Name, &rec.Kind,
		&rec.DimX, &rec.DimY, &rec.DimZ,
		&rec.ResX, &rec.ResY, &rec.ResZ,
		&rec.Channels, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
