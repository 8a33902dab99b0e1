package tracking

import (
	"math"
	"testing"

	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/voxel"
	"gonum.org/v1/gonum/spatial/r3"
)

// corridorPhantom builds a synthetic volume pair for tracking tests: a
// white-matter corridor along x with grey-matter caps at both ends, and a
// spherical-function field strongly peaked along the ±x directions.
//
// The corridor is the whole y/z cross-section, so wandering lines never
// leave labelled tissue; they either march to a cap or exhaust the point
// budget.
func corridorPhantom(t *testing.T, sphere *Sphere) (*voxel.Volume, *voxel.Field) {
	t.Helper()

	grid := voxel.MustGrid(r3.Vec{X: 24, Y: 5, Z: 5}, r3.Vec{X: 1, Y: 1, Z: 1})
	atlas := voxel.NewVolume(grid)
	for x := 0; x < 24; x++ {
		label := float64(LabelWhiteMatter)
		if x < 2 || x >= 22 {
			label = float64(LabelGreyMatter)
		}
		for y := 0; y < 5; y++ {
			for z := 0; z < 5; z++ {
				atlas.Set(x, y, z, label)
			}
		}
	}

	field, err := voxel.NewField(grid, sphere.Len())
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	// Amplitude falls off sharply away from the x axis; the exact ±x
	// directions (present on any subdivided sphere) are the unique maxima.
	amps := make([]float64, sphere.Len())
	for i, d := range sphere.Dirs {
		amps[i] = math.Pow(math.Abs(d.X), 8)
	}
	for x := 0; x < 24; x++ {
		for y := 0; y < 5; y++ {
			for z := 0; z < 5; z++ {
				copy(field.VoxelSlice(x, y, z), amps)
			}
		}
	}
	return atlas, field
}

// phantomConfig returns tuning that accepts the corridor's line lengths.
func phantomConfig(t *testing.T) *config.TuningConfig {
	t.Helper()
	cfg := config.EmptyTuningConfig()
	minPts, maxPts := 5, 500
	sfThr, sfInit := 0.01, 0.05
	cfg.MinPoints = &minPts
	cfg.MaxPoints = &maxPts
	cfg.SfThreshold = &sfThr
	cfg.SfThresholdInit = &sfInit
	return cfg
}

func phantomTracker(t *testing.T, mode Mode) *Tracker {
	t.Helper()
	sphere := MustSphere(1)
	atlas, field := corridorPhantom(t, sphere)
	cfg := phantomConfig(t)

	sf, err := NewSFField(sphere, field, cfg.GetSfThreshold(), cfg.GetSfThresholdInit())
	if err != nil {
		t.Fatalf("NewSFField: %v", err)
	}
	tracker, err := NewTracker(sf, atlas, cfg, mode)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tracker
}
