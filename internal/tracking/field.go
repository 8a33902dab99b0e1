package tracking

import (
	"fmt"
	"math/rand"

	"github.com/banshee-data/fibretrace/internal/voxel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// SFField is a spherical-function field: one amplitude per sphere
// direction per voxel, trilinearly interpolated at arbitrary physical
// positions. It answers the two questions propagation asks: which
// directions are admissible from here given the incoming direction, and
// which directions can start a streamline at a seed.
type SFField struct {
	Sphere *Sphere
	Field  *voxel.Field

	// Threshold masks admissible directions during propagation;
	// ThresholdInit gates seed directions and is typically stricter.
	Threshold     float64
	ThresholdInit float64
}

// NewSFField validates that the field's channel count matches the sphere.
func NewSFField(sphere *Sphere, field *voxel.Field, threshold, thresholdInit float64) (*SFField, error) {
	if field.Channels != sphere.Len() {
		return nil, fmt.Errorf("field has %d channels but sphere has %d directions", field.Channels, sphere.Len())
	}
	if threshold < 0 || thresholdInit < 0 {
		return nil, fmt.Errorf("spherical-function thresholds must be non-negative, got %g and %g", threshold, thresholdInit)
	}
	return &SFField{Sphere: sphere, Field: field, Threshold: threshold, ThresholdInit: thresholdInit}, nil
}

// TrackingSF fills buf (length Sphere.Len()) with the spherical function at
// pos, zeroing directions outside the cone around vin or below Threshold.
// It returns the sum of the surviving amplitudes; a zero sum means no
// admissible direction.
func (f *SFField) TrackingSF(buf []float64, pos r3.Vec, vin r3.Vec, cosTheta float64) (float64, error) {
	if err := f.Field.InterpInto(buf, pos); err != nil {
		return 0, err
	}
	for i := range buf {
		if buf[i] < f.Threshold || !f.Sphere.WithinCone(i, vin, cosTheta) {
			buf[i] = 0
		}
	}
	return floats.Sum(buf), nil
}

// InitDirection picks the starting directions for a seed: a direction drawn
// from the spherical function above ThresholdInit, paired with its
// antipode for the backward pass. ok is false when no direction survives
// the init threshold at pos.
func (f *SFField) InitDirection(rng *rand.Rand, pos r3.Vec) (forward, backward Direction, ok bool) {
	buf := make([]float64, f.Sphere.Len())
	if err := f.Field.InterpInto(buf, pos); err != nil {
		return Direction{}, Direction{}, false
	}
	for i := range buf {
		if buf[i] < f.ThresholdInit {
			buf[i] = 0
		}
	}
	if floats.Sum(buf) <= 0 {
		return Direction{}, Direction{}, false
	}
	idx := sampleDistribution(rng, buf)
	forward = f.Sphere.At(idx)
	backward = f.Sphere.Antipode(idx)
	return forward, backward, true
}

// sampleDistribution draws an index from an unnormalised discrete
// distribution. The caller guarantees a positive total.
func sampleDistribution(rng *rand.Rand, weights []float64) int {
	total := floats.Sum(weights)
	r := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	// Float round-off can leave r at the very top of the range; fall back
	// to the last positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}

// argmax returns the index of the largest weight, or -1 if none positive.
func argmax(weights []float64) int {
	best := -1
	bestW := 0.0
	for i, w := range weights {
		if w > bestW {
			bestW = w
			best = i
		}
	}
	return best
}
