package tracking

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/streamline"
	"github.com/banshee-data/fibretrace/internal/voxel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects how the tracker chooses among admissible directions.
type Mode int

const (
	// Probabilistic draws the next direction from the spherical function
	// treated as a discrete distribution.
	Probabilistic Mode = iota
	// Deterministic always follows the strongest admissible direction.
	Deterministic
)

func (m Mode) String() string {
	if m == Deterministic {
		return "deterministic"
	}
	return "probabilistic"
}

// ParseMode maps the wire names used by the API and CLI onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "probabilistic":
		return Probabilistic, nil
	case "deterministic":
		return Deterministic, nil
	}
	return 0, fmt.Errorf("unknown tracking mode %q", s)
}

// Params are the acceptance rules applied to finished streamlines.
type Params struct {
	MinPoints        int
	MaxPoints        int
	KeepSinglePoints bool
	SingleDirection  bool
}

// Tracker propagates streamlines through an atlas-labelled volume guided
// by a spherical-function field. It is stateless across calls and safe for
// concurrent use; per-seed randomness comes from the caller's rng.
type Tracker struct {
	field    *SFField
	atlas    *voxel.Volume
	policies map[Label]*tissuePolicy
	mode     Mode
	params   Params
}

// NewTracker builds a tracker from a field, an atlas and the tuning config.
// The atlas and field must live on the same grid.
func NewTracker(field *SFField, atlas *voxel.Volume, cfg *config.TuningConfig, mode Mode) (*Tracker, error) {
	if atlas.Grid != field.Field.Grid {
		return nil, fmt.Errorf("atlas grid %+v does not match field grid %+v", atlas.Grid, field.Field.Grid)
	}
	params := Params{
		MinPoints:        cfg.GetMinPoints(),
		MaxPoints:        cfg.GetMaxPoints(),
		KeepSinglePoints: cfg.GetKeepSinglePts(),
		SingleDirection:  cfg.GetSingleDirection(),
	}
	if params.MinPoints > params.MaxPoints {
		return nil, fmt.Errorf("min points %d exceeds max points %d", params.MinPoints, params.MaxPoints)
	}
	return &Tracker{
		field:    field,
		atlas:    atlas,
		policies: buildPolicies(cfg),
		mode:     mode,
		params:   params,
	}, nil
}

// LabelAt returns the atlas tissue label under a physical position,
// using nearest-voxel lookup. Unknown labels collapse to background.
func (t *Tracker) LabelAt(pos r3.Vec) Label {
	l := Label(math.Round(t.atlas.ValueAt(pos)))
	if _, ok := t.policies[l]; !ok {
		return LabelBackground
	}
	return l
}

// direction picks the next tracking direction at pos given the incoming
// direction, under the cone and threshold of the tissue at pos. When no
// direction is admissible it returns vin with ok=false, matching the
// reference behaviour of reusing the incoming direction for integrator
// sub-stages.
func (t *Tracker) direction(rng *rand.Rand, pos r3.Vec, vin Direction) (Direction, bool) {
	pol := t.policies[t.LabelAt(pos)]
	buf := make([]float64, t.field.Sphere.Len())
	sum, err := t.field.TrackingSF(buf, pos, vin.Vec, pol.cosTheta)
	if err != nil || sum <= 0 {
		return vin, false
	}
	var idx int
	if t.mode == Deterministic {
		idx = argmax(buf)
		if idx < 0 {
			return vin, false
		}
	} else {
		idx = sampleDistribution(rng, buf)
	}
	return t.field.Sphere.At(idx), true
}

// segment advances one step from pos using the integrator of the tissue
// policy at pos. ok is false when no admissible direction exists at pos,
// which terminates the half-line.
func (t *Tracker) segment(rng *rand.Rand, pos r3.Vec, vin Direction, pol *tissuePolicy) (r3.Vec, Direction, bool) {
	switch pol.integrator {
	case integratorRK4:
		dir1, ok := t.direction(rng, pos, vin)
		v1 := dir1.Vec
		dir2, _ := t.direction(rng, r3.Add(pos, r3.Scale(0.5*pol.stepSize, v1)), dir1)
		v2 := dir2.Vec
		dir3, _ := t.direction(rng, r3.Add(pos, r3.Scale(0.5*pol.stepSize, v2)), dir2)
		v3 := dir3.Vec
		dir4, _ := t.direction(rng, r3.Add(pos, r3.Scale(pol.stepSize, v3)), dir3)
		v4 := dir4.Vec

		// Classic 4-stage blend; the blended vector is deliberately not
		// re-normalised so degenerate stages shorten the step.
		newV := r3.Scale(1.0/6.0, r3.Add(r3.Add(v1, r3.Scale(2, v2)), r3.Add(r3.Scale(2, v3), v4)))
		newDir := Direction{Vec: newV, Index: dir1.Index}
		return r3.Add(pos, r3.Scale(pol.stepSize, newV)), newDir, ok

	case integratorMidpoint:
		dir1, ok := t.direction(rng, pos, vin)
		mid := r3.Add(pos, r3.Scale(0.5*pol.stepSize, dir1.Vec))
		newDir, _ := t.direction(rng, mid, dir1)
		return r3.Add(pos, r3.Scale(pol.stepSize, newDir.Vec)), newDir, ok

	default:
		return r3.Vec{}, vin, false
	}
}

// halfLine propagates from a seed in one direction until a tissue policy
// finishes or discards the line, or the point budget runs out. An ending
// tissue only takes effect once the trailing maxConsecutive points all sit
// inside it, so a line may cross a thin cap before it settles. It returns
// the half-line (starting at the seed), any continuation lines spawned by
// nuclei random endings, and whether the half-line terminated validly.
func (t *Tracker) halfLine(rng *rand.Rand, seed r3.Vec, dir Direction) (streamline.Streamline, []streamline.Streamline, bool) {
	line := streamline.Streamline{seed}
	var extras []streamline.Streamline

	for {
		pos := line[len(line)-1]
		label := t.LabelAt(pos)
		pol := t.policies[label]

		if pol.onStop != stepContinue && t.settled(line, label, pol.maxConsecutive) {
			if pol.onStop == stepFinish {
				return line, extras, true
			}
			return nil, nil, false
		}
		if pol.integrator == integratorNone {
			// Background offers no propagation: the half-line cannot proceed.
			return nil, nil, false
		}
		if len(line) >= t.params.MaxPoints {
			// Point budget exhausted without a valid endpoint.
			return nil, nil, false
		}

		newPos, newDir, ok := t.segment(rng, pos, dir, pol)
		if !ok {
			return nil, nil, false
		}
		line = append(line, newPos)
		dir = newDir

		// Nuclei may end the line early: with probability
		// 1-maxRandomEnding the line is accepted here and an escape
		// continuation is attempted from the stopping point.
		if enterLabel := t.LabelAt(newPos); enterLabel == LabelNuclei {
			enterPol := t.policies[enterLabel]
			if rng.Float64() >= enterPol.maxRandomEnding {
				if extra, ok := t.nucleiContinuation(rng, newPos, newDir, enterPol); ok {
					extras = append(extras, extra)
				}
				return line, extras, true
			}
		}
	}
}

// settled reports whether the trailing window points of the line all carry
// the given label. A window of 1 settles on the first point.
func (t *Tracker) settled(line streamline.Streamline, label Label, window int) bool {
	if window <= 1 {
		return true
	}
	start := len(line) - window
	if start < 0 {
		start = 0
	}
	for _, p := range line[start:] {
		if t.LabelAt(p) != label {
			return false
		}
	}
	return true
}

// nucleiContinuation tracks onwards from a nuclei stopping point. The
// continuation is kept only if it escapes the nucleus by at least the
// configured distance before reaching a valid endpoint.
func (t *Tracker) nucleiContinuation(rng *rand.Rand, start r3.Vec, dir Direction, nucleiPol *tissuePolicy) (streamline.Streamline, bool) {
	line := streamline.Streamline{start}
	escaped := 0.0

	for {
		pos := line[len(line)-1]
		label := t.LabelAt(pos)
		pol := t.policies[label]

		if pol.onStop != stepContinue && t.settled(line, label, pol.maxConsecutive) {
			if pol.onStop == stepFinish && escaped > nucleiPol.minDistanceStop {
				return line, true
			}
			return nil, false
		}
		if pol.integrator == integratorNone {
			return nil, false
		}
		if len(line) >= t.params.MaxPoints {
			return nil, false
		}

		newPos, newDir, ok := t.segment(rng, pos, dir, pol)
		if !ok {
			return nil, false
		}
		if t.LabelAt(newPos) != LabelNuclei {
			escaped += pol.stepSize
		}
		line = append(line, newPos)
		dir = newDir
	}
}

// TrackSeed generates the streamlines for one seed position: the merged
// forward/backward line plus any nuclei continuations, filtered by the
// acceptance rules. An empty result means the seed produced nothing.
func (t *Tracker) TrackSeed(rng *rand.Rand, seed r3.Vec) []streamline.Streamline {
	fwd, bwd, ok := t.field.InitDirection(rng, seed)
	if !ok {
		return t.singlePointFallback(seed)
	}

	forward, extras, fok := t.halfLine(rng, seed, fwd)
	if !fok {
		return t.singlePointFallback(seed)
	}

	line := forward
	if !t.params.SingleDirection {
		backward, bextras, bok := t.halfLine(rng, seed, bwd)
		if !bok {
			// Both halves must terminate validly for the line to count.
			return t.singlePointFallback(seed)
		}
		line = streamline.MergeBidirectional(forward, backward)
		extras = append(extras, bextras...)
	}

	var out []streamline.Streamline
	if len(line) > 1 && len(line) >= t.params.MinPoints && len(line) <= t.params.MaxPoints {
		out = append(out, line)
		for _, e := range extras {
			if len(e) >= t.params.MinPoints && len(e) <= t.params.MaxPoints {
				out = append(out, e)
			}
		}
	} else if t.params.KeepSinglePoints && t.params.MinPoints == 1 {
		out = append(out, streamline.Streamline{seed})
	}
	return out
}

func (t *Tracker) singlePointFallback(seed r3.Vec) []streamline.Streamline {
	if t.params.KeepSinglePoints && t.params.MinPoints == 1 {
		return []streamline.Streamline{{seed}}
	}
	return nil
}
