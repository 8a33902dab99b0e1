package tracking

import (
	"fmt"
	"math"

	"github.com/banshee-data/fibretrace/internal/config"
)

// Label is an atlas tissue label. The atlas volume stores these as voxel
// values; propagation behaviour is dispatched on the label under the
// streamline's current position.
type Label int

const (
	LabelBackground  Label = 0
	LabelWhiteMatter Label = 1
	LabelGreyMatter  Label = 2
	LabelNuclei      Label = 3
	LabelCSF         Label = 4
)

// String returns the human-readable tissue name.
func (l Label) String() string {
	switch l {
	case LabelBackground:
		return "background"
	case LabelWhiteMatter:
		return "white-matter"
	case LabelGreyMatter:
		return "grey-matter"
	case LabelNuclei:
		return "nuclei"
	case LabelCSF:
		return "csf"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// stepKind describes how a line ends once it has settled in a given
// tissue.
type stepKind int

const (
	stepContinue stepKind = iota // tissue never ends the line
	stepFinish                   // line ends here and is kept
	stepDiscard                  // line ends here and is dropped
)

// tissuePolicy carries the per-tissue propagation parameters resolved from
// config plus the behaviour class.
type tissuePolicy struct {
	label    Label
	theta    float64 // radians
	cosTheta float64
	stepSize float64 // mm

	// Nuclei continuation tuning.
	maxRandomEnding float64
	minDistanceStop float64

	// An ending tissue only stops the line once this many trailing
	// points all sit inside it; 1 stops on the first point.
	maxConsecutive int

	// integrator order: white matter uses the 4-stage scheme; nuclei,
	// grey matter and CSF a single midpoint stage; background no
	// propagation at all.
	integrator integratorKind
	onStop     stepKind
}

type integratorKind int

const (
	integratorNone integratorKind = iota
	integratorMidpoint
	integratorRK4
)

// buildPolicies resolves the five atlas tissues against the tuning config.
func buildPolicies(cfg *config.TuningConfig) map[Label]*tissuePolicy {
	policies := make(map[Label]*tissuePolicy, 5)
	for _, label := range []Label{LabelBackground, LabelWhiteMatter, LabelGreyMatter, LabelNuclei, LabelCSF} {
		p := cfg.Tissue(fmt.Sprintf("%d", int(label)))
		theta := p.GetThetaDegrees() * math.Pi / 180

		pol := &tissuePolicy{
			label:           label,
			theta:           theta,
			cosTheta:        math.Cos(theta),
			stepSize:        p.GetStepSizeMm(),
			maxRandomEnding: p.GetMaxRandomEnding(),
			minDistanceStop: p.GetMinDistanceStopMm(),
			maxConsecutive:  p.GetMaxConsecutiveSteps(),
		}
		switch label {
		case LabelWhiteMatter:
			pol.integrator = integratorRK4
			pol.onStop = stepContinue
		case LabelNuclei:
			pol.integrator = integratorMidpoint
			pol.onStop = stepContinue
		case LabelGreyMatter:
			// Grey matter is a valid endpoint: the line stops and is kept
			// once its trailing window settles here.
			pol.integrator = integratorMidpoint
			pol.onStop = stepFinish
		case LabelCSF:
			// CSF is an invalid endpoint: once the trailing window settles
			// here the half-line is rejected.
			pol.integrator = integratorMidpoint
			pol.onStop = stepDiscard
		default:
			// Background rejects the half-line outright.
			pol.integrator = integratorNone
			pol.onStop = stepDiscard
		}
		policies[label] = pol
	}
	return policies
}
