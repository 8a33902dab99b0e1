// Package streamline provides operations on tracked streamlines: length
// and endpoint queries, lossy compression, and the binary point codec used
// for persistence.
package streamline

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Streamline is an ordered polyline of physical-space positions (mm).
type Streamline []r3.Vec

// Length returns the arc length of the streamline in mm.
func (s Streamline) Length() float64 {
	var total float64
	for i := 1; i < len(s); i++ {
		total += r3.Norm(r3.Sub(s[i], s[i-1]))
	}
	return total
}

// Endpoints returns the first and last points. Panics on an empty line;
// callers filter empty lines before storage.
func (s Streamline) Endpoints() (r3.Vec, r3.Vec) {
	return s[0], s[len(s)-1]
}

// Reversed returns a new streamline with the point order flipped.
func (s Streamline) Reversed() Streamline {
	out := make(Streamline, len(s))
	for i, p := range s {
		out[len(s)-1-i] = p
	}
	return out
}

// MergeBidirectional joins a forward half-line and a backward half-line
// that share a seed point. The backward half is reversed, its duplicated
// seed point dropped, and the forward half appended, producing a single
// line running end to end through the seed.
func MergeBidirectional(forward, backward Streamline) Streamline {
	if len(backward) == 0 {
		return forward
	}
	out := backward.Reversed()
	if len(forward) > 0 {
		out = out[:len(out)-1] // both halves start at the seed
		out = append(out, forward...)
	}
	return out
}

// pointSegmentDistance returns the distance from p to the segment ab.
func pointSegmentDistance(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	ap := r3.Sub(p, a)
	denom := r3.Dot(ab, ab)
	if denom == 0 {
		return r3.Norm(ap)
	}
	t := r3.Dot(ap, ab) / denom
	t = math.Max(0, math.Min(1, t))
	closest := r3.Add(a, r3.Scale(t, ab))
	return r3.Norm(r3.Sub(p, closest))
}
