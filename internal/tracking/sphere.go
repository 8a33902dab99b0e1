package tracking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere is a discrete set of unit directions with antipodal symmetry,
// built by subdividing a regular icosahedron. Spherical functions are
// sampled once per direction, and propagation picks directions from within
// an angular cone of the incoming direction.
type Sphere struct {
	Dirs []r3.Vec
	// antipode[i] is the index of the direction opposite Dirs[i].
	antipode []int
}

// Direction is one sphere direction together with its index, so spherical
// function lookups and antipode queries stay O(1) during propagation.
type Direction struct {
	Vec   r3.Vec
	Index int
}

// DefaultSphereSubdivisions yields 162 directions, enough angular
// resolution for half-degree steps without making field volumes huge.
const DefaultSphereSubdivisions = 2

// NewSphere builds a subdivided icosahedral sphere. Subdivision level 0 is
// the bare icosahedron (12 directions); each level quadruples the faces.
func NewSphere(subdivisions int) (*Sphere, error) {
	if subdivisions < 0 || subdivisions > 5 {
		return nil, fmt.Errorf("sphere subdivisions must be in [0, 5], got %d", subdivisions)
	}

	verts, faces := icosahedron()
	for s := 0; s < subdivisions; s++ {
		verts, faces = subdivide(verts, faces)
	}
	for i, v := range verts {
		verts[i] = r3.Unit(v)
	}

	sp := &Sphere{Dirs: verts}
	if err := sp.buildAntipodes(); err != nil {
		return nil, err
	}
	return sp, nil
}

// MustSphere is NewSphere for fixtures and tests; panics on invalid input.
func MustSphere(subdivisions int) *Sphere {
	sp, err := NewSphere(subdivisions)
	if err != nil {
		panic(err)
	}
	return sp
}

// SphereForDirections recovers the sampling sphere of a stored field from
// its channel count. Only icosphere sizes (12, 42, 162, ...) are valid.
func SphereForDirections(n int) (*Sphere, error) {
	for s := 0; s <= 5; s++ {
		// Vertex count of an s-times subdivided icosahedron.
		faces := 20 << (2 * s)
		verts := faces/2 + 2
		if verts == n {
			return NewSphere(s)
		}
		if verts > n {
			break
		}
	}
	return nil, fmt.Errorf("no direction sphere has %d directions", n)
}

// Len returns the number of directions.
func (s *Sphere) Len() int { return len(s.Dirs) }

// At returns the Direction at index i.
func (s *Sphere) At(i int) Direction {
	return Direction{Vec: s.Dirs[i], Index: i}
}

// Antipode returns the direction opposite to i.
func (s *Sphere) Antipode(i int) Direction {
	return s.At(s.antipode[i])
}

// Nearest returns the sphere direction closest in angle to v.
func (s *Sphere) Nearest(v r3.Vec) Direction {
	u := r3.Unit(v)
	best := 0
	bestDot := math.Inf(-1)
	for i, d := range s.Dirs {
		if dot := r3.Dot(u, d); dot > bestDot {
			bestDot = dot
			best = i
		}
	}
	return s.At(best)
}

// WithinCone reports whether direction i lies within the cone of aperture
// theta (given as its cosine) around vin.
func (s *Sphere) WithinCone(i int, vin r3.Vec, cosTheta float64) bool {
	return r3.Dot(s.Dirs[i], vin) >= cosTheta
}

func (s *Sphere) buildAntipodes() error {
	// The icosahedron is centrally symmetric and subdivision preserves
	// that, so every direction has an exact opposite up to float error.
	const tol = 1e-9
	s.antipode = make([]int, len(s.Dirs))
	for i, d := range s.Dirs {
		neg := r3.Scale(-1, d)
		found := -1
		for j, e := range s.Dirs {
			if r3.Norm(r3.Sub(neg, e)) < tol {
				found = j
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("direction %d has no antipode; sphere construction is broken", i)
		}
		s.antipode[i] = found
	}
	return nil
}

// icosahedron returns the 12 vertices and 20 faces of a regular
// icosahedron centred on the origin.
func icosahedron() ([]r3.Vec, [][3]int) {
	phi := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
		{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
		{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return verts, faces
}

// subdivide splits each triangular face into four, deduplicating the edge
// midpoints so shared edges produce one vertex.
func subdivide(verts []r3.Vec, faces [][3]int) ([]r3.Vec, [][3]int) {
	type edge struct{ a, b int }
	midpoints := make(map[edge]int)

	midpoint := func(a, b int) int {
		if a > b {
			a, b = b, a
		}
		key := edge{a, b}
		if idx, ok := midpoints[key]; ok {
			return idx
		}
		m := r3.Scale(0.5, r3.Add(verts[a], verts[b]))
		verts = append(verts, m)
		midpoints[key] = len(verts) - 1
		return len(verts) - 1
	}

	var out [][3]int
	for _, f := range faces {
		ab := midpoint(f[0], f[1])
		bc := midpoint(f[1], f[2])
		ca := midpoint(f[2], f[0])
		out = append(out,
			[3]int{f[0], ab, ca},
			[3]int{f[1], bc, ab},
			[3]int{f[2], ca, bc},
			[3]int{ab, bc, ca},
		)
	}
	return verts, out
}
