package voxel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func unitGrid(t *testing.T) Grid {
	t.Helper()
	g, err := NewGrid(r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestNewGridValidation(t *testing.T) {
	cases := []struct {
		name    string
		dim     r3.Vec
		res     r3.Vec
		wantErr bool
	}{
		{"valid", r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 1, Y: 1, Z: 1}, false},
		{"valid anisotropic", r3.Vec{X: 64, Y: 64, Z: 30}, r3.Vec{X: 2, Y: 2, Z: 5}, false},
		{"dim below one", r3.Vec{X: 0, Y: 10, Z: 10}, r3.Vec{X: 1, Y: 1, Z: 1}, true},
		{"zero resolution", r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 1, Y: 0, Z: 1}, true},
		{"negative resolution", r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 1, Y: 1, Z: -2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGrid(tc.dim, tc.res)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewGrid(%v, %v) error = %v, wantErr %v", tc.dim, tc.res, err, tc.wantErr)
			}
		})
	}
}

func TestWorldToVoxelCentre(t *testing.T) {
	g := unitGrid(t)

	got := g.WorldToVoxel(r3.Vec{X: 5, Y: 5, Z: 5})
	want := r3.Vec{X: 4.5, Y: 4.5, Z: 4.5}
	if got != want {
		t.Errorf("WorldToVoxel(5,5,5) = %v, want %v", got, want)
	}
}

func TestWorldToVoxelInBoundsExact(t *testing.T) {
	g := MustGrid(r3.Vec{X: 20, Y: 16, Z: 12}, r3.Vec{X: 0.5, Y: 2, Z: 2.5})

	positions := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1.25, Y: 3.5, Z: 7.5},
		{X: 9.5, Y: 30, Z: 27.5}, // exactly at index dim-1 on each axis
	}
	for _, pos := range positions {
		if !g.InBounds(pos) {
			t.Fatalf("expected %v to be in bounds", pos)
		}
		got := g.WorldToVoxel(pos)
		want := r3.Vec{
			X: pos.X/g.Res.X - 0.5,
			Y: pos.Y/g.Res.Y - 0.5,
			Z: pos.Z/g.Res.Z - 0.5,
		}
		if got != want {
			t.Errorf("WorldToVoxel(%v) = %v, want exact %v (no clamp)", pos, got, want)
		}
	}
}

// A single out-of-bounds axis triggers clamping on all three axes. Here y
// and z are individually in range but still pass through the clamp; with
// unit resolution the clamp is the identity for them, and the failing axis
// lands on the -0.5 floor.
func TestWorldToVoxelJointLowerClamp(t *testing.T) {
	g := unitGrid(t)

	pos := r3.Vec{X: -5, Y: 5, Z: 5}
	if g.InBounds(pos) {
		t.Fatal("expected position to be out of bounds")
	}
	got := g.WorldToVoxel(pos)
	if got.X != -0.5 {
		t.Errorf("clamped x index = %v, want -0.5", got.X)
	}
	if got.Y != 4.5 || got.Z != 4.5 {
		t.Errorf("in-range axes after joint clamp = (%v, %v), want (4.5, 4.5)", got.Y, got.Z)
	}
}

// The joint clamp can move axes that are individually in range when the
// resolution makes the physical clamp bound bite. This pins the joint
// behaviour rather than a per-axis variant.
func TestWorldToVoxelJointClampMovesInRangeAxis(t *testing.T) {
	g := MustGrid(r3.Vec{X: 10, Y: 4, Z: 10}, r3.Vec{X: 1, Y: 1, Z: 1})

	// x is out of bounds; y = 3.5 is within [0, dim-1]? No: dim.Y-1 = 3,
	// so y is also out, and both get clamped to their physical bounds.
	pos := r3.Vec{X: 12, Y: 3.5, Z: 5}
	got := g.WorldToVoxel(pos)

	if got.X >= 9.5 {
		t.Errorf("x index = %v, want strictly below 9.5", got.X)
	}
	if got.X < 9.5-1e-6 {
		t.Errorf("x index = %v, want just below 9.5", got.X)
	}
	// y raw index 3.5 exceeds dim-1 = 3 but sits below the physical clamp
	// bound 1*(4-eps), so it passes through the clamp unchanged.
	if got.Y != 3.0 {
		t.Errorf("y index = %v, want 3.0", got.Y)
	}
}

func TestWorldToVoxelClampIdempotent(t *testing.T) {
	g := MustGrid(r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 2, Y: 2, Z: 2})

	pos := r3.Vec{X: -7, Y: 50, Z: 3}
	first := g.WorldToVoxel(pos)

	// Convert the clamped index back to a physical position and re-map.
	// The clamped top face stays out of bounds under the joint test, so the
	// clamp re-triggers and must reproduce the same result.
	back := r3.Vec{
		X: (first.X + 0.5) * g.Res.X,
		Y: (first.Y + 0.5) * g.Res.Y,
		Z: (first.Z + 0.5) * g.Res.Z,
	}
	second := g.WorldToVoxel(back)

	if math.Abs(first.X-second.X) > 1e-12 ||
		math.Abs(first.Y-second.Y) > 1e-12 ||
		math.Abs(first.Z-second.Z) > 1e-12 {
		t.Errorf("re-clamping moved the point: first %v, second %v", first, second)
	}
}

func TestWorldToVoxelOuterFaceEpsilon(t *testing.T) {
	g := unitGrid(t)

	// Exactly on the outer face: raw index dim > dim-1, so out of bounds.
	pos := r3.Vec{X: g.Res.X * g.Dim.X, Y: 5, Z: 5}
	if g.InBounds(pos) {
		t.Fatal("outer face must be detected as out of bounds")
	}
	got := g.WorldToVoxel(pos)
	want := g.Dim.X - 0.5
	if got.X >= want {
		t.Errorf("clamped outer-face index = %v, must stay below %v", got.X, want)
	}
	if want-got.X > 1e-6 {
		t.Errorf("clamped outer-face index = %v, should approach %v from below", got.X, want)
	}
}

func TestWorldToVoxelAlwaysFinite(t *testing.T) {
	g := MustGrid(r3.Vec{X: 7, Y: 3, Z: 11}, r3.Vec{X: 0.25, Y: 4, Z: 1.5})

	positions := []r3.Vec{
		{X: -1e9, Y: 1e9, Z: 0},
		{X: 1e-12, Y: -1e-12, Z: 1e6},
		{X: 1.75, Y: 12, Z: 16.5},
	}
	for _, pos := range positions {
		got := g.WorldToVoxel(pos)
		for _, c := range []float64{got.X, got.Y, got.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				t.Errorf("WorldToVoxel(%v) produced non-finite component %v", pos, got)
			}
		}
	}
}

func TestVoxelToWorldRoundTrip(t *testing.T) {
	g := MustGrid(r3.Vec{X: 32, Y: 32, Z: 16}, r3.Vec{X: 1.25, Y: 1.25, Z: 3})

	idx := r3.Vec{X: 4, Y: 17.5, Z: 0}
	pos := g.VoxelToWorld(idx)
	back := g.WorldToVoxel(pos)
	if math.Abs(back.X-idx.X) > 1e-12 ||
		math.Abs(back.Y-idx.Y) > 1e-12 ||
		math.Abs(back.Z-idx.Z) > 1e-12 {
		t.Errorf("round trip %v -> %v -> %v", idx, pos, back)
	}
}

func TestInBoundsJointTest(t *testing.T) {
	g := unitGrid(t)

	cases := []struct {
		pos  r3.Vec
		want bool
	}{
		{r3.Vec{X: 0, Y: 0, Z: 0}, true},
		{r3.Vec{X: 9, Y: 9, Z: 9}, true},
		{r3.Vec{X: 9.0000001, Y: 0, Z: 0}, false},
		{r3.Vec{X: 0, Y: -0.0000001, Z: 0}, false},
		{r3.Vec{X: 5, Y: 5, Z: 10}, false},
	}
	for _, tc := range cases {
		if got := g.InBounds(tc.pos); got != tc.want {
			t.Errorf("InBounds(%v) = %v, want %v", tc.pos, got, tc.want)
		}
	}
}
