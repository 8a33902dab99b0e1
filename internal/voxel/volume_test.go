package voxel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestVolumeNearestLookup(t *testing.T) {
	g := MustGrid(r3.Vec{X: 4, Y: 4, Z: 4}, r3.Vec{X: 2, Y: 2, Z: 2})
	v := NewVolume(g)
	v.Set(1, 2, 3, 7)

	// Voxel (1,2,3) spans [2,4)x[4,6)x[6,8); its centre is (3,5,7).
	if got := v.ValueAt(r3.Vec{X: 3, Y: 5, Z: 7}); got != 7 {
		t.Errorf("ValueAt(centre) = %v, want 7", got)
	}
	if got := v.ValueAt(r3.Vec{X: 2.1, Y: 4.2, Z: 7.8}); got != 7 {
		t.Errorf("ValueAt(inside voxel) = %v, want 7", got)
	}
}

func TestVolumeNearestClampsOutside(t *testing.T) {
	g := MustGrid(r3.Vec{X: 3, Y: 3, Z: 3}, r3.Vec{X: 1, Y: 1, Z: 1})
	v := NewVolume(g)
	v.Set(0, 0, 0, 1)
	v.Set(2, 2, 2, 9)

	if got := v.ValueAt(r3.Vec{X: -10, Y: -10, Z: -10}); got != 1 {
		t.Errorf("ValueAt(far below) = %v, want 1 (origin voxel)", got)
	}
	if got := v.ValueAt(r3.Vec{X: 100, Y: 100, Z: 100}); got != 9 {
		t.Errorf("ValueAt(far above) = %v, want 9 (corner voxel)", got)
	}
}

func TestVolumeTrilinearMidpoint(t *testing.T) {
	g := MustGrid(r3.Vec{X: 2, Y: 1, Z: 1}, r3.Vec{X: 1, Y: 1, Z: 1})
	v := NewVolume(g)
	v.Set(0, 0, 0, 2)
	v.Set(1, 0, 0, 4)

	// Physical x=1 is halfway between the two voxel centres (0.5 and 1.5).
	got := v.InterpAt(r3.Vec{X: 1, Y: 0.5, Z: 0.5})
	if math.Abs(got-3) > 1e-12 {
		t.Errorf("InterpAt(midpoint) = %v, want 3", got)
	}
}

func TestVolumeTrilinearReproducesLinearRamp(t *testing.T) {
	g := MustGrid(r3.Vec{X: 8, Y: 8, Z: 8}, r3.Vec{X: 1, Y: 1, Z: 1})
	v := NewVolume(g)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			for z := 0; z < 8; z++ {
				v.Set(x, y, z, float64(x)+2*float64(y)+3*float64(z))
			}
		}
	}

	// Trilinear interpolation is exact for a linear field at interior
	// positions.
	positions := []r3.Vec{
		{X: 2.75, Y: 3.25, Z: 4.5},
		{X: 1.5, Y: 6.5, Z: 2.5},
		{X: 5.1, Y: 1.9, Z: 6.3},
	}
	for _, pos := range positions {
		idx := g.WorldToVoxel(pos)
		want := idx.X + 2*idx.Y + 3*idx.Z
		got := v.InterpAt(pos)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("InterpAt(%v) = %v, want %v", pos, got, want)
		}
	}
}

func TestVolumeDataLengthValidation(t *testing.T) {
	g := MustGrid(r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{X: 1, Y: 1, Z: 1})
	if _, err := NewVolumeData(g, make([]float64, 7)); err == nil {
		t.Error("expected error for mismatched data length")
	}
	if _, err := NewVolumeData(g, make([]float64, 8)); err != nil {
		t.Errorf("unexpected error for matching data length: %v", err)
	}
}

func TestFieldInterpInto(t *testing.T) {
	g := MustGrid(r3.Vec{X: 2, Y: 1, Z: 1}, r3.Vec{X: 1, Y: 1, Z: 1})
	f, err := NewField(g, 3)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	copy(f.VoxelSlice(0, 0, 0), []float64{1, 0, 10})
	copy(f.VoxelSlice(1, 0, 0), []float64{3, 0, 30})

	dst := make([]float64, 3)
	if err := f.InterpInto(dst, r3.Vec{X: 1, Y: 0.5, Z: 0.5}); err != nil {
		t.Fatalf("InterpInto: %v", err)
	}
	want := []float64{2, 0, 20}
	for i := range want {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Errorf("channel %d = %v, want %v", i, dst[i], want[i])
		}
	}

	if err := f.InterpInto(make([]float64, 2), r3.Vec{}); err == nil {
		t.Error("expected error for wrong destination length")
	}
}

func TestNewFieldValidation(t *testing.T) {
	g := MustGrid(r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{X: 1, Y: 1, Z: 1})
	if _, err := NewField(g, 0); err == nil {
		t.Error("expected error for zero channels")
	}
}
