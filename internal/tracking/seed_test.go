package tracking

import (
	"testing"

	"github.com/banshee-data/fibretrace/internal/voxel"
	"gonum.org/v1/gonum/spatial/r3"
)

func maskWithCorner(t *testing.T) *voxel.Volume {
	t.Helper()
	grid := voxel.MustGrid(r3.Vec{X: 6, Y: 6, Z: 6}, r3.Vec{X: 2, Y: 2, Z: 2})
	mask := voxel.NewVolume(grid)
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				mask.Set(x, y, z, 1)
			}
		}
	}
	return mask
}

func TestNewSeederRejectsEmptyMask(t *testing.T) {
	grid := voxel.MustGrid(r3.Vec{X: 4, Y: 4, Z: 4}, r3.Vec{X: 1, Y: 1, Z: 1})
	if _, err := NewSeeder(voxel.NewVolume(grid), 1); err == nil {
		t.Error("expected error for an all-zero mask")
	}
}

func TestSeederCount(t *testing.T) {
	seeder, err := NewSeeder(maskWithCorner(t), 1)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}
	if got := seeder.Count(); got != 27 {
		t.Errorf("Count() = %d, want 27", got)
	}
}

func TestSeederPositionsInsideMaskedVoxels(t *testing.T) {
	mask := maskWithCorner(t)
	seeder, err := NewSeeder(mask, 5)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}

	for i := 0; i < 100; i++ {
		pos := seeder.At(seeder.Rng(i), i)
		// The masked block spans [0, 6) mm on each axis (3 voxels of 2 mm).
		if pos.X < 0 || pos.X >= 6 || pos.Y < 0 || pos.Y >= 6 || pos.Z < 0 || pos.Z >= 6 {
			t.Errorf("seed %d at %v is outside the masked region", i, pos)
		}
		// The seed must land inside the voxel it was drawn from.
		x, y, z := int(pos.X/2), int(pos.Y/2), int(pos.Z/2)
		if mask.At(x, y, z) <= 0 {
			t.Errorf("seed %d at %v is in an unmasked voxel", i, pos)
		}
	}
}

func TestSeederDeterministic(t *testing.T) {
	a, err := NewSeeder(maskWithCorner(t), 123)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}
	b, err := NewSeeder(maskWithCorner(t), 123)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}

	for i := 0; i < 50; i++ {
		pa := a.At(a.Rng(i), i)
		pb := b.At(b.Rng(i), i)
		if pa != pb {
			t.Fatalf("seed %d differs between identical seeders: %v vs %v", i, pa, pb)
		}
	}
}

func TestSeederBaseSeedChangesPositions(t *testing.T) {
	a, err := NewSeeder(maskWithCorner(t), 1)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}
	b, err := NewSeeder(maskWithCorner(t), 2)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}

	same := 0
	for i := 0; i < 50; i++ {
		if a.At(a.Rng(i), i) == b.At(b.Rng(i), i) {
			same++
		}
	}
	if same == 50 {
		t.Error("different base seeds produced identical seed sequences")
	}
}

func TestSeederWrapsPastMaskSize(t *testing.T) {
	seeder, err := NewSeeder(maskWithCorner(t), 9)
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}
	// Index past Count() wraps onto the same voxel ordering but with its
	// own jitter stream.
	n := seeder.Count()
	p0 := seeder.At(seeder.Rng(0), 0)
	pn := seeder.At(seeder.Rng(n), n)
	if int(p0.X/2) != int(pn.X/2) || int(p0.Y/2) != int(pn.Y/2) || int(p0.Z/2) != int(pn.Z/2) {
		t.Errorf("wrapped seed %v is not in the same voxel as seed %v", pn, p0)
	}
	if p0 == pn {
		t.Error("wrapped seed has identical jitter, expected an independent stream")
	}
}
