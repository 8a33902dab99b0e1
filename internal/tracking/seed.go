package tracking

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/banshee-data/fibretrace/internal/voxel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Seeder produces physical-space seed positions from a seeding mask: every
// voxel with a positive mask value is a candidate, visited in a shuffled
// order with uniform sub-voxel jitter.
//
// Seed i is fully determined by (base seed, i), so a run is reproducible
// regardless of how seeds are divided among workers.
type Seeder struct {
	grid     voxel.Grid
	indices  [][3]int
	baseSeed int64
}

// NewSeeder scans the mask for seedable voxels. An all-zero mask is an
// error: it would silently produce an empty run.
func NewSeeder(mask *voxel.Volume, baseSeed int64) (*Seeder, error) {
	var indices [][3]int
	dim := mask.Grid.Dim
	for x := 0; x < int(dim.X); x++ {
		for y := 0; y < int(dim.Y); y++ {
			for z := 0; z < int(dim.Z); z++ {
				if mask.At(x, y, z) > 0 {
					indices = append(indices, [3]int{x, y, z})
				}
			}
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("seeding mask has no positive voxels")
	}

	// One fixed shuffle so seeds cover the mask evenly from the start.
	shuffleRng := rand.New(rand.NewSource(baseSeed))
	shuffleRng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	return &Seeder{grid: mask.Grid, indices: indices, baseSeed: baseSeed}, nil
}

// Count returns the number of seedable voxels in the mask.
func (s *Seeder) Count() int { return len(s.indices) }

// Rng returns the deterministic random generator for seed i. The same
// generator drives the jitter and the subsequent tracking of that seed.
func (s *Seeder) Rng(i int) *rand.Rand {
	h := fnv.New64a()
	var buf [16]byte
	for b := 0; b < 8; b++ {
		buf[b] = byte(s.baseSeed >> (8 * b))
		buf[8+b] = byte(int64(i) >> (8 * b))
	}
	h.Write(buf[:])
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// At returns seed position i: the i-th shuffled voxel (wrapping past the
// mask size) jittered uniformly within the voxel. The supplied rng must be
// the one returned by Rng(i).
func (s *Seeder) At(rng *rand.Rand, i int) r3.Vec {
	idx := s.indices[i%len(s.indices)]
	return r3.Vec{
		X: (float64(idx[0]) + rng.Float64()) * s.grid.Res.X,
		Y: (float64(idx[1]) + rng.Float64()) * s.grid.Res.Y,
		Z: (float64(idx[2]) + rng.Float64()) * s.grid.Res.Z,
	}
}
