package voxel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// boundsEpsilon keeps top-face clamps strictly inside the grid so that a
// later floor() of the fractional index never lands on dim itself.
const boundsEpsilon = 1e-8

// Grid describes a voxel lattice: the extent in voxels along each axis and
// the physical size (mm) of one voxel along each axis.
//
// The fractional-index convention is voxel-centred: index i covers the
// physical slab [i*res, (i+1)*res), and the centre of voxel i sits at
// fractional index i after the -0.5 shift applied by WorldToVoxel.
type Grid struct {
	Dim r3.Vec // voxel counts per axis, each >= 1
	Res r3.Vec // physical size of one voxel per axis, each > 0
}

// NewGrid validates the dimensions and resolution and returns a Grid.
func NewGrid(dim, res r3.Vec) (Grid, error) {
	if dim.X < 1 || dim.Y < 1 || dim.Z < 1 {
		return Grid{}, fmt.Errorf("grid dimensions must each be >= 1, got (%g, %g, %g)", dim.X, dim.Y, dim.Z)
	}
	if res.X <= 0 || res.Y <= 0 || res.Z <= 0 {
		return Grid{}, fmt.Errorf("voxel resolution must be positive on every axis, got (%g, %g, %g)", res.X, res.Y, res.Z)
	}
	return Grid{Dim: dim, Res: res}, nil
}

// MustGrid is NewGrid for fixtures and tests; panics on invalid input.
func MustGrid(dim, res r3.Vec) Grid {
	g, err := NewGrid(dim, res)
	if err != nil {
		panic(err)
	}
	return g
}

// InBounds reports whether the physical position maps to a fractional voxel
// index inside [0, dim-1] on every axis. The test is joint: one failing
// axis makes the whole position out of bounds.
func (g Grid) InBounds(pos r3.Vec) bool {
	i := pos.X / g.Res.X
	j := pos.Y / g.Res.Y
	k := pos.Z / g.Res.Z
	return i >= 0 && i <= g.Dim.X-1 &&
		j >= 0 && j <= g.Dim.Y-1 &&
		k >= 0 && k <= g.Dim.Z-1
}

// WorldToVoxel maps a physical-space position (mm) to fractional voxel
// coordinates under the voxel-centre convention.
//
// Out-of-bounds positions are clamped to the nearest in-grid location
// before conversion. The clamp is joint: once any axis fails the bounds
// test, all three axes are clamped, and the upper clamp bound is
// res*(dim-eps) in physical units even though the bounds test compares
// fractional indices against dim-1. Both behaviours are inherited from the
// reference pipeline and are load-bearing for downstream interpolation;
// do not "fix" them here without revalidating stored streamlines.
func (g Grid) WorldToVoxel(pos r3.Vec) r3.Vec {
	if !g.InBounds(pos) {
		pos = r3.Vec{
			X: clamp(pos.X, g.Res.X*(g.Dim.X-boundsEpsilon)),
			Y: clamp(pos.Y, g.Res.Y*(g.Dim.Y-boundsEpsilon)),
			Z: clamp(pos.Z, g.Res.Z*(g.Dim.Z-boundsEpsilon)),
		}
	}
	return r3.Vec{
		X: pos.X/g.Res.X - 0.5,
		Y: pos.Y/g.Res.Y - 0.5,
		Z: pos.Z/g.Res.Z - 0.5,
	}
}

// VoxelToWorld is the inverse of WorldToVoxel for in-bounds indices: it
// returns the physical position of the given fractional voxel coordinate.
func (g Grid) VoxelToWorld(idx r3.Vec) r3.Vec {
	return r3.Vec{
		X: (idx.X + 0.5) * g.Res.X,
		Y: (idx.Y + 0.5) * g.Res.Y,
		Z: (idx.Z + 0.5) * g.Res.Z,
	}
}

// VoxelCount returns the total number of voxels in the grid.
func (g Grid) VoxelCount() int {
	return int(g.Dim.X) * int(g.Dim.Y) * int(g.Dim.Z)
}

// PhysicalExtent returns the outer physical corner of the grid, i.e. the
// position of the face just past the last voxel on each axis.
func (g Grid) PhysicalExtent() r3.Vec {
	return r3.Vec{X: g.Dim.X * g.Res.X, Y: g.Dim.Y * g.Res.Y, Z: g.Dim.Z * g.Res.Z}
}

func clamp(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
