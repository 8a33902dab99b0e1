package voxel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Volume is a scalar field sampled on a Grid. Data is laid out row-major
// with z fastest: index = (x*dimY + y)*dimZ + z.
type Volume struct {
	Grid Grid
	Data []float64
}

// NewVolume allocates a zeroed volume on the given grid.
func NewVolume(g Grid) *Volume {
	return &Volume{Grid: g, Data: make([]float64, g.VoxelCount())}
}

// NewVolumeData wraps existing data; the slice length must match the grid.
func NewVolumeData(g Grid, data []float64) (*Volume, error) {
	if len(data) != g.VoxelCount() {
		return nil, fmt.Errorf("volume data length %d does not match grid voxel count %d", len(data), g.VoxelCount())
	}
	return &Volume{Grid: g, Data: data}, nil
}

func (v *Volume) index(x, y, z int) int {
	return (x*int(v.Grid.Dim.Y)+y)*int(v.Grid.Dim.Z) + z
}

// At returns the value of the voxel at integer indices (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.index(x, y, z)]
}

// Set assigns the voxel at integer indices (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[v.index(x, y, z)] = val
}

// ValueAt returns the value of the voxel whose centre is nearest to the
// physical position. Out-of-grid positions are clamped by WorldToVoxel.
func (v *Volume) ValueAt(pos r3.Vec) float64 {
	x, y, z := v.Grid.nearestIndices(pos)
	return v.At(x, y, z)
}

// InterpAt returns the trilinear interpolation of the eight voxel centres
// surrounding the physical position. Out-of-grid positions are clamped by
// WorldToVoxel before interpolation.
func (v *Volume) InterpAt(pos r3.Vec) float64 {
	var sum float64
	v.Grid.trilinear(pos, func(x, y, z int, w float64) {
		sum += w * v.At(x, y, z)
	})
	return sum
}

// Field is a multi-channel field on a Grid: Channels values per voxel,
// stored voxel-major (all channels of a voxel are contiguous). It backs
// direction-sampled spherical functions where each channel corresponds to
// one sphere direction.
type Field struct {
	Grid     Grid
	Channels int
	Data     []float64
}

// NewField allocates a zeroed multi-channel field.
func NewField(g Grid, channels int) (*Field, error) {
	if channels < 1 {
		return nil, fmt.Errorf("field must have at least one channel, got %d", channels)
	}
	return &Field{Grid: g, Channels: channels, Data: make([]float64, g.VoxelCount()*channels)}, nil
}

// VoxelSlice returns the channel slice of the voxel at integer indices.
// The returned slice aliases the field's backing array.
func (f *Field) VoxelSlice(x, y, z int) []float64 {
	base := ((x*int(f.Grid.Dim.Y)+y)*int(f.Grid.Dim.Z) + z) * f.Channels
	return f.Data[base : base+f.Channels]
}

// InterpInto writes the trilinear interpolation of all channels at the
// physical position into dst, which must have length Channels.
func (f *Field) InterpInto(dst []float64, pos r3.Vec) error {
	if len(dst) != f.Channels {
		return fmt.Errorf("destination length %d does not match channel count %d", len(dst), f.Channels)
	}
	for i := range dst {
		dst[i] = 0
	}
	f.Grid.trilinear(pos, func(x, y, z int, w float64) {
		floats.AddScaled(dst, w, f.VoxelSlice(x, y, z))
	})
	return nil
}

// nearestIndices maps a physical position to the integer indices of the
// voxel with the nearest centre.
func (g Grid) nearestIndices(pos r3.Vec) (x, y, z int) {
	idx := g.WorldToVoxel(pos)
	x = clampIndex(int(math.Round(idx.X)), int(g.Dim.X))
	y = clampIndex(int(math.Round(idx.Y)), int(g.Dim.Y))
	z = clampIndex(int(math.Round(idx.Z)), int(g.Dim.Z))
	return x, y, z
}

// trilinear visits the eight voxel centres surrounding the position with
// their interpolation weights. Corner voxels are revisited with summed
// weights at grid edges, which keeps the weights normalised.
func (g Grid) trilinear(pos r3.Vec, visit func(x, y, z int, w float64)) {
	idx := g.WorldToVoxel(pos)

	x0 := int(math.Floor(idx.X))
	y0 := int(math.Floor(idx.Y))
	z0 := int(math.Floor(idx.Z))
	wx := idx.X - float64(x0)
	wy := idx.Y - float64(y0)
	wz := idx.Z - float64(z0)

	for dx := 0; dx <= 1; dx++ {
		fx := wx
		if dx == 0 {
			fx = 1 - wx
		}
		for dy := 0; dy <= 1; dy++ {
			fy := wy
			if dy == 0 {
				fy = 1 - wy
			}
			for dz := 0; dz <= 1; dz++ {
				fz := wz
				if dz == 0 {
					fz = 1 - wz
				}
				w := fx * fy * fz
				if w == 0 {
					continue
				}
				visit(
					clampIndex(x0+dx, int(g.Dim.X)),
					clampIndex(y0+dy, int(g.Dim.Y)),
					clampIndex(z0+dz, int(g.Dim.Z)),
					w,
				)
			}
		}
	}
}

func clampIndex(i, dim int) int {
	if i < 0 {
		return 0
	}
	if i > dim-1 {
		return dim - 1
	}
	return i
}
