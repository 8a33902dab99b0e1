// Command gen-phantom writes a synthetic corridor phantom as three binary
// volume containers: a tissue atlas, a direction-sampled field peaked
// along x, and a white-matter seed mask. The output exercises the track
// command without scanner data.
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/fibretrace/internal/tracking"
	"github.com/banshee-data/fibretrace/internal/voxel"
)

var (
	outDir       = flag.String("out", "phantom", "Output directory")
	length       = flag.Int("length", 24, "Corridor length in voxels (x axis)")
	width        = flag.Int("width", 5, "Corridor width in voxels (y and z axes)")
	capDepth     = flag.Int("cap", 2, "Grey-matter cap depth in voxels at each end")
	resolution   = flag.Float64("res", 1.0, "Voxel resolution in mm")
	subdivisions = flag.Int("subdivisions", tracking.DefaultSphereSubdivisions, "Direction sphere subdivisions")
	sharpness    = flag.Float64("sharpness", 8, "Exponent of the |x| field peak")
)

func main() {
	flag.Parse()

	if *length < 2**capDepth+1 || *width < 1 {
		log.Fatalf("corridor %dx%d with %d-voxel caps leaves no white matter", *length, *width, *capDepth)
	}

	sphere, err := tracking.NewSphere(*subdivisions)
	if err != nil {
		log.Fatal(err)
	}

	grid, err := voxel.NewGrid(
		r3.Vec{X: float64(*length), Y: float64(*width), Z: float64(*width)},
		r3.Vec{X: *resolution, Y: *resolution, Z: *resolution},
	)
	if err != nil {
		log.Fatal(err)
	}

	atlas := voxel.NewVolume(grid)
	mask := voxel.NewVolume(grid)
	field, err := voxel.NewField(grid, sphere.Len())
	if err != nil {
		log.Fatal(err)
	}

	amps := make([]float64, sphere.Len())
	for i, d := range sphere.Dirs {
		amps[i] = math.Pow(math.Abs(d.X), *sharpness)
	}

	for x := 0; x < *length; x++ {
		for y := 0; y < *width; y++ {
			for z := 0; z < *width; z++ {
				label := tracking.LabelWhiteMatter
				if x < *capDepth || x >= *length-*capDepth {
					label = tracking.LabelGreyMatter
				} else {
					mask.Set(x, y, z, 1)
				}
				atlas.Set(x, y, z, float64(label))
				copy(field.VoxelSlice(x, y, z), amps)
			}
		}
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}
	if err := writeVolume(filepath.Join(*outDir, "atlas.ftvol"), atlas); err != nil {
		log.Fatal(err)
	}
	if err := writeField(filepath.Join(*outDir, "field.ftvol"), field); err != nil {
		log.Fatal(err)
	}
	if err := writeVolume(filepath.Join(*outDir, "mask.ftvol"), mask); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote phantom (%dx%dx%d, %d directions) to %s", *length, *width, *width, sphere.Len(), *outDir)
}

func writeVolume(path string, v *voxel.Volume) error {
	blob, err := voxel.EncodeVolume(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0644)
}

func writeField(path string, f *voxel.Field) error {
	blob, err := voxel.EncodeField(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0644)
}
