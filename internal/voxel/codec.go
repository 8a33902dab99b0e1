package voxel

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Binary volume container. The whole payload is gzip-compressed; inside is
// a fixed little-endian header followed by float32 samples, voxel-major.
// The same container carries scalar volumes (channels == 1) and
// direction-sampled fields (channels == sphere direction count).

const codecMagic = "FTVOL"
const codecVersion = uint16(1)

type codecHeader struct {
	DimX, DimY, DimZ uint32
	ResX, ResY, ResZ float64
	Channels         uint32
}

// EncodeField serialises a field into the binary volume container.
func EncodeField(f *Field) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)

	if _, err := zw.Write([]byte(codecMagic)); err != nil {
		return nil, fmt.Errorf("failed to write magic: %w", err)
	}
	hdr := codecHeader{
		DimX: uint32(f.Grid.Dim.X), DimY: uint32(f.Grid.Dim.Y), DimZ: uint32(f.Grid.Dim.Z),
		ResX: f.Grid.Res.X, ResY: f.Grid.Res.Y, ResZ: f.Grid.Res.Z,
		Channels: uint32(f.Channels),
	}
	if err := binary.Write(zw, binary.LittleEndian, codecVersion); err != nil {
		return nil, fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(zw, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	samples := make([]float32, len(f.Data))
	for i, v := range f.Data {
		samples[i] = float32(v)
	}
	if err := binary.Write(zw, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeField parses a binary volume container produced by EncodeField.
func DecodeField(blob []byte) (*Field, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	magic := make([]byte, len(codecMagic))
	if _, err := io.ReadFull(zr, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != codecMagic {
		return nil, fmt.Errorf("bad magic %q, want %q", magic, codecMagic)
	}
	var version uint16
	if err := binary.Read(zr, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("unsupported volume container version %d", version)
	}
	var hdr codecHeader
	if err := binary.Read(zr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	grid, err := NewGrid(
		r3.Vec{X: float64(hdr.DimX), Y: float64(hdr.DimY), Z: float64(hdr.DimZ)},
		r3.Vec{X: hdr.ResX, Y: hdr.ResY, Z: hdr.ResZ},
	)
	if err != nil {
		return nil, fmt.Errorf("container header describes an invalid grid: %w", err)
	}
	if hdr.Channels < 1 {
		return nil, fmt.Errorf("container header has %d channels", hdr.Channels)
	}

	// The sample count is built up one factor at a time so a hostile
	// header cannot overflow it past the cap before the check runs.
	total := uint64(hdr.DimX)
	for _, factor := range []uint32{hdr.DimY, hdr.DimZ, hdr.Channels} {
		total *= uint64(factor)
		if total > math.MaxInt32 {
			return nil, fmt.Errorf("container of %dx%dx%dx%d samples exceeds limit",
				hdr.DimX, hdr.DimY, hdr.DimZ, hdr.Channels)
		}
	}
	count := int(total)

	samples := make([]float32, count)
	if err := binary.Read(zr, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to read %d samples: %w", count, err)
	}

	f := &Field{Grid: grid, Channels: int(hdr.Channels), Data: make([]float64, count)}
	for i, v := range samples {
		f.Data[i] = float64(v)
	}
	return f, nil
}

// EncodeVolume serialises a scalar volume as a one-channel container.
func EncodeVolume(v *Volume) ([]byte, error) {
	return EncodeField(&Field{Grid: v.Grid, Channels: 1, Data: v.Data})
}

// DecodeVolume parses a one-channel container back into a scalar volume.
func DecodeVolume(blob []byte) (*Volume, error) {
	f, err := DecodeField(blob)
	if err != nil {
		return nil, err
	}
	if f.Channels != 1 {
		return nil, fmt.Errorf("expected a scalar volume, container has %d channels", f.Channels)
	}
	return &Volume{Grid: f.Grid, Data: f.Data}, nil
}
