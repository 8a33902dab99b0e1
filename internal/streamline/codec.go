package streamline

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// EncodePoints serialises a streamline as gzip-compressed little-endian
// float32 triplets. Positions are stored at float32 precision, which is
// ample for millimetre-scale coordinates.
func EncodePoints(line Streamline) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)

	samples := make([]float32, 0, len(line)*3)
	for _, p := range line {
		samples = append(samples, float32(p.X), float32(p.Y), float32(p.Z))
	}
	if err := binary.Write(zw, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write streamline points: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePoints parses a blob produced by EncodePoints.
func DecodePoints(blob []byte) (Streamline, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to read streamline points: %w", err)
	}
	if len(raw)%12 != 0 {
		return nil, fmt.Errorf("streamline blob length %d is not a whole number of points", len(raw))
	}

	count := len(raw) / 12
	samples := make([]float32, count*3)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to decode streamline points: %w", err)
	}

	line := make(Streamline, count)
	for i := range line {
		line[i] = r3.Vec{
			X: float64(samples[i*3]),
			Y: float64(samples[i*3+1]),
			Z: float64(samples[i*3+2]),
		}
	}
	return line, nil
}
