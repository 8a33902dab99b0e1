package streamline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestLength(t *testing.T) {
	cases := []struct {
		name string
		line Streamline
		want float64
	}{
		{"empty", nil, 0},
		{"single point", Streamline{{X: 1, Y: 2, Z: 3}}, 0},
		{"straight", Streamline{{}, {X: 3}, {X: 3, Y: 4}}, 7},
		{"diagonal", Streamline{{}, {X: 1, Y: 2, Z: 2}}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.line.Length(); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Length() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReversed(t *testing.T) {
	line := Streamline{{X: 1}, {X: 2}, {X: 3}}
	got := line.Reversed()
	want := Streamline{{X: 3}, {X: 2}, {X: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reversed() mismatch (-want +got):\n%s", diff)
	}
	// Original must be untouched.
	if line[0].X != 1 {
		t.Error("Reversed() mutated its receiver")
	}
}

func TestMergeBidirectional(t *testing.T) {
	seed := r3.Vec{X: 5}
	forward := Streamline{seed, {X: 6}, {X: 7}}
	backward := Streamline{seed, {X: 4}, {X: 3}}

	got := MergeBidirectional(forward, backward)
	want := Streamline{{X: 3}, {X: 4}, {X: 5}, {X: 6}, {X: 7}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged line mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBidirectionalEmptyHalves(t *testing.T) {
	forward := Streamline{{X: 1}, {X: 2}}
	if got := MergeBidirectional(forward, nil); len(got) != 2 {
		t.Errorf("merge with empty backward = %v, want forward unchanged", got)
	}
	backward := Streamline{{X: 1}, {X: 0}}
	got := MergeBidirectional(nil, backward)
	want := Streamline{{X: 0}, {X: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merge with empty forward mismatch (-want +got):\n%s", diff)
	}
}

func TestCompressStraightLine(t *testing.T) {
	var line Streamline
	for i := 0; i <= 100; i++ {
		line = append(line, r3.Vec{X: float64(i) * 0.5})
	}
	got := Compress(line, 0.1)
	if len(got) != 2 {
		t.Errorf("compressed straight line has %d points, want 2", len(got))
	}
	if got[0] != line[0] || got[len(got)-1] != line[len(line)-1] {
		t.Error("compression must preserve endpoints")
	}
}

func TestCompressKeepsCorners(t *testing.T) {
	line := Streamline{
		{X: 0}, {X: 1}, {X: 2}, {X: 3},
		{X: 3, Y: 1}, {X: 3, Y: 2}, {X: 3, Y: 3},
	}
	got := Compress(line, 0.1)
	// The corner at (3,0,0) deviates far beyond the threshold and must
	// survive.
	found := false
	for _, p := range got {
		if p == (r3.Vec{X: 3}) {
			found = true
		}
	}
	if !found {
		t.Errorf("compressed line %v lost the corner point", got)
	}
}

func TestCompressErrorBound(t *testing.T) {
	// Gentle arc: all points stay close to the chord.
	var line Streamline
	for i := 0; i <= 50; i++ {
		x := float64(i) * 0.2
		line = append(line, r3.Vec{X: x, Y: 0.05 * math.Sin(x)})
	}
	maxErr := 0.1
	got := Compress(line, maxErr)

	// Every dropped point must stay within maxErr of the compressed line.
	for _, p := range line {
		best := math.Inf(1)
		for i := 1; i < len(got); i++ {
			d := pointSegmentDistance(p, got[i-1], got[i])
			if d < best {
				best = d
			}
		}
		if best > maxErr+1e-9 {
			t.Errorf("point %v deviates %v from compressed line, max %v", p, best, maxErr)
		}
	}
}

func TestPointCodecRoundTrip(t *testing.T) {
	line := Streamline{
		{X: 0.25, Y: -3.5, Z: 100.125},
		{X: 1e-3, Y: 42, Z: -7.75},
		{X: 0, Y: 0, Z: 0},
	}
	blob, err := EncodePoints(line)
	if err != nil {
		t.Fatalf("EncodePoints: %v", err)
	}
	got, err := DecodePoints(blob)
	if err != nil {
		t.Fatalf("DecodePoints: %v", err)
	}
	if diff := cmp.Diff(line, got, cmpopts.EquateApprox(1e-6, 1e-6)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePointsRejectsGarbage(t *testing.T) {
	if _, err := DecodePoints([]byte("definitely not gzip")); err == nil {
		t.Error("expected error for non-gzip blob")
	}
}
