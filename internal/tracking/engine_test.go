package tracking

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func phantomEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	tracker := phantomTracker(t, Probabilistic)
	seeder := phantomSeeder(t, tracker)
	return &Engine{Tracker: tracker, Seeder: seeder, Workers: workers}
}

func TestEngineRunProducesLines(t *testing.T) {
	e := phantomEngine(t, 2)
	results, err := e.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected streamlines from a clean corridor phantom")
	}
	for _, r := range results {
		if len(r.Line) < 2 {
			t.Errorf("seed %d produced a degenerate line of %d points", r.SeedIndex, len(r.Line))
		}
	}
}

func TestEngineRunReproducibleAcrossWorkerCounts(t *testing.T) {
	one := phantomEngine(t, 1)
	four := phantomEngine(t, 4)

	a, err := one.Run(context.Background(), 25)
	if err != nil {
		t.Fatalf("Run(workers=1): %v", err)
	}
	b, err := four.Run(context.Background(), 25)
	if err != nil {
		t.Fatalf("Run(workers=4): %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("results differ between worker counts (-one +four):\n%s", diff)
	}
}

func TestEngineRunCompression(t *testing.T) {
	plain := phantomEngine(t, 1)
	compressed := phantomEngine(t, 1)
	compressed.Compress = true
	compressed.CompressionError = 0.5

	a, err := plain.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run(plain): %v", err)
	}
	b, err := compressed.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run(compressed): %v", err)
	}
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("both runs must produce lines")
	}

	totalPlain, totalCompressed := 0, 0
	for _, r := range a {
		totalPlain += len(r.Line)
	}
	for _, r := range b {
		totalCompressed += len(r.Line)
	}
	if totalCompressed >= totalPlain {
		t.Errorf("compression did not reduce points: %d -> %d", totalPlain, totalCompressed)
	}
}

func TestEngineRunRejectsNonPositiveSeeds(t *testing.T) {
	e := phantomEngine(t, 1)
	if _, err := e.Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero seeds")
	}
}

func TestEngineRunCancelled(t *testing.T) {
	e := phantomEngine(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, 10000); err == nil {
		t.Error("expected error from a cancelled context")
	}
}
