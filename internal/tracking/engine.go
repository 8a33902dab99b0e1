package tracking

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/banshee-data/fibretrace/internal/streamline"
	"gonum.org/v1/gonum/spatial/r3"
)

// Engine runs seed-parallel streamline generation over a worker pool.
type Engine struct {
	Tracker *Tracker
	Seeder  *Seeder

	// Workers is the pool size; zero means one worker per CPU.
	Workers int

	// Compress enables lossy streamline compression before results are
	// emitted; CompressionError is the max deviation in mm.
	Compress         bool
	CompressionError float64
}

// Result is one accepted streamline together with the seed that produced
// it. Seeds are kept so downstream analysis can relate lines to seeding
// territory.
type Result struct {
	SeedIndex int
	Seed      r3.Vec
	Line      streamline.Streamline
}

// Run tracks nSeeds seeds and returns the accepted streamlines. The order
// of results is normalised by seed index, so identical inputs produce
// identical output regardless of worker count.
func (e *Engine) Run(ctx context.Context, nSeeds int) ([]Result, error) {
	if nSeeds <= 0 {
		return nil, fmt.Errorf("seed count must be positive, got %d", nSeeds)
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > nSeeds {
		workers = nSeeds
	}

	seedCh := make(chan int)
	resultCh := make(chan []Result, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range seedCh {
				resultCh <- e.trackOne(i)
			}
		}()
	}

	// Feed seeds until done or cancelled.
	go func() {
		defer close(seedCh)
		for i := 0; i < nSeeds; i++ {
			select {
			case seedCh <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect per-seed buckets, then flatten in seed order for
	// reproducibility.
	buckets := make(map[int][]Result)
	done := 0
	for batch := range resultCh {
		done++
		if done%1000 == 0 {
			log.Printf("tracking progress: %d / %d seeds", done, nSeeds)
		}
		if len(batch) == 0 {
			continue
		}
		buckets[batch[0].SeedIndex] = batch
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Result
	for i := 0; i < nSeeds; i++ {
		out = append(out, buckets[i]...)
	}
	return out, nil
}

// trackOne generates and post-processes the streamlines for seed i.
func (e *Engine) trackOne(i int) []Result {
	rng := e.Seeder.Rng(i)
	seed := e.Seeder.At(rng, i)
	lines := e.Tracker.TrackSeed(rng, seed)
	if len(lines) == 0 {
		return nil
	}

	results := make([]Result, 0, len(lines))
	for _, line := range lines {
		if e.Compress && len(line) > 2 {
			line = streamline.Compress(line, e.CompressionError)
		}
		results = append(results, Result{SeedIndex: i, Seed: seed, Line: line})
	}
	return results
}
