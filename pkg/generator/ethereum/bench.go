package ethereum

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// BenchConfig describes a benchmark run.
type BenchConfig struct {
	Lanes        int
	KeysPerLane  uint32
	Rounds       int  // timed dispatches after one warm-up dispatch
	FullPipeline bool // include the public-key step
}

// BenchReport is the outcome of a benchmark run.
type BenchReport struct {
	Backend  string
	Keys     uint64
	Elapsed  time.Duration
	Rate     float64 // keys per second
	Pipeline string  // "keccak" or "full"
}

// Benchmark runs one warm-up dispatch and then cfg.Rounds timed dispatches
// with successive iteration offsets.
func Benchmark(ctx context.Context, b kernel.Backend, cfg BenchConfig) (BenchReport, error) {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	seeds, err := kernel.NewSeedVectors(rand.Reader, cfg.Lanes)
	if err != nil {
		return BenchReport{}, err
	}

	dispatch := func(offset uint64) (uint64, error) {
		c := &kernel.Counter{}
		err := b.Benchmark(ctx, &kernel.BenchDispatch{
			Seeds:        seeds,
			Params:       kernel.SearchParams{IterationOffset: offset, KeysPerLane: cfg.KeysPerLane},
			FullPipeline: cfg.FullPipeline,
			AddressLen:   common.AddressLength,
			Counter:      c,
		})
		return c.Keys(), err
	}

	if _, err := dispatch(0); err != nil {
		return BenchReport{}, fmt.Errorf("warm-up: %w", err)
	}

	report := BenchReport{Backend: b.Name(), Pipeline: "keccak"}
	if cfg.FullPipeline {
		report.Pipeline = "full"
	}
	start := time.Now()
	for round := 1; round <= cfg.Rounds; round++ {
		keys, err := dispatch(uint64(round))
		if err != nil {
			return report, fmt.Errorf("round %d: %w", round, err)
		}
		report.Keys += keys
	}
	report.Elapsed = time.Since(start)
	if s := report.Elapsed.Seconds(); s > 0 {
		report.Rate = float64(report.Keys) / s
	}
	return report, nil
}
