package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr-9/omnivanity/internal/ui"
	"github.com/Amr-9/omnivanity/pkg/generator/ethereum"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure raw key throughput of the compute backends",
	RunE:  runBench,
}

func init() {
	f := benchCmd.Flags()
	f.Int("rounds", 5, "Timed dispatches after the warm-up")
	f.Bool("full", false, "Include the public-key step")
	f.Bool("all", false, "Benchmark every backend instead of the configured one")
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	search, err := cfg.ToGenerator()
	if err != nil {
		return err
	}
	rounds, _ := cmd.Flags().GetInt("rounds")
	full, _ := cmd.Flags().GetBool("full")
	all, _ := cmd.Flags().GetBool("all")

	kinds := []kernel.Kind{search.Backend}
	if all {
		kinds = []kernel.Kind{kernel.KindOpenCL, kernel.KindCPU64, kernel.KindCPU32}
	}
	cpuOpts := []kernel.CPUOption{
		kernel.WithWorkers(search.Workers),
		kernel.WithWorkgroupSize(search.WorkgroupSize),
	}

	console := ui.Stdout
	fmt.Fprintf(console.W, "\n    %d lanes × %d keys, %d rounds\n\n", search.Lanes, search.KeysPerLane, rounds)
	ran := 0
	for _, kind := range kinds {
		b, err := kernel.Open(kind, cpuOpts...)
		switch {
		case err != nil && b == nil:
			logger.Warn("backend unavailable", "backend", kind, "error", err)
			continue
		case err != nil:
			logger.LogFallback(cmd.Context(), string(kind), b.Name(), err)
		}
		report, err := ethereum.Benchmark(cmd.Context(), b, ethereum.BenchConfig{
			Lanes:        search.Lanes,
			KeysPerLane:  search.KeysPerLane,
			Rounds:       rounds,
			FullPipeline: full,
		})
		b.Close()
		if errors.Is(err, kernel.ErrRuntimeUnavailable) {
			logger.Warn("benchmark skipped", "backend", b.Name(), "error", err)
			continue
		}
		if err != nil {
			return err
		}
		console.PrintBench(report)
		ran++
	}
	if ran == 0 {
		return errors.New("no backend could be benchmarked")
	}
	return nil
}
