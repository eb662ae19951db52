package main

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/kolkov/memlock/lock"
)

var (
	stressGoroutines int
	stressCells      int
	stressIters      int
	stressSample     int
	stressMonitor    bool
	stressThreshold  time.Duration

	stressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Hammer shared cells and verify mutual exclusion",
		Long: `stress runs a configurable number of goroutines against a set of lock
cells carved from one arena. Every critical section increments a plain,
unsynchronized counter; after the run the command cross-checks each counter
against an independent atomic tally, so any lost update - any breach of
mutual exclusion - is detected. Sampled acquisition latencies are reported
as mean, standard deviation and tail quantiles.`,
		RunE: runStress,
	}
)

func init() {
	stressCmd.Flags().IntVar(&stressGoroutines, "goroutines", 8, "concurrent goroutines")
	stressCmd.Flags().IntVar(&stressCells, "cells", 4, "lock cells to spread contention across")
	stressCmd.Flags().IntVar(&stressIters, "iterations", 100000, "acquisitions per goroutine")
	stressCmd.Flags().IntVar(&stressSample, "sample", 16, "measure every Nth acquisition latency")
	stressCmd.Flags().BoolVar(&stressMonitor, "monitor", false, "enable the stall monitor during the run")
	stressCmd.Flags().DurationVar(&stressThreshold, "stall-threshold", 0, "stall threshold when --monitor is set, 0 for the default")

	rootCmd.AddCommand(stressCmd)
}

// xorshift64 is a tiny deterministic generator so each worker walks the
// cells in its own order without sharing rand state.
func xorshift64(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

func runStress(cmd *cobra.Command, args []string) error {
	if stressGoroutines < 1 || stressCells < 1 || stressIters < 1 {
		return fmt.Errorf("goroutines, cells and iterations must all be positive")
	}
	if stressSample < 1 {
		stressSample = 1
	}

	log := logger.With().Str("cmd", "stress").Logger()

	if stressMonitor {
		lock.EnableStallMonitor(stressThreshold, log, os.Stderr)
		defer lock.DisableStallMonitor()
	}

	// All cells come from one arena, the way they would in a shared
	// mapping. The extra CellSize absorbs alignment of the region start.
	region := make([]byte, (stressCells+1)*lock.CellSize)
	arena, err := lock.NewArena(region)
	if err != nil {
		return fmt.Errorf("carve arena: %w", err)
	}
	cells := make([]*uint32, stressCells)
	for i := range cells {
		if cells[i], err = arena.Carve(); err != nil {
			return fmt.Errorf("carve cell %d: %w", i, err)
		}
	}

	// counters are guarded only by the cells; expected is the independent
	// atomic tally the verification compares against.
	counters := make([]int64, stressCells)
	expected := make([]atomic.Int64, stressCells)

	log.Info().
		Int("goroutines", stressGoroutines).
		Int("cells", stressCells).
		Int("iterations", stressIters).
		Msg("stress starting")

	samples := make([][]float64, stressGoroutines)
	start := time.Now()

	g, ctx := errgroup.WithContext(cmd.Context())
	for w := 0; w < stressGoroutines; w++ {
		w := w
		g.Go(func() error {
			rng := uint64(w)*0x9E3779B97F4A7C15 + 1
			local := make([]float64, 0, stressIters/stressSample+1)
			for i := 0; i < stressIters; i++ {
				if i&1023 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				rng = xorshift64(rng)
				idx := int(rng % uint64(stressCells))

				if i%stressSample == 0 {
					t0 := time.Now()
					lock.Lock(cells[idx])
					local = append(local, float64(time.Since(t0).Nanoseconds())/1e3)
				} else {
					lock.Lock(cells[idx])
				}
				counters[idx]++
				lock.Unlock(cells[idx])
				expected[idx].Add(1)
			}
			samples[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	// Verification: a single lost increment means two goroutines were
	// inside the same critical section.
	total := int64(0)
	for i := range counters {
		want := expected[i].Load()
		if counters[i] != want {
			return fmt.Errorf("mutual exclusion violated: cell %d counted %d, want %d", i, counters[i], want)
		}
		total += counters[i]
	}

	var lat []float64
	for _, s := range samples {
		lat = append(lat, s...)
	}
	sort.Float64s(lat)

	ev := log.Info().
		Int64("acquisitions", total).
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", float64(total)/elapsed.Seconds())
	if len(lat) > 0 {
		ev = ev.
			Float64("lat_mean_us", stat.Mean(lat, nil)).
			Float64("lat_stddev_us", stat.StdDev(lat, nil)).
			Float64("lat_p50_us", stat.Quantile(0.50, stat.Empirical, lat, nil)).
			Float64("lat_p95_us", stat.Quantile(0.95, stat.Empirical, lat, nil)).
			Float64("lat_p99_us", stat.Quantile(0.99, stat.Empirical, lat, nil))
	}
	ev.Msg("stress passed: no lost updates")

	s := lock.GetStats()
	log.Info().
		Uint64("acquires", s.Acquires).
		Uint64("contended", s.Contended).
		Uint64("waits", s.Waits).
		Uint64("immediate_returns", s.ImmediateReturns).
		Uint64("wakes", s.Wakes).
		Uint64("stalls_reported", s.StallsReported).
		Msg("runtime counters")

	return nil
}
