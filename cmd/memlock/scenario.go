package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolkov/memlock/lock"
)

var (
	scenarioRounds    int
	scenarioHold      time.Duration
	scenarioThreshold time.Duration

	scenarioCmd = &cobra.Command{
		Use:       "scenario [handoff|stall]",
		Short:     "Run a scripted demonstration of runtime behavior",
		ValidArgs: []string{"handoff", "stall"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Long: `scenario makes two behaviors of the runtime observable.

handoff first walks one lock/park/unlock round step by step, printing the
cell value observed at each step. It then repeatedly releases a cell that
has a parked waiter while a newcomer tries to grab it in the same instant.
Every round the newcomer wins is a barge: the parked waiter lost to a
goroutine that never waited.

stall holds a cell past the stall threshold while another goroutine wants
it, demonstrating the monitor's warning and recovery reporting.`,
		RunE: runScenario,
	}
)

func init() {
	scenarioCmd.Flags().IntVar(&scenarioRounds, "rounds", 1000, "handoff rounds to run")
	scenarioCmd.Flags().DurationVar(&scenarioHold, "hold", 2*time.Second, "how long the stall scenario holds the cell")
	scenarioCmd.Flags().DurationVar(&scenarioThreshold, "stall-threshold", 500*time.Millisecond, "stall threshold for the stall scenario")

	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "handoff":
		return runHandoff()
	case "stall":
		return runStall()
	}
	return fmt.Errorf("unknown scenario %q", args[0])
}

// awaitParked polls until want goroutines are parked on the cell.
func awaitParked(cell *uint32, want int) error {
	deadline := time.Now().Add(5 * time.Second)
	for lock.Waiters(cell) != want {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %d parked waiters", want)
		}
		time.Sleep(50 * time.Microsecond)
	}
	return nil
}

// walkHandoff prints one scripted round with the cell value observed at
// every step. The value is only read at quiescent points: whichever
// goroutine could mutate the cell is parked or blocked on a channel when
// the read happens.
func walkHandoff() error {
	var c uint32
	step := func(desc string) {
		fmt.Printf("  %-28s cell=%d waiters=%d\n", desc, c, lock.Waiters(&c))
	}

	fmt.Println("one round, step by step:")
	step("fresh cell")

	lock.Lock(&c)
	step("A locks")

	if lock.TryLock(&c) {
		return fmt.Errorf("TryLock succeeded on a held cell")
	}
	step("B's TryLock fails")

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		lock.Lock(&c)
		close(holding)
		<-release
		lock.Unlock(&c)
		close(done)
	}()
	if err := awaitParked(&c, 1); err != nil {
		return err
	}
	step("B's Lock parks")

	lock.Unlock(&c)
	<-holding
	step("A unlocks, B's Lock returns")

	close(release)
	<-done
	step("B unlocks")
	fmt.Println()
	return nil
}

// runHandoff measures how often a newcomer steals a cell from under a
// parked waiter. One round: goroutine A holds the cell, B parks on it, A
// releases, and the main goroutine immediately tries one TryLock. Success
// means the cell was won without ever waiting, while B was first in line.
func runHandoff() error {
	log := logger.With().Str("cmd", "scenario").Str("name", "handoff").Logger()

	if err := walkHandoff(); err != nil {
		return err
	}

	var cell uint32
	steals := 0

	for round := 0; round < scenarioRounds; round++ {
		lock.Lock(&cell)

		done := make(chan struct{})
		go func() {
			lock.Lock(&cell)
			lock.Unlock(&cell)
			close(done)
		}()
		if err := awaitParked(&cell, 1); err != nil {
			lock.Unlock(&cell)
			return err
		}

		lock.Unlock(&cell)
		if lock.TryLock(&cell) {
			steals++
			lock.Unlock(&cell)
		}
		<-done
	}

	log.Info().
		Int("rounds", scenarioRounds).
		Int("steals", steals).
		Float64("steal_pct", 100*float64(steals)/float64(scenarioRounds)).
		Msg("handoff is unfair: parked waiters hold no reservation")

	fmt.Printf("rounds: %d\nnewcomer stole the cell: %d (%.1f%%)\n",
		scenarioRounds, steals, 100*float64(steals)/float64(scenarioRounds))
	return nil
}

// runStall wedges a cell on purpose and lets the monitor narrate it.
func runStall() error {
	log := logger.With().Str("cmd", "scenario").Str("name", "stall").Logger()

	lock.EnableStallMonitor(scenarioThreshold, log, os.Stderr)
	defer lock.DisableStallMonitor()

	var cell uint32
	lock.Lock(&cell)
	log.Info().Dur("hold", scenarioHold).Msg("holding the cell")

	acquired := make(chan struct{})
	go func() {
		lock.Lock(&cell)
		lock.Unlock(&cell)
		close(acquired)
	}()

	time.Sleep(scenarioHold)
	lock.Unlock(&cell)
	<-acquired

	s := lock.GetStats()
	log.Info().
		Uint64("stalls_reported", s.StallsReported).
		Uint64("stalls_resolved", s.StallsResolved).
		Msg("stall scenario complete")
	return nil
}
