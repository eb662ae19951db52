// Package main implements the memlock CLI tool.
//
// The memlock tool exercises and inspects the futex-style locking runtime
// from outside a test harness. It provides:
//
//  1. A configurable stress workload that hammers shared cells and verifies
//     mutual exclusion while reporting latency statistics
//  2. A scripted handoff scenario that makes the unfair (barging) handoff
//     behavior observable
//  3. A doctor command that inspects a project's go.mod for version and
//     replace-directive problems
//
// Usage:
//
//	memlock stress --goroutines 8 --cells 4       # contention workload
//	memlock scenario handoff                      # demonstrate barging
//	memlock doctor --dir ./myproject              # check an embedding project
//	memlock version                               # runtime version
//
// This is the CLI entry point; the locking runtime itself lives in
// github.com/kolkov/memlock/lock and has no dependency on this tool.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
