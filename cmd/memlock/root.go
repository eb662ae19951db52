package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logLevel  int
	logPath   string
	logBuffer int

	// logger is the process-wide logger, installed by the root command
	// before any subcommand runs. Subcommands pass it down by value.
	logger zerolog.Logger

	rootCmd = &cobra.Command{
		Use:   "memlock",
		Short: "Exercise and inspect the memlock runtime",
		Long: `memlock drives the futex-style locking runtime: stress workloads that
verify mutual exclusion under contention, a scripted demonstration of the
unfair handoff, and a doctor for projects embedding the library.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := initLogger(logConfig{
				Level:    logLevel,
				Path:     logPath,
				DiodeBuf: logBuffer,
			})
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", int(zerolog.InfoLevel), "log level: -1=trace 0=debug 1=info 2=warn 3=error")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "stderr", "log destination: stderr, stdout, or a file path")
	rootCmd.PersistentFlags().IntVar(&logBuffer, "log-buffer", 0, "size of the non-blocking log buffer, 0 writes synchronously")
}
