package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// logConfig describes configuration of the CLI logger.
type logConfig struct {
	// Log level: -1-trace 0-debug 1-info 2-warn 3-error 4-fatal 5-panic
	Level int

	// Path to the logfile. "stdout" or "stderr" are possible too.
	Path string

	// The size of the diode buffer. 0 disables the diode and writes
	// synchronously. A buffered logger never blocks the measured paths,
	// which matters when logging from inside a stress run.
	DiodeBuf int
}

// initLogger builds the zerolog logger the CLI commands share.
//
// Terminal destinations get the human console format; files get JSON lines.
// With a non-zero DiodeBuf the writer is wrapped in a non-blocking diode
// that drops (and counts) entries instead of stalling the writer.
func initLogger(lc logConfig) (zerolog.Logger, error) {
	var (
		output io.Writer
		tty    bool
	)

	switch lc.Path {
	case "stdout":
		output = os.Stdout
		tty = true
	case "stderr":
		output = os.Stderr
		tty = true
	default:
		f, err := os.Create(lc.Path)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("open log file: %w", err)
		}
		output = f
	}

	if tty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05.000"}
	}

	if lc.DiodeBuf > 0 {
		output = diode.NewWriter(output, lc.DiodeBuf, 0, func(missed int) {
			fmt.Fprintf(os.Stderr, "WARNING: Dropped %d log entries\n", missed)
		})
	}

	logger := zerolog.New(output).With().Timestamp().Logger().Level(zerolog.Level(lc.Level))
	return logger, nil
}
