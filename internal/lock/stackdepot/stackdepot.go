// Package stackdepot stores deduplicated call stacks for stall reports.
//
// A stalled lock tends to stall at the same call site over and over; storing
// the full frames once per site and passing 8-byte hashes around keeps the
// monitor's bookkeeping small. Capture is only ever called on monitored slow
// paths (acquisitions and stall expiries while the monitor is enabled),
// never on the lock/unlock fast paths.
//
// The depot is process-global and append-only between resets: traces are
// interned in a sync.Map keyed by an FNV-1a hash of their program counters.
package stackdepot

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxFrames is the number of program counters kept per trace. Eight frames
// reach through the locking layer into a few levels of caller code, which is
// what a stall report needs to name the wait site.
const MaxFrames = 8

// FNV-1a constants for 64-bit hashing.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// Trace is one interned call stack. Unused tail entries of PC are zero.
type Trace struct {
	PC [MaxFrames]uintptr
}

var (
	// traces interns hash → *Trace. Entries live until Reset.
	traces sync.Map

	// uniqueTraces counts distinct interned traces.
	uniqueTraces atomic.Uint64

	// captures counts Capture calls, interned or not.
	captures atomic.Uint64
)

// Capture records the current call stack and returns its depot hash.
//
// skip counts frames to drop before recording, not including Capture
// itself: Capture(0) starts at the caller. Returns 0 when no frames could
// be collected; 0 is never a valid depot hash.
func Capture(skip int) uint64 {
	var tr Trace
	n := runtime.Callers(skip+2, tr.PC[:])
	if n == 0 {
		return 0
	}
	captures.Add(1)

	hash := hashTrace(&tr)
	if _, loaded := traces.LoadOrStore(hash, &tr); !loaded {
		uniqueTraces.Add(1)
	}
	return hash
}

// hashTrace computes the FNV-1a hash of a trace's program counters.
// Zero tail entries hash too; traces of different depth differ anyway.
func hashTrace(tr *Trace) uint64 {
	h := uint64(fnvOffset)
	for _, pc := range tr.PC {
		h ^= uint64(pc)
		h *= fnvPrime
	}
	return h
}

// Get returns the interned trace for hash, or nil if unknown.
func Get(hash uint64) *Trace {
	v, ok := traces.Load(hash)
	if !ok {
		return nil
	}
	return v.(*Trace)
}

// Format renders the trace for hash as an indented, human-readable stack:
//
//	  main.worker()
//	      /path/to/file.go:25
//
// Frames inside the Go runtime are dropped; callers see their own code plus
// the locking entry point. Returns a placeholder line for unknown hashes.
func Format(hash uint64) string {
	tr := Get(hash)
	if tr == nil {
		return "  (wait site unknown)\n"
	}

	n := 0
	for n < MaxFrames && tr.PC[n] != 0 {
		n++
	}
	if n == 0 {
		return "  (wait site unknown)\n"
	}

	frames := runtime.CallersFrames(tr.PC[:n])
	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			buf.WriteString("  ")
			buf.WriteString(frame.Function)
			buf.WriteString("()\n      ")
			buf.WriteString(frame.File)
			buf.WriteString(":")
			buf.WriteString(strconv.Itoa(frame.Line))
			buf.WriteString("\n")
		}
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  (all frames inside runtime)\n"
	}
	return buf.String()
}

// Stats reports how many traces are interned and how many captures ran.
func Stats() (unique, total uint64) {
	return uniqueTraces.Load(), captures.Load()
}

// Reset drops all interned traces. Test hook; not safe while captures run.
func Reset() {
	traces = sync.Map{}
	uniqueTraces.Store(0)
	captures.Store(0)
}
