// Package lock provides the public API for futex-style mutual exclusion
// over caller-owned memory.
//
// See doc.go for detailed documentation and examples.
package lock

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	internal "github.com/kolkov/memlock/internal/lock/api"
	"github.com/kolkov/memlock/internal/lock/cell"
)

// CellSize is the size in bytes of one lock cell. Callers sizing a shared
// region should budget CellSize per cell plus up to CellSize-1 bytes of
// leading alignment padding.
const CellSize = cell.Size

// TryLock attempts to acquire the cell at addr without blocking.
//
// Returns true if this call transitioned the cell from 0 (unlocked) to
// 1 (locked); the caller then holds the lock. Returns false if the cell
// was already held, in which case the cell is not modified.
//
// Parameters:
//   - addr: pointer to a 4-byte-aligned uint32 owned by the caller
//
// Example:
//
//	if lock.TryLock(&cell) {
//		defer lock.Unlock(&cell)
//		// critical section
//	}
//
// TryLock never parks the goroutine and is safe to call from latency
// sensitive paths.
func TryLock(addr *uint32) bool {
	return internal.TryLock(addr)
}

// Lock acquires the cell at addr, blocking until the lock is held.
//
// When the cell is free, Lock is a single compare-and-swap. When it is
// held, the goroutine parks until a release wakes it, then contends for
// the cell again; a newly arriving goroutine may win first, and the woken
// one parks again. No acquisition order is guaranteed.
//
// Parameters:
//   - addr: pointer to a 4-byte-aligned uint32 owned by the caller
//
// Example:
//
//	lock.Lock(&cell)
//	defer lock.Unlock(&cell)
//	// critical section
//
// Locking a cell that no goroutine ever unlocks blocks forever; see
// [EnableStallMonitor] for diagnosing such hangs.
func Lock(addr *uint32) {
	internal.Lock(addr)
}

// Unlock releases the cell at addr and wakes at most one parked waiter.
//
// The store of 0 is ordered before the wake, so a woken waiter always
// observes the release. Unlock never blocks, regardless of how many
// goroutines are parked.
//
// Parameters:
//   - addr: pointer to the held cell
//
// The caller must hold the lock. Unlocking a cell that is not held, or
// that a different goroutine holds, corrupts the protocol and is not
// detected.
func Unlock(addr *uint32) {
	internal.Unlock(addr)
}

// Waiters returns the number of goroutines currently parked on the cell
// at addr. The value is a point-in-time snapshot useful for tests and
// monitoring; it can be stale by the time it is read.
func Waiters(addr *uint32) int {
	return internal.Waiters(addr)
}

// Stats is a snapshot of the package's internal counters.
type Stats struct {
	// Acquires counts successful lock acquisitions, contended or not.
	Acquires uint64

	// Contended counts Lock calls that did not win on their first attempt.
	Contended uint64

	// Releases counts Unlock calls.
	Releases uint64

	// Waits counts goroutine parks on the internal wait table.
	Waits uint64

	// ImmediateReturns counts parks skipped because the cell changed
	// before the goroutine was enqueued.
	ImmediateReturns uint64

	// Wakes counts waiters handed a wake by Unlock.
	Wakes uint64

	// Timeouts counts bounded waits that expired while the stall monitor
	// was active.
	Timeouts uint64

	// StallsReported counts stall episodes the monitor has logged.
	StallsReported uint64

	// StallsResolved counts reported episodes whose waiter later won the
	// cell.
	StallsResolved uint64
}

// GetStats returns a snapshot of the package's counters.
//
// The snapshot is not atomic across fields: under concurrent load each
// field is individually exact but the set is mutually approximate.
//
// Example:
//
//	s := lock.GetStats()
//	fmt.Printf("acquires=%d contended=%d\n", s.Acquires, s.Contended)
func GetStats() Stats {
	s := internal.GetStats()
	return Stats{
		Acquires:         s.Acquires,
		Contended:        s.Contended,
		Releases:         s.Releases,
		Waits:            s.Waits,
		ImmediateReturns: s.ImmediateReturns,
		Wakes:            s.Wakes,
		Timeouts:         s.Timeouts,
		StallsReported:   s.StallsReported,
		StallsResolved:   s.StallsResolved,
	}
}

// Reset discards all internal state: parked-waiter bookkeeping, counters,
// and any enabled stall monitor.
//
// Reset is NOT safe for concurrent use with any other function in this
// package. The caller must guarantee no goroutine is parked and none is
// inside a lock operation. Intended for tests and benchmark harnesses;
// production code should never need it.
func Reset() {
	internal.Reset()
}

// EnableStallMonitor turns on opt-in stall diagnostics for all subsequent
// lock operations.
//
// While enabled, a goroutine parked longer than threshold on one cell
// produces a structured warning through logger, and optionally a
// human-readable report on reportWriter (pass nil to skip reports). The
// locking contract is unchanged: Lock still blocks until it wins, nothing
// times out, nothing panics.
//
// Parameters:
//   - threshold: how long one park may last before it is reported; zero
//     or negative selects the 30s default
//   - logger: destination for stall and recovery events; pass
//     zerolog.Nop() to keep only the [Stats] counters
//   - reportWriter: optional destination for banner reports
//
// Example:
//
//	lock.EnableStallMonitor(10*time.Second, log.Logger, os.Stderr)
//
// Monitoring adds a goroutine-identity lookup and an owner-table update to
// every acquisition, and a timer to every park. Uncontended TryLock gains
// roughly a microsecond; leave the monitor disabled on hot production
// paths unless a hang is being hunted.
func EnableStallMonitor(threshold time.Duration, logger zerolog.Logger, reportWriter io.Writer) {
	internal.EnableStallMonitor(threshold, logger, reportWriter)
}

// DisableStallMonitor turns stall diagnostics off. Goroutines already
// parked keep their bounded-wait loop until they acquire; new operations
// use the plain paths immediately.
func DisableStallMonitor() {
	internal.DisableStallMonitor()
}
