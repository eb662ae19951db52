// Package api implements futex-style mutual exclusion over caller-owned
// 32-bit cells.
//
// A lock is not an object. It is any 4-byte-aligned uint32 the caller
// provides: a field in a struct, a slot in an mmap'd region, a word carved
// from a shared arena. Value 0 means unlocked, 1 means locked, and the
// package promises never to write anything else. All coordination state
// beyond the cell itself (parked waiters, counters, optional diagnostics)
// lives in process-local tables keyed by the cell's address.
//
// CRITICAL HOT PATHS:
//   - tryLock: one compare-and-swap. Uncontended acquisition takes the
//     same instruction a hand-rolled spinlock would.
//   - unlock: one atomic store plus one wake probe. With no waiters the
//     probe is a hash and a mutex acquire on an uncontended bucket.
//   - lock: degenerates to tryLock when the cell is free; parks on the
//     wait table otherwise and re-contends after every wake.
//
// Acquisition is deliberately unfair. A goroutine that arrives at a just
// released cell wins it ahead of a freshly woken waiter, which then simply
// parks again. Under heavy contention this barging keeps the cell hot in
// one cache line and avoids convoying; starvation of individual waiters is
// possible and accepted.
//
// Thread Safety: every exported function is safe for concurrent use on the
// same cell and on different cells, except Reset, which is documented
// separately.
package api

import (
	"io"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/kolkov/memlock/internal/lock/cell"
	"github.com/kolkov/memlock/internal/lock/futex"
	"github.com/kolkov/memlock/internal/lock/monitor"
)

var (
	// table parks and wakes waiters. Installed by init, replaced only by
	// Reset.
	table *futex.Table

	// mon is the optional stall monitor. Nil means every diagnostic hook
	// is a single atomic load and a branch.
	mon atomic.Pointer[monitor.Monitor]

	acquires  atomic.Uint64
	contended atomic.Uint64
	releases  atomic.Uint64
)

func init() {
	table = futex.NewTable()
}

// tryLock attempts one 0→1 transition on the cell at addr.
//
// CRITICAL HOT PATH: one CAS and one counter update when monitoring is off.
func tryLock(addr *uint32) bool {
	if !cell.TryAcquire(addr) {
		return false
	}
	acquires.Add(1)
	if m := mon.Load(); m != nil {
		m.NoteAcquire(uintptr(unsafe.Pointer(addr)), getGoroutineID())
	}
	return true
}

// lock acquires the cell at addr, parking the goroutine while the cell is
// held by someone else.
func lock(addr *uint32) {
	if tryLock(addr) {
		return
	}
	contended.Add(1)
	if m := mon.Load(); m != nil {
		lockSlowMonitored(addr, m)
		return
	}
	for {
		table.Wait(addr, cell.Locked)
		if tryLock(addr) {
			return
		}
	}
}

// lockSlowMonitored is the contended path with stall diagnostics enabled.
// Each unbounded park becomes a loop of bounded parks; every expiry is
// handed to the monitor and the goroutine goes right back to waiting. The
// caller-visible behavior is identical to the unmonitored path: block until
// the cell is won.
func lockSlowMonitored(addr *uint32, m *monitor.Monitor) {
	gid := getGoroutineID()
	a := uintptr(unsafe.Pointer(addr))
	start := time.Now()
	for {
		if table.WaitFor(addr, cell.Locked, m.Threshold()) {
			m.NoteStall(a, gid, time.Since(start))
		}
		if tryLock(addr) {
			m.NoteResolved(a, gid, time.Since(start))
			return
		}
	}
}

// unlock releases the cell at addr and wakes at most one parked waiter.
//
// The owner record is dropped before the store so the cell never appears
// owned by a goroutine that already released it. The store is ordered
// before the wake: a woken waiter that loses the re-contention race parks
// against the new cell value, never against a stale 1.
func unlock(addr *uint32) {
	if m := mon.Load(); m != nil {
		m.NoteRelease(uintptr(unsafe.Pointer(addr)))
	}
	cell.Release(addr)
	releases.Add(1)
	table.Wake(addr, 1)
}

// TryLock attempts to acquire the cell at addr without blocking.
// Returns true if this call transitioned the cell from 0 to 1.
//
// addr must point to a 4-byte-aligned uint32 that is used only through this
// package while it serves as a lock. Violations are not detected.
func TryLock(addr *uint32) bool {
	return tryLock(addr)
}

// Lock acquires the cell at addr, blocking until it is held.
//
// There is no acquisition order: the longest-waiting goroutine has no
// priority over a newly arriving one. Locking a cell nobody unlocks blocks
// forever.
func Lock(addr *uint32) {
	lock(addr)
}

// Unlock releases the cell at addr and wakes at most one waiter.
//
// The caller must hold the cell. Unlocking an unheld cell corrupts the
// protocol and is not detected.
func Unlock(addr *uint32) {
	unlock(addr)
}

// Stats is a snapshot of the package's counters.
type Stats struct {
	Acquires  uint64 // successful 0→1 transitions
	Contended uint64 // Lock calls that failed their first attempt
	Releases  uint64 // Unlock calls

	Waits            uint64 // parks on the wait table
	ImmediateReturns uint64 // waits that failed the value check
	Wakes            uint64 // waiters handed a wake
	Timeouts         uint64 // bounded waits that expired (monitored mode)

	StallsReported uint64 // stall episodes logged by the monitor
	StallsResolved uint64 // reported episodes that later won their cell
}

// GetStats returns a snapshot of all counters. The snapshot is not atomic
// across fields; under concurrent load the fields are individually exact
// but mutually approximate.
func GetStats() Stats {
	fs := table.Stats()
	s := Stats{
		Acquires:  acquires.Load(),
		Contended: contended.Load(),
		Releases:  releases.Load(),

		Waits:            fs.Waits,
		ImmediateReturns: fs.ImmediateReturns,
		Wakes:            fs.Wakes,
		Timeouts:         fs.Timeouts,
	}
	if m := mon.Load(); m != nil {
		s.StallsReported = m.StallsReported()
		s.StallsResolved = m.StallsResolved()
	}
	return s
}

// Reset reinstalls a fresh wait table, zeroes every counter, and disables
// the stall monitor.
//
// NOT safe for concurrent use: the caller must guarantee that no goroutine
// is parked and that none enters the package while Reset runs. A waiter
// parked across Reset is orphaned; the wake for it goes to the new table.
// Intended for tests and benchmark harnesses.
func Reset() {
	table = futex.NewTable()
	mon.Store(nil)
	acquires.Store(0)
	contended.Store(0)
	releases.Store(0)
}

// EnableStallMonitor turns on stall diagnostics for all subsequent lock
// operations.
//
// threshold bounds each individual park; zero or negative selects the
// monitor's default. logger receives structured stall and recovery events
// (pass zerolog.Nop() to keep only the counters). reportWriter, when
// non-nil, additionally receives a human-readable banner per stall.
//
// Enabling is cheap to leave on in test and staging builds: uncontended
// operations gain one owner-table update and one goroutine id lookup per
// acquisition, contended ones a timer per park.
func EnableStallMonitor(threshold time.Duration, logger zerolog.Logger, reportWriter io.Writer) {
	mon.Store(monitor.New(monitor.Options{
		Threshold:    threshold,
		Logger:       logger,
		ReportWriter: reportWriter,
	}))
}

// DisableStallMonitor turns stall diagnostics off. Goroutines already
// parked in monitored mode keep their bounded-wait loop until they win
// their cell; new operations take the plain paths.
func DisableStallMonitor() {
	mon.Store(nil)
}

// Waiters returns the number of goroutines currently parked on the cell at
// addr. Diagnostic; the value is stale the moment it returns.
func Waiters(addr *uint32) int {
	return table.Waiters(addr)
}
