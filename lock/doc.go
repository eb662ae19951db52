// Package lock provides futex-style mutual exclusion over caller-owned
// 32-bit memory cells.
//
// Unlike sync.Mutex, a lock here is not an opaque object. It is any
// 4-byte-aligned uint32 the caller provides: a struct field, a slot in a
// file-backed mapping, a word carved from a shared arena. The package
// stores exactly two values in the cell, 0 (unlocked) and 1 (locked), and
// keeps every other piece of coordination state in process-local tables
// keyed by the cell's address. Zero-initialized memory is ready to lock.
//
// # Quick Start
//
//	package main
//
//	import "github.com/kolkov/memlock/lock"
//
//	var cell uint32 // zero value == unlocked
//
//	func main() {
//		lock.Lock(&cell)
//		// critical section
//		lock.Unlock(&cell)
//	}
//
// # API Overview
//
// The package provides functions for:
//   - Acquisition: [Lock], [TryLock]
//   - Release: [Unlock]
//   - Cell placement in shared regions: [NewArena], [Arena.Carve]
//   - Diagnostics: [GetStats], [Waiters], [EnableStallMonitor]
//   - Version information: [GetInfo], [Version], [IsCompatible]
//
// # How It Works
//
// TryLock is a single compare-and-swap of the cell from 0 to 1. Lock tries
// the same swap and, when it fails, parks the goroutine on an internal wait
// table keyed by the cell's address; the park is skipped whenever the cell
// no longer holds 1 at park time, which closes the window between a failed
// swap and a concurrent release. Unlock atomically stores 0 and wakes at
// most one parked waiter, which then contends for the cell again like any
// newcomer.
//
// Acquisition is unfair. A goroutine arriving at a just released cell may
// win it ahead of a waiter that was already parked; the woken waiter simply
// parks again. This barging keeps throughput high under contention at the
// cost of per-waiter latency guarantees: there are none.
//
// The package never writes to caller memory outside the cell, never blocks
// in Unlock, and allocates nothing on acquisition or release once a waiter
// record has been pooled.
//
// # Caller Obligations
//
// The package does not validate its preconditions; violating them corrupts
// the locking protocol silently:
//   - the cell must be 4-byte aligned,
//   - the cell must not be written by anything but this package while it
//     serves as a lock,
//   - Unlock must only be called by the current holder,
//   - locking is not reentrant: a holder that locks the same cell again
//     deadlocks.
//
// # Performance Characteristics
//
//	TryLock:            one CAS, lock-free, never blocks
//	Uncontended Lock:   one CAS
//	Uncontended Unlock: one store plus one wake probe
//	Contended Lock:     park on a 512-bucket hash table, woken as FIFO
//	                    candidates but acquiring by race
//	Allocation:         none on steady-state hot paths
//
// # Examples
//
// See package-level examples in the documentation:
//   - [Example] - Guarding a counter with a plain uint32
//   - [Example_tryLock] - Opportunistic locking without blocking
//   - [Example_arena] - Carving lock cells out of one buffer
//
// # Links
//
// Project repository:
// https://github.com/kolkov/memlock
//
// Documentation:
// https://pkg.go.dev/github.com/kolkov/memlock/lock
package lock
