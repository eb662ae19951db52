// Package futex provides address-keyed wait and wake for the locking layer.
//
// The facility mirrors the contract of hardware and OS wait-on-address
// primitives (Linux futex, WebAssembly memory.atomic.wait32): an agent may
// park on a 32-bit cell only while the cell still holds an expected value,
// and a wake targeted at that address resumes up to a requested number of
// parked agents. The expected-value re-check and the waiter registration
// happen under one bucket lock, which closes the classic lost-wakeup window
// between "I saw the lock held" and "I am parked".
//
// Design:
//   - Fixed array of 512 buckets; a cell address maps to a bucket via a
//     multiplicative hash (64-bit golden ratio constant, top bits as index).
//   - Each bucket holds a mutex and an intrusive doubly-linked list of
//     waiters. Distinct addresses may share a bucket; wakes match on the
//     exact address, never on the bucket.
//   - Each waiter parks on its own buffered channel. A waker dequeues the
//     waiter and signals the channel while still holding the bucket lock, so
//     a timed waiter that lost the race against a concurrent wake always
//     finds the signal already buffered (see WaitFor).
//   - Waiter records recycle through a sync.Pool; steady-state waiting does
//     not allocate.
//
// A return from Wait says nothing about the cell: wakes may be delivered
// with no matching release ("spurious" from the locking layer's point of
// view), and a woken agent may lose the cell to a barging rival. Callers
// must re-validate their condition after every return.
package futex

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

const (
	// bucketBits sets the size of the bucket array (2^bucketBits buckets).
	// 512 buckets keep the table at a few KiB while making collisions
	// between actively contended cells unlikely.
	bucketBits = 9

	// bucketCount is the number of buckets in a Table.
	bucketCount = 1 << bucketBits

	// hashMultiplier is the 64-bit golden ratio constant. Multiplying an
	// address by it and keeping the top bucketBits bits spreads the 4- and
	// 8-byte-aligned cell addresses seen in practice evenly across buckets.
	hashMultiplier = 0x9E3779B97F4A7C15
)

// waiter is one parked agent's registration in a bucket list.
//
// The channel carries exactly one signal per park: a waker sends after
// unlinking the waiter, the parked agent receives and recycles the record.
type waiter struct {
	addr   uintptr       // cell the agent is parked on
	ch     chan struct{} // buffered(1); signaled once by a waker
	prev   *waiter
	next   *waiter
	queued bool // on a bucket list; guarded by the bucket mutex
}

// bucket is one slot of the wait table: a lock plus the list of waiters
// whose cell addresses hash here.
type bucket struct {
	mu   sync.Mutex
	head *waiter
	tail *waiter
}

// enqueue appends w to the bucket's waiter list. Caller holds b.mu.
func (b *bucket) enqueue(w *waiter) {
	w.queued = true
	w.prev = b.tail
	w.next = nil
	if b.tail != nil {
		b.tail.next = w
	} else {
		b.head = w
	}
	b.tail = w
}

// remove unlinks w from the bucket's waiter list. Caller holds b.mu.
func (b *bucket) remove(w *waiter) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		b.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		b.tail = w.prev
	}
	w.prev = nil
	w.next = nil
	w.queued = false
}

// Stats is a snapshot of facility counters since the Table was created.
type Stats struct {
	// Waits counts calls that actually parked.
	Waits uint64

	// ImmediateReturns counts wait attempts that returned without parking
	// because the cell no longer held the expected value.
	ImmediateReturns uint64

	// Wakes counts waiters actually resumed by Wake calls.
	Wakes uint64

	// Timeouts counts bounded waits that expired before a wake arrived.
	Timeouts uint64
}

// Table is an address-keyed wait table.
//
// One Table serves any number of cells; the locking layer keeps a single
// process-wide instance, like a kernel's futex table. The zero value is not
// usable; call NewTable.
type Table struct {
	buckets [bucketCount]bucket
	pool    sync.Pool

	waits            atomic.Uint64
	immediateReturns atomic.Uint64
	wakes            atomic.Uint64
	timeouts         atomic.Uint64
}

// NewTable returns an empty wait table.
func NewTable() *Table {
	t := &Table{}
	t.pool.New = func() any {
		return &waiter{ch: make(chan struct{}, 1)}
	}
	return t
}

// bucketFor maps a cell address to its bucket.
//
//go:nosplit
func (t *Table) bucketFor(addr uintptr) *bucket {
	h := uint64(addr) * hashMultiplier
	return &t.buckets[h>>(64-bucketBits)]
}

func (t *Table) getWaiter(addr uintptr) *waiter {
	w := t.pool.Get().(*waiter)
	w.addr = addr
	return w
}

func (t *Table) putWaiter(w *waiter) {
	w.addr = 0
	t.pool.Put(w)
}

// Wait parks the caller until a wake targets addr, provided the cell still
// holds expected at registration time.
//
// The value check and the enqueue are one critical section under the bucket
// lock. A concurrent releaser therefore either stores the new value before
// this check runs (the check fails and Wait returns at once) or finds the
// waiter already queued when its wake takes the same lock. There is no
// interleaving in which the wake is lost.
//
// Wait returning says nothing about the cell's current value: the wake may
// be spurious, or another agent may have taken the cell first. Callers
// re-validate and, if need be, wait again.
func (t *Table) Wait(addr *uint32, expected uint32) {
	key := uintptr(unsafe.Pointer(addr))
	w := t.getWaiter(key)
	b := t.bucketFor(key)

	b.mu.Lock()
	if atomic.LoadUint32(addr) != expected {
		b.mu.Unlock()
		t.putWaiter(w)
		t.immediateReturns.Add(1)
		return
	}
	b.enqueue(w)
	b.mu.Unlock()
	t.waits.Add(1)

	<-w.ch
	t.putWaiter(w)
}

// WaitFor is Wait with an upper bound on the parked time.
//
// Returns true if the bound expired with no wake delivered; the waiter has
// been removed and the caller re-validates (and typically waits again).
// Returns false when a wake ended the wait or the cell no longer held
// expected at registration time.
//
// A wake can race the expiring timer. The waker unlinks the waiter and
// signals its channel inside the bucket critical section, so after the timed
// path re-takes the lock there are only two states: still queued (genuine
// timeout, unlink and report it) or already unlinked (the buffered signal is
// guaranteed present, drain it and report a wake). The signal can never
// arrive after the waiter record is recycled.
//
// The unbounded Lock path never calls WaitFor; it exists for the stall
// monitor's bounded re-waits and for tests.
func (t *Table) WaitFor(addr *uint32, expected uint32, d time.Duration) bool {
	key := uintptr(unsafe.Pointer(addr))
	w := t.getWaiter(key)
	b := t.bucketFor(key)

	b.mu.Lock()
	if atomic.LoadUint32(addr) != expected {
		b.mu.Unlock()
		t.putWaiter(w)
		t.immediateReturns.Add(1)
		return false
	}
	b.enqueue(w)
	b.mu.Unlock()
	t.waits.Add(1)

	timer := time.NewTimer(d)
	select {
	case <-w.ch:
		timer.Stop()
		t.putWaiter(w)
		return false
	case <-timer.C:
	}

	b.mu.Lock()
	if w.queued {
		b.remove(w)
		b.mu.Unlock()
		t.putWaiter(w)
		t.timeouts.Add(1)
		return true
	}
	b.mu.Unlock()

	// Lost the race: a waker unlinked this waiter before the lock above was
	// taken, so its signal is already buffered.
	<-w.ch
	t.putWaiter(w)
	return false
}

// Wake resumes up to n agents parked on addr and returns the number resumed.
//
// Matching is by exact cell address: waiters for other cells that hash into
// the same bucket are never touched. Waiters resume in park order, though
// nothing downstream may rely on that; the locking layer's contract is
// "at least one woken", not FIFO handoff.
//
// Waking an address with no parked waiters returns 0 and has no effect
// beyond one uncontended bucket lock round trip.
func (t *Table) Wake(addr *uint32, n int) int {
	if n <= 0 {
		return 0
	}
	key := uintptr(unsafe.Pointer(addr))
	b := t.bucketFor(key)

	woken := 0
	b.mu.Lock()
	for w := b.head; w != nil && woken < n; {
		next := w.next
		if w.addr == key {
			b.remove(w)
			w.ch <- struct{}{}
			woken++
		}
		w = next
	}
	b.mu.Unlock()

	if woken > 0 {
		t.wakes.Add(uint64(woken))
	}
	return woken
}

// Waiters reports how many agents are currently parked on addr.
//
// Snapshot only: the count may change the moment the bucket unlocks. Used
// by tests and the stats surface, never by the locking algorithms.
func (t *Table) Waiters(addr *uint32) int {
	key := uintptr(unsafe.Pointer(addr))
	b := t.bucketFor(key)

	n := 0
	b.mu.Lock()
	for w := b.head; w != nil; w = w.next {
		if w.addr == key {
			n++
		}
	}
	b.mu.Unlock()
	return n
}

// Stats returns a snapshot of the facility counters.
func (t *Table) Stats() Stats {
	return Stats{
		Waits:            t.waits.Load(),
		ImmediateReturns: t.immediateReturns.Load(),
		Wakes:            t.wakes.Load(),
		Timeouts:         t.timeouts.Load(),
	}
}
