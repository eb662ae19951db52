// Package monitor implements opt-in stall diagnostics for contended locks.
//
// A mutex cell nobody unlocks parks its waiters forever, and an infinite
// wait is invisible from outside the process. When the monitor is enabled,
// the contended lock path replaces its single unbounded wait with a loop of
// bounded waits and hands every expiry to this package, which turns
// sustained waits into structured log events and optional human-readable
// reports. The caller-visible locking contract is untouched: the lock call
// still blocks until it wins the cell, nothing panics, nothing times out.
//
// The monitor also keeps an owner table, mapping a cell address to the agent
// that most recently won the cell, so a stall report can point at the holder
// most likely sitting on it. The table exists only while monitoring is enabled
// and costs one map store and one stack capture per acquisition in that
// mode; the unmonitored paths never touch this package.
package monitor

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolkov/memlock/internal/lock/stackdepot"
)

// DefaultThreshold is the stall threshold used when Options leaves it unset.
// Thirty seconds is far beyond any healthy critical section while still
// catching wedged processes long before a human would.
const DefaultThreshold = 30 * time.Second

// Options configures a Monitor.
type Options struct {
	// Threshold is how long one bounded wait may run before its expiry
	// counts as a stall. Zero or negative selects DefaultThreshold.
	Threshold time.Duration

	// Logger receives stall and recovery events. Required; pass
	// zerolog.Nop() for silent monitoring (counters still advance).
	Logger zerolog.Logger

	// ReportWriter, when non-nil, additionally receives a human-readable
	// report for every stall, in the banner format of Report.Format.
	ReportWriter io.Writer
}

// ownerRecord describes the agent that most recently won a monitored cell.
type ownerRecord struct {
	gid   int64
	stack uint64 // stackdepot hash of the acquire site
	since time.Time
}

// stallKey identifies one stall episode: one waiter on one cell.
type stallKey struct {
	addr uintptr
	gid  int64
}

// Monitor tracks monitored cells and reports stalls.
//
// All methods are safe for concurrent use; the lock path calls them from
// arbitrary goroutines.
type Monitor struct {
	threshold time.Duration
	log       zerolog.Logger

	// reportW receives banner reports; reportMu prevents interleaving.
	reportW  io.Writer
	reportMu sync.Mutex

	// owners maps cell address → *ownerRecord for cells acquired while
	// monitoring. Entries are replaced on acquire and dropped on release.
	owners sync.Map

	// stalled maps stallKey → struct{} so one stall episode logs once,
	// however many bounded waits expire before the cell is won.
	stalled sync.Map

	stallsReported atomic.Uint64
	stallsResolved atomic.Uint64
}

// New returns a Monitor with opts applied.
func New(opts Options) *Monitor {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Monitor{
		threshold: opts.Threshold,
		log:       opts.Logger,
		reportW:   opts.ReportWriter,
	}
}

// Threshold returns the bounded-wait duration the lock path should use.
func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}

// NoteAcquire records gid as the current owner of the cell at addr.
//
// Called by the lock path on every successful acquisition while monitoring
// is enabled. The acquire site is interned so a later stall on this cell
// can show where the holder took it.
func (m *Monitor) NoteAcquire(addr uintptr, gid int64) {
	m.owners.Store(addr, &ownerRecord{
		gid:   gid,
		stack: stackdepot.Capture(1),
		since: time.Now(),
	})
}

// NoteRelease drops the owner record for the cell at addr.
func (m *Monitor) NoteRelease(addr uintptr) {
	m.owners.Delete(addr)
}

// NoteStall records that waiter gid has been parked on addr beyond the
// threshold. The first expiry of an episode emits the report; subsequent
// expiries of the same parked waiter are silent, since the episode is
// already known and the waiter is still just waiting.
func (m *Monitor) NoteStall(addr uintptr, gid int64, waited time.Duration) {
	if _, known := m.stalled.LoadOrStore(stallKey{addr: addr, gid: gid}, struct{}{}); known {
		return
	}
	m.stallsReported.Add(1)

	r := Report{
		Addr:   addr,
		Waiter: gid,
		Waited: waited,
		Stack:  stackdepot.Capture(1),
	}
	if v, ok := m.owners.Load(addr); ok {
		rec := v.(*ownerRecord)
		r.HasOwner = true
		r.Owner = rec.gid
		r.OwnerStack = rec.stack
		r.Held = time.Since(rec.since)
	}

	ev := m.log.Warn().
		Str("cell", hexAddr(r.Addr)).
		Int64("waiter", r.Waiter).
		Dur("waited", r.Waited)
	if r.HasOwner {
		ev = ev.Int64("owner", r.Owner).Dur("held", r.Held)
	}
	ev.Str("wait_site", stackdepot.Format(r.Stack)).Msg("lock stall")

	if m.reportW != nil {
		m.reportMu.Lock()
		r.Format(m.reportW)
		m.reportMu.Unlock()
	}
}

// NoteResolved marks the end of a stall episode: the waiter finally won the
// cell. No-op unless a stall was reported for this waiter on this cell.
func (m *Monitor) NoteResolved(addr uintptr, gid int64, waited time.Duration) {
	if _, ok := m.stalled.LoadAndDelete(stallKey{addr: addr, gid: gid}); !ok {
		return
	}
	m.stallsResolved.Add(1)

	m.log.Info().
		Str("cell", hexAddr(addr)).
		Int64("waiter", gid).
		Dur("waited", waited).
		Msg("lock stall resolved")
}

// StallsReported returns the number of stall episodes reported so far.
func (m *Monitor) StallsReported() uint64 {
	return m.stallsReported.Load()
}

// StallsResolved returns the number of reported episodes that later won
// their cell.
func (m *Monitor) StallsResolved() uint64 {
	return m.stallsResolved.Load()
}
