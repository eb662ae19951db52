// Package cell defines the mutex cell: one 32-bit word in caller-owned
// shared memory holding one of two values.
//
// Cell values:
//   - Unlocked (0): the mutex is free.
//   - Locked   (1): exactly one agent holds the mutex.
//
// Every transition is a single atomic instruction, so an observer never sees
// a torn or intermediate value. The cell is allocated and freed by the
// caller; this package only defines the access protocol and a helper (Arena)
// for carving aligned cells out of a caller-supplied byte region without the
// locking layer allocating anything itself.
package cell

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

const (
	// Unlocked means no agent holds the mutex.
	Unlocked uint32 = 0

	// Locked means exactly one agent holds the mutex.
	Locked uint32 = 1
)

// Size is the width of a mutex cell in bytes. Cells must start on a
// Size-aligned address.
const Size = 4

// TryAcquire atomically flips the cell from Unlocked to Locked.
//
// This is the ONLY way a mutex is ever acquired: one compare-and-swap, no
// blocking, no other side effect. Returns true if this call performed the
// 0→1 transition (the caller now holds the mutex), false if the cell already
// read Locked (cell unchanged).
//
//go:nosplit
func TryAcquire(addr *uint32) bool {
	return atomic.CompareAndSwapUint32(addr, Unlocked, Locked)
}

// Release atomically stores Unlocked into the cell.
//
// Unconditional store, not a compare-and-swap: the caller is trusted to hold
// the mutex. Releasing a cell the caller does not hold is a caller bug with
// undefined consequences, and is deliberately not detected here.
//
//go:nosplit
func Release(addr *uint32) {
	atomic.StoreUint32(addr, Unlocked)
}

// Load atomically reads the cell's current value.
//
//go:nosplit
func Load(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}

// Arena carving errors.
var (
	// ErrArenaTooSmall is returned by NewArena when the region cannot hold
	// even a single aligned cell.
	ErrArenaTooSmall = errors.New("cell: region smaller than one aligned cell")

	// ErrArenaFull is returned by Carve when the region has no room left
	// for another cell.
	ErrArenaFull = errors.New("cell: arena exhausted")
)

// Arena carves aligned mutex cells out of one caller-owned byte region.
//
// Every carved cell aliases the caller's buffer; the arena itself allocates
// nothing. This models the shared-memory discipline the locking layer is
// built for: the caller maps and owns the region, the cells are just
// addresses inside it.
//
// Carving is not safe for concurrent use. Carve all cells during setup,
// before agents start locking; the carved cells are then free to be used
// concurrently.
type Arena struct {
	buf []byte
	off uintptr // next carve offset, always Size-aligned relative to buf[0]
}

// NewArena wraps region as a cell arena.
//
// The first cell starts at the first Size-aligned address inside region
// (region itself need not be aligned). Returns ErrArenaTooSmall if no
// aligned cell fits.
func NewArena(region []byte) (*Arena, error) {
	if len(region) < Size {
		return nil, ErrArenaTooSmall
	}
	base := uintptr(unsafe.Pointer(&region[0]))
	pad := (Size - base%Size) % Size
	if uintptr(len(region)) < pad+Size {
		return nil, ErrArenaTooSmall
	}
	return &Arena{buf: region, off: pad}, nil
}

// Carve returns the next aligned cell, initialized to Unlocked.
//
// Initialization uses an atomic store so a cell may be handed to other
// agents immediately. Returns ErrArenaFull once the region is exhausted.
func (a *Arena) Carve() (*uint32, error) {
	if a.off+Size > uintptr(len(a.buf)) {
		return nil, ErrArenaFull
	}
	p := (*uint32)(unsafe.Pointer(&a.buf[a.off]))
	a.off += Size
	atomic.StoreUint32(p, Unlocked)
	return p, nil
}

// Remaining reports how many more cells the arena can carve.
func (a *Arena) Remaining() int {
	if a.off >= uintptr(len(a.buf)) {
		return 0
	}
	return int((uintptr(len(a.buf)) - a.off) / Size)
}
