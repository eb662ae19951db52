package lock

import "github.com/kolkov/memlock/internal/lock/cell"

// Arena placement errors.
var (
	// ErrArenaTooSmall is returned by NewArena when the region cannot hold
	// even one aligned cell.
	ErrArenaTooSmall = cell.ErrArenaTooSmall

	// ErrArenaFull is returned by Carve when the region is exhausted.
	ErrArenaFull = cell.ErrArenaFull
)

// Arena carves aligned lock cells out of one caller-provided byte region.
//
// The typical use is a file-backed or otherwise shared mapping in which
// many locks must live at known offsets:
//
//	region, _ := syscall.Mmap(fd, 0, 4096, prot, flags)
//	arena, err := lock.NewArena(region)
//	if err != nil {
//		return err
//	}
//	a, _ := arena.Carve()
//	b, _ := arena.Carve()
//	lock.Lock(a)
//
// An Arena is not safe for concurrent carving; carve all cells during
// setup, then share the cells freely.
type Arena struct {
	inner *cell.Arena
}

// NewArena wraps region for carving. The region's start is rounded up to
// the next 4-byte boundary; the remainder must still hold at least one
// cell or ErrArenaTooSmall is returned.
//
// The caller must keep region alive and mapped for as long as any carved
// cell is in use.
func NewArena(region []byte) (*Arena, error) {
	a, err := cell.NewArena(region)
	if err != nil {
		return nil, err
	}
	return &Arena{inner: a}, nil
}

// Carve returns the next aligned cell, initialized to unlocked. Returns
// ErrArenaFull when the region is exhausted.
func (a *Arena) Carve() (*uint32, error) {
	return a.inner.Carve()
}

// Remaining reports how many more cells Carve can produce.
func (a *Arena) Remaining() int {
	return a.inner.Remaining()
}
