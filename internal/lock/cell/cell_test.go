package cell

import (
	"errors"
	"testing"
	"unsafe"
)

// TestTryAcquire tests the 0→1 transition semantics.
func TestTryAcquire(t *testing.T) {
	tests := []struct {
		name      string
		initial   uint32
		want      bool
		wantValue uint32
	}{
		{
			name:      "unlocked cell is acquired",
			initial:   Unlocked,
			want:      true,
			wantValue: Locked,
		},
		{
			name:      "locked cell is left unchanged",
			initial:   Locked,
			want:      false,
			wantValue: Locked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.initial
			got := TryAcquire(&c)
			if got != tt.want {
				t.Errorf("TryAcquire() = %v, want %v", got, tt.want)
			}
			if c != tt.wantValue {
				t.Errorf("cell = %d after TryAcquire, want %d", c, tt.wantValue)
			}
		})
	}
}

// TestTryAcquireTwice verifies the second attempt without a release fails
// and does not disturb the cell.
func TestTryAcquireTwice(t *testing.T) {
	var c uint32

	if !TryAcquire(&c) {
		t.Fatal("first TryAcquire failed on an unlocked cell")
	}
	if TryAcquire(&c) {
		t.Error("second TryAcquire succeeded without a release")
	}
	if c != Locked {
		t.Errorf("cell = %d, want %d (Locked)", c, Locked)
	}
}

// TestRelease verifies the release store and that the cell is acquirable
// again afterwards.
func TestRelease(t *testing.T) {
	c := Locked

	Release(&c)
	if c != Unlocked {
		t.Errorf("cell = %d after Release, want %d (Unlocked)", c, Unlocked)
	}
	if !TryAcquire(&c) {
		t.Error("TryAcquire failed on a released cell")
	}
}

// TestLoad verifies Load observes exactly the stored value.
func TestLoad(t *testing.T) {
	var c uint32

	if got := Load(&c); got != Unlocked {
		t.Errorf("Load() = %d, want %d", got, Unlocked)
	}
	TryAcquire(&c)
	if got := Load(&c); got != Locked {
		t.Errorf("Load() = %d, want %d", got, Locked)
	}
}

// TestNewArenaTooSmall covers regions that cannot hold one aligned cell.
func TestNewArenaTooSmall(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty region", size: 0},
		{name: "region below cell size", size: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArena(make([]byte, tt.size))
			if !errors.Is(err, ErrArenaTooSmall) {
				t.Errorf("NewArena(%d bytes) error = %v, want ErrArenaTooSmall", tt.size, err)
			}
		})
	}
}

// TestCarveAlignment verifies every carved cell sits on a 4-byte boundary
// and starts out Unlocked, including when the region itself is misaligned.
func TestCarveAlignment(t *testing.T) {
	region := make([]byte, 64)

	// Deliberately misalign the start of the arena region.
	for shift := 0; shift < Size; shift++ {
		a, err := NewArena(region[shift:])
		if err != nil {
			t.Fatalf("NewArena(shift=%d) error = %v", shift, err)
		}
		p, err := a.Carve()
		if err != nil {
			t.Fatalf("Carve(shift=%d) error = %v", shift, err)
		}
		if addr := uintptr(unsafe.Pointer(p)); addr%Size != 0 {
			t.Errorf("shift=%d: carved cell at %#x is not %d-byte aligned", shift, addr, Size)
		}
		if *p != Unlocked {
			t.Errorf("shift=%d: carved cell = %d, want %d (Unlocked)", shift, *p, Unlocked)
		}
	}
}

// TestCarveExhaustion verifies Carve hands out exactly Remaining() cells and
// then reports ErrArenaFull.
func TestCarveExhaustion(t *testing.T) {
	a, err := NewArena(make([]byte, 4*Size))
	if err != nil {
		t.Fatalf("NewArena error = %v", err)
	}

	want := a.Remaining()
	carved := 0
	for {
		_, err := a.Carve()
		if errors.Is(err, ErrArenaFull) {
			break
		}
		if err != nil {
			t.Fatalf("Carve error = %v", err)
		}
		carved++
		if carved > want {
			t.Fatalf("carved %d cells, Remaining() promised %d", carved, want)
		}
	}
	if carved != want {
		t.Errorf("carved %d cells, want %d", carved, want)
	}
	if a.Remaining() != 0 {
		t.Errorf("Remaining() = %d after exhaustion, want 0", a.Remaining())
	}
}

// TestCarvedCellsIndependent verifies cells from one arena do not alias.
func TestCarvedCellsIndependent(t *testing.T) {
	a, err := NewArena(make([]byte, 8*Size))
	if err != nil {
		t.Fatalf("NewArena error = %v", err)
	}

	first, err := a.Carve()
	if err != nil {
		t.Fatalf("Carve error = %v", err)
	}
	second, err := a.Carve()
	if err != nil {
		t.Fatalf("Carve error = %v", err)
	}

	if !TryAcquire(first) {
		t.Fatal("TryAcquire failed on first carved cell")
	}
	if *second != Unlocked {
		t.Error("acquiring the first cell disturbed the second")
	}
	if !TryAcquire(second) {
		t.Error("TryAcquire failed on second cell while first is held")
	}
}
