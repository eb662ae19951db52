package futex

import (
	"testing"
)

// BenchmarkWakeNoWaiters measures the Unlock-side probe cost when nobody is
// parked: one bucket lock round trip.
func BenchmarkWakeNoWaiters(b *testing.B) {
	tab := NewTable()
	cell := uint32(0)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.Wake(&cell, 1)
	}
}

// BenchmarkWaitImmediateReturn measures the no-park fast path: the cell no
// longer holds the expected value, so Wait returns under the bucket lock
// without registering.
func BenchmarkWaitImmediateReturn(b *testing.B) {
	tab := NewTable()
	cell := uint32(0)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.Wait(&cell, 1)
	}
}

// BenchmarkBucketFor measures the address hash on its own.
func BenchmarkBucketFor(b *testing.B) {
	tab := NewTable()
	cells := make([]uint32, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.bucketFor(addrOf(&cells[i%len(cells)]))
	}
}

// BenchmarkParkWake measures a full park/wake round trip between two
// goroutines through one cell.
func BenchmarkParkWake(b *testing.B) {
	tab := NewTable()
	cell := uint32(1)
	done := make(chan struct{})

	go func() {
		for {
			if tab.Wake(&cell, 1) == 1 {
				continue
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.Wait(&cell, 1)
	}
	b.StopTimer()
	close(done)
}
