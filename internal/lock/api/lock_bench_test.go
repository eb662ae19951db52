// Copyright 2025 The memlock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import "testing"

func BenchmarkTryLockUncontended(b *testing.B) {
	Reset()
	var c uint32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TryLock(&c)
		Unlock(&c)
	}
}

func BenchmarkLockUnlockUncontended(b *testing.B) {
	Reset()
	var c uint32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Lock(&c)
		Unlock(&c)
	}
}

func BenchmarkLockUnlockContended(b *testing.B) {
	Reset()
	var c uint32
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Lock(&c)
			Unlock(&c)
		}
	})
}

// BenchmarkLockUnlockSpread measures contention diluted across many cells,
// the shape a sharded structure produces.
func BenchmarkLockUnlockSpread(b *testing.B) {
	Reset()
	var cells [64]uint32
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c := &cells[i&(len(cells)-1)]
			i++
			Lock(c)
			Unlock(c)
		}
	})
}

func BenchmarkUnlockNoWaiters(b *testing.B) {
	Reset()
	var c uint32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c = 1
		Unlock(&c)
	}
}
