// Copyright 2025 The memlock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import "runtime"

// getGoroutineID returns the current goroutine's id.
//
// The runtime does not expose goroutine ids, so this parses the header of a
// single-goroutine stack dump ("goroutine 12 [running]:"). That costs on the
// order of a microsecond, which is why identity is captured only on the
// monitored paths: stall diagnostics need to say WHO is stuck, the lock
// algorithm itself never does.
func getGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine id from a stack dump header.
// Returns 0 when the header is not in the expected form.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
