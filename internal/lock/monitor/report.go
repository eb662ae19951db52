package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kolkov/memlock/internal/lock/stackdepot"
)

// Report is one stall episode, ready for formatting.
type Report struct {
	Addr   uintptr       // cell address
	Waiter int64         // goroutine id of the stalled waiter
	Waited time.Duration // how long the waiter has been parked
	Stack  uint64        // stackdepot hash of the wait site

	// Owner fields are valid only when HasOwner is true. A cell can have
	// no recorded owner when it was locked before monitoring was enabled
	// or when the holder released it between expiry and lookup.
	HasOwner   bool
	Owner      int64
	OwnerStack uint64
	Held       time.Duration
}

// Format writes a human-readable stall report to w.
//
// The banner follows the layout of Go's race detector output:
//
//	==================
//	WARNING: LOCK STALL
//	Goroutine 42 waiting 30s on cell 0xc000014000:
//	  <wait-site stack>
//
//	Last acquired by goroutine 7 (held 31s):
//	  <acquire-site stack>
//	==================
func (r *Report) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "WARNING: LOCK STALL\n")
	fmt.Fprintf(w, "Goroutine %d waiting %v on cell %s:\n", r.Waiter, r.Waited.Round(time.Millisecond), hexAddr(r.Addr))
	fmt.Fprint(w, stackdepot.Format(r.Stack))
	fmt.Fprintf(w, "\n")
	if r.HasOwner {
		fmt.Fprintf(w, "Last acquired by goroutine %d (held %v):\n", r.Owner, r.Held.Round(time.Millisecond))
		fmt.Fprint(w, stackdepot.Format(r.OwnerStack))
	} else {
		fmt.Fprintf(w, "No recorded owner for this cell.\n")
	}
	fmt.Fprintf(w, "==================\n")
}

// String returns the formatted report as a string.
func (r *Report) String() string {
	var sb strings.Builder
	r.Format(&sb)
	return sb.String()
}

// hexAddr renders a cell address the way debuggers print pointers.
func hexAddr(addr uintptr) string {
	return fmt.Sprintf("0x%x", addr)
}
