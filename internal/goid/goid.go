// Package goid extracts the current goroutine's identity. The crash handler
// keys its per-thread panic stage on this value because Go offers no
// thread-local storage and the handler must work from whatever goroutine
// faulted.
package goid

import (
	"runtime"
)

// ID returns the current goroutine id. It parses the header line of
// runtime.Stack ("goroutine N [running]:"), which is the only stable way to
// observe goroutine identity without linker tricks. The buffer is small and
// stack-allocated; the call is safe during fault handling.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Skip "goroutine ".
	const prefix = len("goroutine ")
	if n <= prefix {
		return 0
	}
	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
