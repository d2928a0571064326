//go:build !linux && !windows

package crash

// No portable thread-identity primitive here; the goroutine id in the header
// still distinguishes concurrent panics.
func threadID() int { return 0 }
