package crash

import "golang.org/x/sys/unix"

// threadID is best-effort: the kernel task id of whatever OS thread the
// faulting goroutine is running on.
func threadID() int { return unix.Gettid() }
