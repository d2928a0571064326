//go:build unix

package crash

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// terminate ends the process abnormally so the OS observes a genuine fault
// and can write a core dump. Escalation ladder: raise the fault signal, then
// abort, then the unconditional exit primitive with a fixed nonzero status.
func terminate() {
	// Drop every Notify registration so raised signals get OS defaults.
	signal.Reset()

	pid := unix.Getpid()
	_ = unix.Kill(pid, unix.SIGSEGV)
	_ = unix.Kill(pid, unix.SIGABRT)
	os.Exit(134)
}
