//go:build unix

package crash

import (
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/sys/unix"
)

// fatalSignals are the only signals the interceptor subscribes to; everything
// else keeps its default disposition untouched.
var fatalSignals = []os.Signal{unix.SIGSEGV, unix.SIGILL, unix.SIGBUS, unix.SIGFPE}

// installSignals subscribes to the fatal-signal set and starts the watcher
// that translates deliveries into crash reasons. Returns the uninstall
// function the state machine calls on first entry.
//
// Synchronous faults raised inside Go code never reach this path: the runtime
// converts them to panics which Guard picks up with the fault address intact.
// The watcher covers asynchronous deliveries (kill, faults on non-Go
// threads), where the OS does not hand us a fault record, so the address is
// reported as zero.
func installSignals(h *Handler) func() {
	ch := make(chan os.Signal, len(fatalSignals))
	signal.Notify(ch, fatalSignals...)
	go watchSignals(h, ch)
	return func() { signal.Reset(fatalSignals...) }
}

func watchSignals(h *Handler, ch <-chan os.Signal) {
	for sig := range ch {
		// Re-arm the OS default first so a fault while handling this
		// fault kills the process instead of recursing.
		signal.Reset(sig)

		// Synthetic trace start: the watcher's own return address.
		var pcs [1]uintptr
		runtime.Callers(1, pcs[:])
		h.Crash(reasonForSignal(sig), nil, pcs[0])
	}
}

func reasonForSignal(sig os.Signal) Reason {
	switch sig {
	case unix.SIGSEGV:
		return SegFaultReason(0)
	case unix.SIGILL:
		return IllegalInstructionReason(0)
	case unix.SIGBUS:
		return BusErrorReason(0)
	case unix.SIGFPE:
		return FloatingPointErrorReason(0)
	default:
		return InternalErrorReason(sig.String())
	}
}
