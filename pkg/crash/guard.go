package crash

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// faultError is implemented by the runtime errors produced under
// debug.SetPanicOnFault; Addr carries the OS-reported fault address.
type faultError interface {
	error
	Addr() uintptr
}

// Guard runs fn with hardware-fault panics enabled and routes any panic that
// escapes it into the crash handler. It is the goroutine-level half of fault
// interception: synchronous faults inside Go code surface here as runtime
// errors carrying the fault address, while asynchronous signals are picked up
// by the OS watcher installed alongside the handler.
func (h *Handler) Guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.Crash(classifyRecovered(r), CaptureTrace(1), 0)
		}
	}()
	restore := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(restore)
	fn()
}

// classifyRecovered maps a recovered panic value onto the fault taxonomy.
func classifyRecovered(r any) Reason {
	if fe, ok := r.(faultError); ok {
		if strings.Contains(fe.Error(), "misaligned") {
			return MisalignmentReason()
		}
		return SegFaultReason(fe.Addr())
	}
	if re, ok := r.(runtime.Error); ok {
		msg := re.Error()
		switch {
		case strings.Contains(msg, "invalid memory address"):
			return SegFaultReason(0)
		case strings.Contains(msg, "divide by zero"):
			return FloatingPointErrorReason(0)
		case strings.Contains(msg, "misaligned"):
			return MisalignmentReason()
		case strings.Contains(msg, "stack"):
			return StackOverflowReason()
		}
		return PanicReason([]byte(msg))
	}
	if err, ok := r.(error); ok {
		return PanicReason([]byte(err.Error()))
	}
	return PanicReason([]byte(fmt.Sprint(r)))
}
