package crash

import (
	"os"
	"sync"
)

var (
	defaultMu sync.Mutex
	defaultH  *Handler
)

func setDefault(h *Handler) {
	defaultMu.Lock()
	defaultH = h
	defaultMu.Unlock()
}

// Default returns the installed handler, installing one with default
// configuration on first use so the raise functions always have a funnel.
func Default() *Handler {
	defaultMu.Lock()
	h := defaultH
	defaultMu.Unlock()
	if h != nil {
		return h
	}
	return Install(Config{})
}

// osExit is the unconditional process-exit primitive, indirected for tests.
var osExit = os.Exit

// RaisePanic reports an explicit panic with the given message and never
// returns.
func RaisePanic(msg string) {
	Default().Crash(PanicReason([]byte(msg)), nil, 0)
	panic("unreachable")
}

// RaiseUnreachable reports control flow that was declared impossible and
// never returns.
func RaiseUnreachable() {
	Default().Crash(UnreachableReason(), nil, 0)
	panic("unreachable")
}

// Guard runs fn under the default handler's fault interception.
func Guard(fn func()) {
	Default().Guard(fn)
}

// HandleRootError routes a well-known startup/operational error code through
// the default handler. It never returns.
func HandleRootError(code RootCode, trace *StackTrace) {
	Default().HandleRootError(code, trace)
	panic("unreachable")
}

// ReportInternalError renders a non-fatal internal error's trace string when
// verbose tracing or a debug build asks for it. Unlike the crash funnel it
// returns to the caller.
func ReportInternalError(name string) {
	Default().ReportInternalError(name)
}
