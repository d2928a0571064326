package crash

import (
	"io"
	"runtime"

	"github.com/psantana5/crashtrace/internal/goid"
	"github.com/psantana5/crashtrace/pkg/modmap"
	"github.com/psantana5/crashtrace/pkg/tracestr"
)

const escalationNotice = "panicked during a panic. Aborting.\n"

// Handler is the process-wide crash handler. It is constructed once at
// process start by Install and lives until process death.
type Handler struct {
	cfg   Config
	out   io.Writer
	table *modmap.Table
	wire  tracestr.Config

	// hostMeta and bannerHead are prebuilt at install time so the fault
	// path does no collection.
	hostMeta   string
	bannerHead string

	state handlerState

	// die ends the process; overridden only by tests.
	die func()
	// exit is the root-error exit primitive; overridden only by tests.
	exit func(int)
	// uninstall resets OS-level fault interception.
	uninstall func()
}

// Install constructs the handler, snapshots the module table, precomputes the
// banner and installs OS fault interception. It is meant to be called once at
// process start; the returned handler is also stored as the package default
// used by RaisePanic and friends.
func Install(cfg Config) *Handler {
	h := newHandler(cfg)
	h.uninstall = installSignals(h)
	setDefault(h)
	return h
}

// newHandler builds a handler without touching process-global state. Tests
// use it directly.
func newHandler(cfg Config) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		cfg:   cfg,
		out:   cfg.Output,
		table: cfg.Resolver,
		wire:  cfg.wireConfig(runtime.GOOS, runtime.GOARCH),
		die:   terminate,
		exit:  osExit,
	}
	h.hostMeta = collectHostMeta()
	h.bannerHead = h.buildBannerHead()
	return h
}

// Crash is the single funnel every fault goes through: explicit panics,
// unreachable-code traps, OS signals and guarded runtime faults. It never
// returns.
//
// Precedence: when both a captured trace and a start address are supplied,
// the trace wins and startPC is ignored.
func (h *Handler) Crash(reason Reason, trace *StackTrace, startPC uintptr) {
	tid := goid.ID()
	switch h.state.bumpStage(tid) {
	case 0:
		h.crashFirst(tid, reason, trace, startPC)
	case 1:
		// Fault while rendering the first report. Bypass all formatting
		// and locking; the output mutex may already be held by this
		// goroutine.
		h.writeRaw(reason.Render())
		h.writeRaw("\n")
		h.writeRaw(escalationNotice)
	case 2:
		h.writeRaw(escalationNotice)
	default:
		// Stage 3 and beyond: emit nothing further.
	}
	h.die()
}

// crashFirst is the stage-0 path: full banner, reason header and trace
// rendering, then cross-thread coordination and optional process reload.
func (h *Handler) crashFirst(tid uint64, reason Reason, trace *StackTrace, startPC uintptr) {
	// Prevent a recursive trap on the same fault kind: from here on the OS
	// default behavior applies to anything the handler itself trips over.
	if h.uninstall != nil {
		h.uninstall()
	}

	h.state.panicking.Add(1)

	h.state.mu.Lock()
	h.renderReport(tid, reason, trace, startPC)
	h.state.mu.Unlock()

	// Let exactly one panicking goroutine proceed to reload/termination;
	// contenders park here and die with the process.
	if h.state.panicking.Add(-1) > 0 {
		select {}
	}

	// A fault raised from inside the reload path must not re-enter it.
	if h.cfg.Reload != nil && h.state.reloading.CompareAndSwap(false, true) {
		h.cfg.Reload()
	}
}

// renderReport emits the banner, reason header and trace. A fault while
// rendering is treated as a second fault and escalates the panic stage
// instead of being swallowed.
func (h *Handler) renderReport(tid uint64, reason Reason, trace *StackTrace, startPC uintptr) {
	defer func() {
		if r := recover(); r != nil {
			h.Crash(PanicReason([]byte("panicked while rendering a crash report")), nil, 0)
		}
	}()

	if h.state.bannerPrinted.CompareAndSwap(false, true) {
		h.writeString(h.banner())
	}
	h.writeString(h.reasonHeader(tid, reason))

	if trace == nil {
		if startPC != 0 {
			trace = TraceFromPCs([]uintptr{startPC})
		} else {
			// Skip renderReport, crashFirst and Crash.
			trace = CaptureTrace(3)
		}
	}

	if h.useTraceString() {
		h.renderTraceString(reason, trace)
	} else {
		h.localDump(trace)
	}
}

func (h *Handler) useTraceString() bool {
	return h.cfg.ForceTraceString || !h.cfg.Debug
}

// resolveFrames lowers a trace to wire-level frames, honoring interpreted
// tags.
func resolveFrames(table *modmap.Table, trace *StackTrace) []modmap.Resolved {
	frames := make([]modmap.Resolved, trace.Len())
	for i, pc := range trace.PCs() {
		if trace.IsInterpreted(i) {
			frames[i] = modmap.Resolved{Kind: modmap.Interpreted}
		} else {
			frames[i] = table.Resolve(pc)
		}
	}
	return frames
}

// renderTraceString resolves every frame and writes the compact report URL.
// A codec failure (payload overflow) is a second fault.
func (h *Handler) renderTraceString(reason Reason, trace *StackTrace) {
	rep := tracestr.Report{
		Frames:  resolveFrames(h.table, trace),
		Code:    reason.WireCode(),
		Message: reason.Message,
		Addr:    uint64(reason.Addr),
		Name:    reason.Name,
		Action:  tracestr.ActionReport,
	}

	buf, err := tracestr.Append(make([]byte, 0, 1024), h.wire, rep)
	if err != nil {
		h.Crash(PanicReason([]byte("crash report encoding failed: "+err.Error())), nil, 0)
	}
	h.writeString("Crash report: ")
	h.writeRawBytes(buf)
	h.writeString("\n")
}

// writeString writes diagnostics under whatever locking the caller holds. An
// I/O error is fatal to the handler: the stream is gone and the handler runs
// in a compromised context, so it aborts instead of retrying.
func (h *Handler) writeString(s string) {
	if _, err := io.WriteString(h.out, s); err != nil {
		h.die()
	}
}

func (h *Handler) writeRawBytes(b []byte) {
	if _, err := h.out.Write(b); err != nil {
		h.die()
	}
}

// writeRaw is the escalation-path write: same as writeString but named for
// the paths that deliberately skip locking and formatting.
func (h *Handler) writeRaw(s string) {
	if _, err := io.WriteString(h.out, s); err != nil {
		h.die()
	}
}
