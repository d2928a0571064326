package crash

import "github.com/psantana5/crashtrace/pkg/tracestr"

// ReportInternalError prints a trace string for a non-fatal internal error
// and returns. It renders only when verbose tracing is enabled or the build
// is a debug build, and takes the output lock so it cannot interleave with a
// concurrent crash.
func (h *Handler) ReportInternalError(name string) {
	if !h.cfg.Verbose && !h.cfg.Debug {
		return
	}

	trace := CaptureTrace(1)

	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	h.writeString("internal error: " + name + "\n")
	rep := tracestr.Report{
		Frames: resolveFrames(h.table, trace),
		Code:   tracestr.CodeInternalError,
		Name:   name,
		Action: tracestr.ActionViewTrace,
	}
	buf, err := tracestr.Append(make([]byte, 0, 1024), h.wire, rep)
	if err != nil {
		// Non-fatal path: a codec failure here only loses the report.
		return
	}
	h.writeRawBytes(buf)
	h.writeString("\n")
}
