package crash

import "runtime"

// MaxFrames bounds every captured backtrace. Deeper stacks are cut off; the
// handler never allocates proportionally to stack depth.
const MaxFrames = 32

// StackTrace is a bounded, read-only sequence of raw instruction pointers,
// captured once per fault. Frames that originate in an embedded interpreter
// rather than native code can be tagged so the encoder emits them as
// interpreted markers instead of resolving them.
type StackTrace struct {
	pcs         [MaxFrames]uintptr
	n           int
	interpreted uint32 // bit i set = frame i is interpreted code
}

// CaptureTrace records the current call stack, skipping the given number of
// frames on top of CaptureTrace itself.
func CaptureTrace(skip int) *StackTrace {
	t := &StackTrace{}
	t.n = runtime.Callers(skip+2, t.pcs[:])
	return t
}

// TraceFromPCs copies up to MaxFrames program counters into a new trace.
func TraceFromPCs(pcs []uintptr) *StackTrace {
	t := &StackTrace{}
	t.n = copy(t.pcs[:], pcs)
	return t
}

// Len reports the number of captured frames.
func (t *StackTrace) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// PCs returns the captured program counters in capture order. The slice
// aliases the trace's fixed buffer and must not be mutated.
func (t *StackTrace) PCs() []uintptr {
	if t == nil {
		return nil
	}
	return t.pcs[:t.n]
}

// MarkInterpreted tags frame i as interpreter code. Out-of-range indexes are
// ignored.
func (t *StackTrace) MarkInterpreted(i int) {
	if t != nil && i >= 0 && i < t.n {
		t.interpreted |= 1 << uint(i)
	}
}

// IsInterpreted reports whether frame i was tagged by MarkInterpreted.
func (t *StackTrace) IsInterpreted(i int) bool {
	return t != nil && i >= 0 && i < t.n && t.interpreted&(1<<uint(i)) != 0
}
