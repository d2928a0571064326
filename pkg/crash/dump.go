package crash

import (
	"fmt"
	"runtime"
)

// localDump renders a fully symbolized trace using the debug information
// linked into the binary. Development-build rendering only; never part of the
// wire contract.
func (h *Handler) localDump(trace *StackTrace) {
	pcs := trace.PCs()
	if len(pcs) == 0 {
		h.writeString("  (no stack trace available)\n")
		return
	}

	for i := 0; i < len(pcs); i++ {
		if trace.IsInterpreted(i) {
			h.writeString("  <interpreted frame>\n")
			continue
		}
		// CallersFrames must be fed runs of native PCs so inline
		// expansion stays correct across interpreted gaps.
		j := i
		for j < len(pcs) && !trace.IsInterpreted(j) {
			j++
		}
		frames := runtime.CallersFrames(pcs[i:j])
		for {
			f, more := frames.Next()
			name := f.Function
			if name == "" {
				name = fmt.Sprintf("0x%x", f.PC)
			}
			h.writeString(fmt.Sprintf("  %s\n      %s:%d\n", name, f.File, f.Line))
			if !more {
				break
			}
		}
		i = j - 1
	}
}
