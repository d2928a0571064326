package crash

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/psantana5/crashtrace/pkg/tracestr"
)

const testBaseURL = "https://trace.crashtrace.dev/"

// syncBuffer lets tests read output while a parked goroutine may still hold
// a reference to the writer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestHandler builds a handler whose terminator records instead of
// killing the test process.
func newTestHandler(t *testing.T, cfg Config) (*Handler, *syncBuffer, *int) {
	t.Helper()
	out := &syncBuffer{}
	if cfg.Output == nil {
		cfg.Output = out
	}
	if cfg.Version == "" {
		cfg.Version = "1.4.2"
	}
	if cfg.Commit == "" {
		cfg.Commit = "0123abcd"
	}
	h := newHandler(cfg)
	dies := 0
	h.die = func() { dies++ }
	return h, out, &dies
}

func TestFirstCrashRendersBannerAndTraceString(t *testing.T) {
	h, out, dies := newTestHandler(t, Config{})

	h.Crash(PanicReason([]byte("boom")), nil, 0)

	s := out.String()
	if got := strings.Count(s, "crashtrace fatal error handler"); got != 1 {
		t.Errorf("banner printed %d times, want 1", got)
	}
	if !strings.Contains(s, "panicked:\n  boom") {
		t.Errorf("missing reason header in output:\n%s", s)
	}
	if !strings.Contains(s, "Crash report: "+testBaseURL) {
		t.Errorf("missing trace string in output:\n%s", s)
	}
	if *dies != 1 {
		t.Errorf("terminator invoked %d times, want 1", *dies)
	}

	// The embedded trace string must decode and carry the panic message.
	line := traceStringLine(t, s)
	d, err := tracestr.Decode(line, testBaseURL)
	if err != nil {
		t.Fatalf("Decode(%q): %v", line, err)
	}
	if d.Code != tracestr.CodePanic || string(d.Message) != "boom" {
		t.Errorf("decoded report = %+v", d)
	}
	if len(d.Frames) == 0 {
		t.Error("trace string carries no frames")
	}
}

func traceStringLine(t *testing.T, s string) string {
	t.Helper()
	i := strings.Index(s, "Crash report: ")
	if i < 0 {
		t.Fatalf("no crash report line in %q", s)
	}
	rest := s[i+len("Crash report: "):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestBannerPrintedOncePerProcess(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})

	h.Crash(SegFaultReason(0x1000), nil, 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Crash(SegFaultReason(0x2000), nil, 0)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("second crash did not complete")
	}

	s := out.String()
	if got := strings.Count(s, "crashtrace fatal error handler"); got != 1 {
		t.Errorf("banner printed %d times, want 1", got)
	}
	if got := strings.Count(s, "panicked:"); got != 2 {
		t.Errorf("%d reason headers, want 2", got)
	}
}

func TestSuppliedTraceWinsOverStartAddress(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})

	trace := TraceFromPCs([]uintptr{0x1001, 0x1002})
	h.Crash(UnreachableReason(), trace, 0xdead)

	d, err := tracestr.Decode(traceStringLine(t, out.String()), testBaseURL)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Two frames = the supplied trace; the start address would be one.
	if len(d.Frames) != 2 {
		t.Errorf("decoded %d frames, want the 2 supplied ones", len(d.Frames))
	}
}

func TestStartAddressUsedWithoutTrace(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})

	h.Crash(UnreachableReason(), nil, 0xdead)

	d, err := tracestr.Decode(traceStringLine(t, out.String()), testBaseURL)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(d.Frames) != 1 {
		t.Errorf("decoded %d frames, want 1 synthetic frame", len(d.Frames))
	}
}

func TestInterpretedFramesEncoded(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})

	trace := TraceFromPCs([]uintptr{0x1001, 0x1002, 0x1003})
	trace.MarkInterpreted(1)
	h.Crash(UnreachableReason(), trace, 0)

	d, err := tracestr.Decode(traceStringLine(t, out.String()), testBaseURL)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(d.Frames) != 3 {
		t.Fatalf("decoded %d frames, want 3", len(d.Frames))
	}
	if d.Frames[1].Kind.String() != "interpreted" {
		t.Errorf("frame 1 = %+v, want interpreted", d.Frames[1])
	}
}

func TestDebugBuildUsesLocalDump(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{Debug: true})

	h.Crash(PanicReason([]byte("dev crash")), nil, 0)

	s := out.String()
	if strings.Contains(s, "Crash report: ") {
		t.Errorf("debug build rendered a trace string:\n%s", s)
	}
	// The dump resolves this test function locally.
	if !strings.Contains(s, "TestDebugBuildUsesLocalDump") {
		t.Errorf("local dump does not name the faulting test:\n%s", s)
	}
	if !strings.Contains(s, "handler_test.go") {
		t.Errorf("local dump carries no source locations:\n%s", s)
	}
}

func TestForceTraceStringOverridesDebug(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{Debug: true, ForceTraceString: true})
	h.Crash(PanicReason([]byte("forced")), nil, 0)
	if !strings.Contains(out.String(), "Crash report: ") {
		t.Error("ForceTraceString did not force the wire rendering")
	}
}

func TestForceTraceEnvSwitch(t *testing.T) {
	t.Setenv(EnvForceTrace, "1")
	h, out, _ := newTestHandler(t, Config{Debug: true})
	h.Crash(PanicReason([]byte("forced by env")), nil, 0)
	if !strings.Contains(out.String(), "Crash report: ") {
		t.Error("CRASHTRACE_FORCE_TRACE did not force the wire rendering")
	}
}

func TestMetadataLineInBanner(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{
		Metadata: func() string { return "flags=none reports=7" },
	})
	h.Crash(PanicReason([]byte("x")), nil, 0)
	if !strings.Contains(out.String(), "meta: flags=none reports=7") {
		t.Error("banner is missing the metadata line")
	}
}

func TestEscalationDuringRendering(t *testing.T) {
	// A fault injected while the stage-0 report is being rendered
	// (simulated by a panicking metadata formatter) must still terminate
	// with bounded output.
	h, out, dies := newTestHandler(t, Config{
		Metadata: func() string { panic("poisoned heap") },
	})

	h.Crash(PanicReason([]byte("first fault")), nil, 0)

	s := out.String()
	if got := strings.Count(s, escalationNotice); got != 1 {
		t.Errorf("escalation notice printed %d times, want 1:\n%s", got, s)
	}
	if *dies == 0 {
		t.Error("terminator never invoked")
	}
	before := len(s)

	// Stage 2: only the bare notice.
	h.Crash(PanicReason([]byte("third fault")), nil, 0)
	s = out.String()
	added := s[before:]
	if added != escalationNotice {
		t.Errorf("stage-2 output = %q, want bare notice", added)
	}

	// Stage 3 and beyond: zero additional output.
	before = len(s)
	h.Crash(PanicReason([]byte("fourth fault")), nil, 0)
	h.Crash(PanicReason([]byte("fifth fault")), nil, 0)
	if got := out.String()[before:]; got != "" {
		t.Errorf("stage >= 3 emitted %q, want nothing", got)
	}
}

func TestStageNeverDecreases(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{})
	tid := uint64(42)
	last := -1
	for i := 0; i < 6; i++ {
		got := h.state.bumpStage(tid)
		if got <= last {
			t.Fatalf("stage went from %d to %d", last, got)
		}
		last = got
	}
	if h.state.stage(tid) != 6 {
		t.Errorf("stage = %d, want 6", h.state.stage(tid))
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("stream gone") }

func TestWriteErrorAbortsImmediately(t *testing.T) {
	h := newHandler(Config{Output: failWriter{}, Version: "1.0.0", Commit: "0"})
	type sentinel struct{}
	h.die = func() { panic(sentinel{}) }

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("handler did not abort on I/O error")
		} else if _, ok := r.(sentinel); !ok {
			t.Fatalf("unexpected panic %v", r)
		}
	}()
	h.Crash(PanicReason([]byte("boom")), nil, 0)
}

func TestConcurrentCrashesDoNotInterleave(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})
	died := make(chan struct{}, 2)
	h.die = func() { died <- struct{}{} }

	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func(n uintptr) {
			<-start
			h.Crash(SegFaultReason(0x1000+n), nil, 0)
		}(uintptr(i))
	}
	close(start)

	// Exactly one goroutine reaches the terminator; the loser parks until
	// process death. Both render before either can proceed or park.
	select {
	case <-died:
	case <-time.After(5 * time.Second):
		t.Fatal("no crashing goroutine reached the terminator")
	}
	deadline := time.Now().Add(5 * time.Second)
	for strings.Count(out.String(), "Crash report: ") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("second report never rendered:\n%s", out.String())
		}
		time.Sleep(time.Millisecond)
	}

	s := out.String()
	if got := strings.Count(s, "crashtrace fatal error handler"); got != 1 {
		t.Errorf("banner printed %d times, want 1", got)
	}
	// Byte-level interleaving would corrupt the report lines; every report
	// line must be a complete, decodable trace string.
	for _, line := range strings.Split(s, "\n") {
		if rest, ok := strings.CutPrefix(line, "Crash report: "); ok {
			if _, err := tracestr.Decode(rest, testBaseURL); err != nil {
				t.Errorf("corrupted report line %q: %v", line, err)
			}
		}
	}
}

func TestReloadInvokedOnceByLastThread(t *testing.T) {
	reloads := 0
	h, _, dies := newTestHandler(t, Config{
		Reload: func() bool { reloads++; return false },
	})

	h.Crash(PanicReason([]byte("boom")), nil, 0)

	if reloads != 1 {
		t.Errorf("reload invoked %d times, want 1", reloads)
	}
	if *dies != 1 {
		t.Errorf("terminator invoked %d times, want 1", *dies)
	}
}

func TestFaultInsideReloadSkipsReload(t *testing.T) {
	reloads := 0
	h, out, _ := newTestHandler(t, Config{})
	h.cfg.Reload = func() bool {
		reloads++
		// The reload path itself faults; it must not be re-entered.
		h.Crash(PanicReason([]byte("reload blew up")), nil, 0)
		return false
	}

	h.Crash(PanicReason([]byte("original fault")), nil, 0)

	if reloads != 1 {
		t.Errorf("reload invoked %d times, want exactly 1", reloads)
	}
	if !strings.Contains(out.String(), escalationNotice) {
		t.Error("fault inside reload did not take the escalation path")
	}
}

func TestRootErrorSingleLine(t *testing.T) {
	tests := []struct {
		code RootCode
		want string
	}{
		{RootOutOfMemory, "out of memory"},
		{RootFileNotFound, "missing or unreadable"},
		{RootResourceLimitExceeded, "resource limit"},
		{RootSyntaxError, "could not be parsed"},
	}

	for _, tt := range tests {
		h, out, _ := newTestHandler(t, Config{})
		var status int
		h.exit = func(code int) { status = code }

		h.HandleRootError(tt.code, nil)

		s := out.String()
		if status != 1 {
			t.Errorf("%v: exit status %d, want 1", tt.code, status)
		}
		if !strings.Contains(s, tt.want) {
			t.Errorf("%v: diagnostic %q does not mention %q", tt.code, s, tt.want)
		}
		if strings.Count(strings.TrimRight(s, "\n"), "\n") != 0 {
			t.Errorf("%v: diagnostic is not a single line: %q", tt.code, s)
		}
		if strings.Contains(s, "Crash report") || strings.Contains(s, "panicked") {
			t.Errorf("%v: root error took the crash path: %q", tt.code, s)
		}
	}
}

func TestUnrecognizedRootCodeFallsIntoCrashPath(t *testing.T) {
	h, out, dies := newTestHandler(t, Config{})
	h.HandleRootError(RootCode(77), nil)

	s := out.String()
	if !strings.Contains(s, "internal error: UnknownRootCode") {
		t.Errorf("missing internal-error reason: %q", s)
	}
	if !strings.Contains(s, "Crash report: ") {
		t.Errorf("unrecognized code did not render a trace: %q", s)
	}
	if *dies != 1 {
		t.Errorf("terminator invoked %d times, want 1", *dies)
	}
}

func TestReportInternalErrorGating(t *testing.T) {
	h, out, _ := newTestHandler(t, Config{})
	h.ReportInternalError("EAGAIN")
	if out.String() != "" {
		t.Errorf("non-verbose handler reported: %q", out.String())
	}

	h2, out2, _ := newTestHandler(t, Config{Verbose: true})
	h2.ReportInternalError("EAGAIN")
	s := out2.String()
	if !strings.Contains(s, "internal error: EAGAIN") {
		t.Errorf("verbose report missing reason: %q", s)
	}
	if !strings.Contains(s, testBaseURL) {
		t.Errorf("verbose report missing trace string: %q", s)
	}
	if !strings.Contains(s, "/view") {
		t.Errorf("non-fatal report should use the view action: %q", s)
	}
}
