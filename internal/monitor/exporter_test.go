package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExporterServesCounters(t *testing.T) {
	e := NewExporter()
	e.RecordRecovery("segfault")
	e.RecordRecovery("segfault")
	e.RecordRecovery("divide_by_zero")
	e.RecordInternalReport()
	e.RecordEndpointHit("panic")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()

	for _, want := range []string{
		`crashtrace_recovered_faults_total{kind="segfault"} 2`,
		`crashtrace_recovered_faults_total{kind="divide_by_zero"} 1`,
		`crashtrace_recovered_faults_total{kind="panic"} 0`,
		`crashtrace_internal_reports_total 1`,
		`crashtrace_debug_crash_hits_total{kind="panic"} 1`,
		"crashtrace_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	// Registry metrics from client_golang should be appended.
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics output missing go runtime collector metrics")
	}
}

func TestSummaryIsSingleLine(t *testing.T) {
	e := NewExporter()
	e.RecordRecovery("panic")
	e.RecordInternalReport()

	s := e.Summary()
	if strings.ContainsAny(s, "\r\n") {
		t.Errorf("summary contains line breaks: %q", s)
	}
	if !strings.Contains(s, "recovered_faults=1") || !strings.Contains(s, "internal_reports=1") {
		t.Errorf("summary missing counters: %q", s)
	}
}
