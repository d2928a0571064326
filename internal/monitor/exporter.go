// Package monitor exports operational metrics for a process running the
// fatal-error handler. The exporter doubles as the handler's metadata
// source: Summary returns a single opaque line suitable for the crash
// banner, so a report carries the counters that were live at fault time.
package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var recoveryKinds = []string{"segfault", "divide_by_zero", "misalignment", "stack_overflow", "panic"}

// Exporter serves Prometheus-compatible metrics at /metrics and keeps
// the counters the crash banner wants in its metadata line.
type Exporter struct {
	startTime time.Time

	mu              sync.RWMutex
	recoveries      map[string]int64 // recovered fault kind -> count
	internalReports int64
	endpointHits    map[string]int64 // /debug/crash/{kind} -> count
}

// NewExporter creates a metrics exporter
func NewExporter() *Exporter {
	return &Exporter{
		startTime:    time.Now(),
		recoveries:   make(map[string]int64),
		endpointHits: make(map[string]int64),
	}
}

// RecordRecovery counts a fault that a guarded region translated and survived
func (e *Exporter) RecordRecovery(kind string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recoveries[kind]++
}

// RecordInternalReport counts a non-fatal internal error report
func (e *Exporter) RecordInternalReport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.internalReports++
}

// RecordEndpointHit counts a hit on a debug crash endpoint
func (e *Exporter) RecordEndpointHit(kind string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endpointHits[kind]++
}

// Summary returns one line of counters for the crash banner metadata.
// It must stay single-line: the banner writer emits it verbatim.
func (e *Exporter) Summary() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var recovered int64
	for _, n := range e.recoveries {
		recovered += n
	}
	return fmt.Sprintf("uptime=%.0fs recovered_faults=%d internal_reports=%d",
		time.Since(e.startTime).Seconds(), recovered, e.internalReports)
}

// ServeHTTP serves Prometheus-compatible metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	e.mu.RLock()
	recoveries := make(map[string]int64, len(e.recoveries))
	for k, v := range e.recoveries {
		recoveries[k] = v
	}
	internalReports := e.internalReports
	endpointHits := make(map[string]int64, len(e.endpointHits))
	for k, v := range e.endpointHits {
		endpointHits[k] = v
	}
	e.mu.RUnlock()

	fmt.Fprintf(w, "# HELP crashtrace_recovered_faults_total Faults translated and survived inside guarded regions\n")
	fmt.Fprintf(w, "# TYPE crashtrace_recovered_faults_total counter\n")
	// Always export all kinds (even if count is 0)
	for _, kind := range recoveryKinds {
		fmt.Fprintf(w, "crashtrace_recovered_faults_total{kind=\"%s\"} %d\n", kind, recoveries[kind])
	}

	fmt.Fprintf(w, "\n# HELP crashtrace_internal_reports_total Non-fatal internal error reports emitted\n")
	fmt.Fprintf(w, "# TYPE crashtrace_internal_reports_total counter\n")
	fmt.Fprintf(w, "crashtrace_internal_reports_total %d\n", internalReports)

	fmt.Fprintf(w, "\n# HELP crashtrace_debug_crash_hits_total Hits on debug crash endpoints by kind\n")
	fmt.Fprintf(w, "# TYPE crashtrace_debug_crash_hits_total counter\n")
	for kind, count := range endpointHits {
		fmt.Fprintf(w, "crashtrace_debug_crash_hits_total{kind=\"%s\"} %d\n", kind, count)
	}

	fmt.Fprintf(w, "\n# HELP crashtrace_uptime_seconds Process uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE crashtrace_uptime_seconds gauge\n")
	fmt.Fprintf(w, "crashtrace_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	fmt.Fprintf(w, "\n")

	// Append metrics from the Prometheus default registry (go runtime and
	// process collectors registered by client_golang).
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
