package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/psantana5/crashtrace/internal/logging"
	"github.com/psantana5/crashtrace/internal/monitor"
	"github.com/psantana5/crashtrace/pkg/crash"
)

// HostHandler wires the crash handler's debug surface into HTTP routes
type HostHandler struct {
	handler  *crash.Handler
	exporter *monitor.Exporter
	logger   *logging.Logger
}

// NewHostHandler creates the HTTP handler for crashhostd
func NewHostHandler(h *crash.Handler, e *monitor.Exporter, log *logging.Logger) *HostHandler {
	return &HostHandler{
		handler:  h,
		exporter: e,
		logger:   log,
	}
}

// RegisterRoutes registers all HTTP routes
func (s *HostHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.Health).Methods("GET")
	r.Handle("/metrics", s.exporter).Methods("GET")

	// Debug surface. Most of these terminate the process.
	r.HandleFunc("/debug/crash/{kind}", s.TriggerCrash).Methods("POST")
	r.HandleFunc("/debug/root/{code}", s.TriggerRootError).Methods("POST")
	r.HandleFunc("/debug/report", s.TriggerReport).Methods("POST")
	r.HandleFunc("/debug/recover", s.TriggerRecoveredPanic).Methods("POST")

	r.Use(s.recoverMiddleware)
}

// Health reports liveness
func (s *HostHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// TriggerCrash drives the fatal crash funnel. The process does not survive
// any of these kinds; the response is never written.
func (s *HostHandler) TriggerCrash(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	s.exporter.RecordEndpointHit(kind)
	s.logger.Warn("triggering fatal crash", map[string]interface{}{"kind": kind})

	switch kind {
	case "panic":
		crash.RaisePanic("debug endpoint requested a panic")
	case "unreachable":
		crash.RaiseUnreachable()
	case "segfault":
		s.handler.Guard(func() {
			var p *int
			sink = *p
		})
	case "divzero":
		s.handler.Guard(func() {
			d := len(kind) - len(kind)
			sink = 1 / d
		})
	default:
		http.Error(w, "unknown crash kind: "+kind, http.StatusBadRequest)
	}
}

// sink defeats the compiler's dead-store elimination in the fault triggers
var sink int

// TriggerRootError routes a well-known operational error through the handler.
// Recognized codes exit the process with a one-line message.
func (s *HostHandler) TriggerRootError(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	s.exporter.RecordEndpointHit("root-" + code)

	codes := map[string]crash.RootCode{
		"oom":    crash.RootOutOfMemory,
		"enoent": crash.RootFileNotFound,
		"rlimit": crash.RootResourceLimitExceeded,
		"syntax": crash.RootSyntaxError,
	}
	rc, ok := codes[code]
	if !ok {
		http.Error(w, "unknown root error code: "+code, http.StatusBadRequest)
		return
	}
	s.logger.Warn("triggering root error", map[string]interface{}{"code": code})
	crash.HandleRootError(rc, nil)
}

// TriggerReport emits a non-fatal internal error report and returns
func (s *HostHandler) TriggerReport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "DebugEndpointReport"
	}
	s.handler.ReportInternalError(name)
	s.exporter.RecordInternalReport()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reported", "name": name})
}

// TriggerRecoveredPanic panics inside the handler goroutine so the recovery
// middleware can demonstrate surviving an ordinary handler panic.
func (s *HostHandler) TriggerRecoveredPanic(w http.ResponseWriter, r *http.Request) {
	panic("handler panic for recovery demo")
}

// recoverMiddleware recovers plain panics raised by HTTP handlers and turns
// them into 500 responses. Faults routed through the crash funnel never reach
// it: the funnel terminates the process before the panic unwinds this far.
func (s *HostHandler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.exporter.RecordRecovery("panic")
				s.logger.Error("recovered handler panic", map[string]interface{}{
					"path":  r.URL.Path,
					"panic": rec,
				})
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
