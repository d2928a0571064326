package crash

import (
	"io"
	"os"

	"github.com/psantana5/crashtrace/internal/buildinfo"
	"github.com/psantana5/crashtrace/pkg/modmap"
	"github.com/psantana5/crashtrace/pkg/tracestr"
)

// DefaultBaseURL is the report service root baked into trace strings when the
// host does not override it.
const DefaultBaseURL = "https://trace.crashtrace.dev/"

// Environment switches honored by Install. Both are development aids and are
// read once.
const (
	// EnvForceTrace forces trace-string rendering even in debug builds, so
	// the wire format can be exercised locally.
	EnvForceTrace = "CRASHTRACE_FORCE_TRACE"
	// EnvVerbose makes non-fatal internal errors print a trace string too.
	EnvVerbose = "CRASHTRACE_VERBOSE"
)

// Config configures the handler singleton. The zero value is usable: output
// to stderr, build identity from buildinfo, module table snapshotted at
// install time.
type Config struct {
	// Output receives all diagnostics. Defaults to os.Stderr.
	Output io.Writer

	// BaseURL, Version and Commit form the trace-string header.
	BaseURL string
	Version string
	Commit  string
	// Baseline marks a compatibility build variant (distinct platform
	// character on the wire).
	Baseline bool

	// Debug selects the local symbol dump instead of the compact trace
	// string. Hosts typically set it for development builds.
	Debug bool
	// ForceTraceString renders the trace string even when Debug is set.
	ForceTraceString bool
	// Verbose makes ReportInternalError print a trace string for
	// non-fatal internal errors even in release builds.
	Verbose bool

	// Metadata, when set, contributes one opaque preformatted line to the
	// crash banner (typically a metrics/feature-flag summary). The crash
	// path treats the result as an already-formatted string.
	Metadata func() string

	// Reload is the external attemptProcessReload collaborator. When set,
	// the last surviving panicking thread invokes it once before
	// termination; a true return means the process re-execed and control
	// never comes back.
	Reload func() bool

	// Resolver overrides the module table snapshot, mainly for tests.
	Resolver *modmap.Table
}

// withDefaults fills unset fields. Called once by Install.
func (c Config) withDefaults() Config {
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Version == "" {
		c.Version = buildinfo.Version
	}
	if c.Commit == "" {
		c.Commit = buildinfo.ShortCommit()
	}
	if c.Resolver == nil {
		c.Resolver = modmap.NewTable()
	}
	if os.Getenv(EnvForceTrace) != "" {
		c.ForceTraceString = true
	}
	if os.Getenv(EnvVerbose) != "" {
		c.Verbose = true
	}
	return c
}

func (c Config) wireConfig(goos, goarch string) tracestr.Config {
	return tracestr.Config{
		BaseURL:  c.BaseURL,
		Version:  c.Version,
		Commit:   c.Commit,
		GOOS:     goos,
		GOARCH:   goarch,
		Baseline: c.Baseline,
	}
}
