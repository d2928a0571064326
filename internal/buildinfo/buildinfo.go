// Package buildinfo exposes the build identity stamped into trace strings.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Overridden at release time via:
//
//	-ldflags "-X .../internal/buildinfo.Version=1.4.2 -X .../internal/buildinfo.Commit=<sha>"
var (
	Version = "0.0.0-dev"
	Commit  = ""
)

// ShortCommit returns the first 8 characters of the build's git revision.
// When no revision was stamped it falls back to the VCS metadata embedded by
// the Go toolchain, and finally to all zeros so the trace-string header keeps
// its fixed width.
func ShortCommit() string {
	c := Commit
	if c == "" {
		c = vcsRevision()
	}
	if len(c) >= 8 {
		return strings.ToLower(c[:8])
	}
	if c == "" {
		return "00000000"
	}
	return strings.ToLower(c) + strings.Repeat("0", 8-len(c))
}

// IsDevBuild reports whether this is a development build: those default to
// the local symbol dump instead of the compact trace string.
func IsDevBuild() bool {
	return strings.Contains(Version, "-dev")
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
