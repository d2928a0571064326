// Package tracestr implements the versioned, URL-embeddable trace-string
// encoding consumed by the external remapping service. The format is a hard
// compatibility contract: identical inputs must produce byte-identical
// strings, because humans paste them into browsers and CI diffs them.
//
// Layout:
//
//	<baseURL><version>/<platformChar><commit8><formatVersion>
//	  { frame }*          one per captured stack frame, in capture order
//	  VLQ(0)              terminator
//	  <code> [payload]    crash reason discriminant + reason payload
//	  [ "/view" ]         only for ActionViewTrace
//
// Frames encode as "_" (unknown), "=" (interpreted), VLQ(offset) for the
// primary executable, or VLQ(1) VLQ(len) name VLQ(offset) for a named module.
package tracestr

import (
	"fmt"
	"io"

	"github.com/psantana5/crashtrace/pkg/modmap"
	"github.com/psantana5/crashtrace/pkg/vlq"
)

// Reason discriminant bytes. Part of the wire contract; never renumber.
const (
	CodePanic              = '0'
	CodeUnreachable        = '1'
	CodeSegFault           = '2'
	CodeIllegalInstruction = '3'
	CodeBusError           = '4'
	CodeFloatingPointError = '5'
	CodeMisalignment       = '6'
	CodeStackOverflow      = '7'
	CodeInternalError      = '8'
)

// FormatVersion is the single-character version of the frame/payload layout.
const FormatVersion = '1'

const (
	frameUnknown     = '_'
	frameInterpreted = '='
	viewSuffix       = "/view"
	commitLen        = 8
)

// Action selects the optional suffix appended after the reason payload.
type Action uint8

const (
	// ActionReport produces the plain report URL.
	ActionReport Action = iota
	// ActionViewTrace appends "/view" so the service renders the trace
	// instead of filing it.
	ActionViewTrace
)

// Config carries the build identity baked into every trace string.
type Config struct {
	BaseURL  string // report service root, must end with "/"
	Version  string // host build version, e.g. "1.4.2"
	Commit   string // git revision; only the first 8 characters are encoded
	GOOS     string
	GOARCH   string
	Baseline bool // compatibility build variant
}

// Report is one crash, lowered to wire-level fields. Exactly one of Message,
// Addr and Name is meaningful, selected by Code.
type Report struct {
	Frames  []modmap.Resolved
	Code    byte   // one of the Code* constants
	Message []byte // CodePanic
	Addr    uint64 // CodeSegFault..CodeFloatingPointError
	Name    string // CodeInternalError
	Action  Action
}

// Append encodes the report and appends it to dst. The only failure mode is
// a panic message whose compressed form exceeds the fixed payload buffer
// (ErrNoSpace) or an unrecognized reason code.
func Append(dst []byte, cfg Config, r Report) ([]byte, error) {
	dst = append(dst, cfg.BaseURL...)
	dst = append(dst, cfg.Version...)
	dst = append(dst, '/')
	dst = append(dst, platformChar(cfg))
	dst = appendCommit(dst, cfg.Commit)
	dst = append(dst, FormatVersion)

	for _, f := range r.Frames {
		switch f.Kind {
		case modmap.Interpreted:
			dst = append(dst, frameInterpreted)
		case modmap.Native:
			if f.Module != "" {
				dst = vlq.Append(dst, 1)
				dst = vlq.Append(dst, int64(len(f.Module)))
				dst = append(dst, f.Module...)
			}
			dst = vlq.Append(dst, int64(f.Offset))
		default:
			dst = append(dst, frameUnknown)
		}
	}
	dst = vlq.Append(dst, 0)

	dst = append(dst, r.Code)
	switch r.Code {
	case CodePanic:
		var err error
		dst, err = compressPayload(dst, r.Message)
		if err != nil {
			return dst, err
		}
	case CodeSegFault, CodeIllegalInstruction, CodeBusError, CodeFloatingPointError:
		hi, lo := vlq.SplitAddr(r.Addr)
		dst = vlq.Append(dst, hi)
		dst = vlq.Append(dst, lo)
	case CodeInternalError:
		dst = append(dst, r.Name...)
	case CodeUnreachable, CodeMisalignment, CodeStackOverflow:
		// no payload
	default:
		return dst, fmt.Errorf("tracestr: unknown reason code %q", r.Code)
	}

	if r.Action == ActionViewTrace {
		dst = append(dst, viewSuffix...)
	}
	return dst, nil
}

// Encode writes the trace string to w in a single Write call so concurrent
// writers holding the output lock never interleave partial strings.
func Encode(w io.Writer, cfg Config, r Report) error {
	buf, err := Append(make([]byte, 0, 512), cfg, r)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func platformChar(cfg Config) byte {
	if c, ok := PlatformChar(cfg.GOOS, cfg.GOARCH, cfg.Baseline); ok {
		return c
	}
	return UnknownPlatform
}

// appendCommit writes exactly commitLen characters, zero-padding short or
// unknown revisions so the header stays fixed-width.
func appendCommit(dst []byte, commit string) []byte {
	n := 0
	for ; n < len(commit) && n < commitLen; n++ {
		c := commit[n]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		dst = append(dst, c)
	}
	for ; n < commitLen; n++ {
		dst = append(dst, '0')
	}
	return dst
}
