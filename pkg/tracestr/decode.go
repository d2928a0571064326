package tracestr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/psantana5/crashtrace/pkg/modmap"
	"github.com/psantana5/crashtrace/pkg/vlq"
)

// Decoded is a parsed trace string. It mirrors what the remapping service
// extracts, minus symbolication.
type Decoded struct {
	Version       string
	Platform      byte
	Commit        string
	FormatVersion byte

	Frames []modmap.Resolved

	Code    byte
	Message []byte // CodePanic, already decompressed
	Addr    uint64 // fault-address reasons
	Name    string // CodeInternalError
	View    bool
}

var (
	// ErrBadPrefix reports a string that does not start with the expected
	// base URL.
	ErrBadPrefix = errors.New("tracestr: missing base url prefix")
	// ErrBadHeader reports a malformed version/platform/commit header.
	ErrBadHeader = errors.New("tracestr: malformed header")
)

// Decode parses a trace string produced by Append/Encode. The base URL must
// be supplied because VLQ digits may themselves contain '/'.
func Decode(s, baseURL string) (*Decoded, error) {
	rest, ok := strings.CutPrefix(s, baseURL)
	if !ok {
		return nil, ErrBadPrefix
	}

	d := &Decoded{}
	d.Version, rest, ok = strings.Cut(rest, "/")
	if !ok || d.Version == "" {
		return nil, ErrBadHeader
	}
	if len(rest) < 1+commitLen+1 {
		return nil, ErrBadHeader
	}
	d.Platform = rest[0]
	d.Commit = rest[1 : 1+commitLen]
	d.FormatVersion = rest[1+commitLen]
	rest = rest[1+commitLen+1:]
	if d.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("tracestr: unsupported format version %q", d.FormatVersion)
	}

	if tail, found := strings.CutSuffix(rest, viewSuffix); found {
		d.View = true
		rest = tail
	}

	body := []byte(rest)
	body, err := d.decodeFrames(body)
	if err != nil {
		return nil, err
	}
	if err := d.decodePayload(body); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoded) decodeFrames(body []byte) ([]byte, error) {
	for {
		if len(body) == 0 {
			return nil, errors.New("tracestr: missing frame terminator")
		}
		switch body[0] {
		case frameUnknown:
			d.Frames = append(d.Frames, modmap.Resolved{Kind: modmap.Unknown})
			body = body[1:]
			continue
		case frameInterpreted:
			d.Frames = append(d.Frames, modmap.Resolved{Kind: modmap.Interpreted})
			body = body[1:]
			continue
		}

		v, n, err := vlq.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("tracestr: frame: %w", err)
		}
		body = body[n:]
		switch {
		case v == 0:
			// terminator
			return body, nil
		case v == 1:
			// A leading 1 introduces a named-module frame; the primary
			// executable never has offset 1 because image headers occupy
			// the first bytes of every module.
			nameLen, n, err := vlq.Decode(body)
			if err != nil {
				return nil, fmt.Errorf("tracestr: module name length: %w", err)
			}
			body = body[n:]
			if nameLen < 0 || int64(len(body)) < nameLen {
				return nil, errors.New("tracestr: module name out of range")
			}
			name := string(body[:nameLen])
			body = body[nameLen:]
			off, n, err := vlq.Decode(body)
			if err != nil {
				return nil, fmt.Errorf("tracestr: module offset: %w", err)
			}
			body = body[n:]
			d.Frames = append(d.Frames, modmap.Resolved{Kind: modmap.Native, Offset: int32(off), Module: name})
		default:
			d.Frames = append(d.Frames, modmap.Resolved{Kind: modmap.Native, Offset: int32(v)})
		}
	}
}

func (d *Decoded) decodePayload(body []byte) error {
	if len(body) == 0 {
		return errors.New("tracestr: missing reason byte")
	}
	d.Code = body[0]
	body = body[1:]

	switch d.Code {
	case CodePanic:
		msg, err := decompressPayload(body)
		if err != nil {
			return fmt.Errorf("tracestr: panic payload: %w", err)
		}
		d.Message = msg
	case CodeSegFault, CodeIllegalInstruction, CodeBusError, CodeFloatingPointError:
		hi, n, err := vlq.Decode(body)
		if err != nil {
			return fmt.Errorf("tracestr: address high half: %w", err)
		}
		lo, m, err := vlq.Decode(body[n:])
		if err != nil {
			return fmt.Errorf("tracestr: address low half: %w", err)
		}
		if n+m != len(body) {
			return errors.New("tracestr: trailing bytes after address")
		}
		d.Addr = vlq.JoinAddr(hi, lo)
	case CodeInternalError:
		d.Name = string(body)
	case CodeUnreachable, CodeMisalignment, CodeStackOverflow:
		if len(body) != 0 {
			return errors.New("tracestr: unexpected payload")
		}
	default:
		return fmt.Errorf("tracestr: unknown reason code %q", d.Code)
	}
	return nil
}
