package crash

// RootCode identifies the small set of recognized non-fault termination
// causes. They get a single-line diagnostic and exit status 1 instead of the
// full crash path.
type RootCode int

const (
	// RootOutOfMemory is reported when an allocation was refused.
	RootOutOfMemory RootCode = iota
	// RootFileNotFound is reported for missing required files.
	RootFileNotFound
	// RootResourceLimitExceeded is reported when an OS resource limit was
	// hit.
	RootResourceLimitExceeded
	// RootSyntaxError is reported for unparseable startup input.
	RootSyntaxError
)

func (c RootCode) String() string {
	switch c {
	case RootOutOfMemory:
		return "OutOfMemory"
	case RootFileNotFound:
		return "FileNotFound"
	case RootResourceLimitExceeded:
		return "ResourceLimitExceeded"
	case RootSyntaxError:
		return "SyntaxError"
	default:
		return "UnknownRootCode"
	}
}

// rootMessages are the fixed diagnostic templates for recognized codes. The
// hint text is an external collaborator's contract; only the selection by
// code belongs to the core.
var rootMessages = map[RootCode]string{
	RootOutOfMemory:           "error: the process ran out of memory (raise the memory limit or reduce concurrent work)\n",
	RootFileNotFound:          "error: a required file is missing or unreadable\n",
	RootResourceLimitExceeded: "error: an operating system resource limit was exceeded (see ulimit, raise it and restart)\n",
	RootSyntaxError:           "error: input could not be parsed\n",
}

// HandleRootError prints the single-line diagnostic for a recognized code and
// exits with status 1. Unrecognized codes fall through to the crash path so
// they are never silently swallowed. Never returns.
func (h *Handler) HandleRootError(code RootCode, trace *StackTrace) {
	if msg, ok := rootMessages[code]; ok {
		h.writeString(msg)
		h.exit(1)
		return // reachable only with a stubbed exit, in tests
	}
	h.Crash(InternalErrorReason(code.String()), trace, 0)
}
