// Package crash is the fatal-error handling core: it intercepts
// unrecoverable faults, captures a bounded backtrace and renders it either as
// a locally symbolized dump (development builds) or as a compact trace string
// for remote symbolication, then terminates the process. The handler is
// written to survive a compromised environment: reentrant faults, concurrent
// faults on other goroutines and poisoned heaps all converge on termination
// with bounded output.
package crash

import (
	"fmt"

	"github.com/psantana5/crashtrace/pkg/tracestr"
)

// Kind discriminates the closed set of fault taxonomies.
type Kind uint8

const (
	// KindPanic is an explicit panic with a caller-supplied message.
	KindPanic Kind = iota
	// KindUnreachable marks control flow that was declared impossible.
	KindUnreachable
	// KindSegFault is an access to unmapped or protected memory.
	KindSegFault
	// KindIllegalInstruction is an attempt to execute a bad opcode.
	KindIllegalInstruction
	// KindBusError is a misaligned or otherwise invalid bus access.
	KindBusError
	// KindFloatingPointError covers SIGFPE-class arithmetic faults.
	KindFloatingPointError
	// KindMisalignment is a datatype misalignment trap.
	KindMisalignment
	// KindStackOverflow is stack exhaustion.
	KindStackOverflow
	// KindInternalError is an unexpected internal error code, identified
	// by its symbolic name.
	KindInternalError
)

// Reason describes one fault. It is immutable once constructed; the handler
// borrows it for the duration of a single invocation.
type Reason struct {
	Kind    Kind
	Message []byte  // KindPanic only
	Addr    uintptr // fault-address kinds only
	Name    string  // KindInternalError only
}

// PanicReason wraps an explicit panic message.
func PanicReason(msg []byte) Reason { return Reason{Kind: KindPanic, Message: msg} }

// UnreachableReason marks declared-unreachable control flow.
func UnreachableReason() Reason { return Reason{Kind: KindUnreachable} }

// SegFaultReason records a segmentation violation at addr.
func SegFaultReason(addr uintptr) Reason { return Reason{Kind: KindSegFault, Addr: addr} }

// IllegalInstructionReason records an illegal-instruction trap at addr.
func IllegalInstructionReason(addr uintptr) Reason {
	return Reason{Kind: KindIllegalInstruction, Addr: addr}
}

// BusErrorReason records a bus error at addr.
func BusErrorReason(addr uintptr) Reason { return Reason{Kind: KindBusError, Addr: addr} }

// FloatingPointErrorReason records an arithmetic fault at addr.
func FloatingPointErrorReason(addr uintptr) Reason {
	return Reason{Kind: KindFloatingPointError, Addr: addr}
}

// MisalignmentReason records a datatype misalignment trap.
func MisalignmentReason() Reason { return Reason{Kind: KindMisalignment} }

// StackOverflowReason records stack exhaustion.
func StackOverflowReason() Reason { return Reason{Kind: KindStackOverflow} }

// InternalErrorReason wraps an unexpected internal error code by name.
func InternalErrorReason(name string) Reason {
	return Reason{Kind: KindInternalError, Name: name}
}

// Render produces the human-readable reason line shown in diagnostics.
func (r Reason) Render() string {
	switch r.Kind {
	case KindPanic:
		return string(r.Message)
	case KindUnreachable:
		return "reached unreachable code"
	case KindSegFault:
		return fmt.Sprintf("segmentation fault at address 0x%x", r.Addr)
	case KindIllegalInstruction:
		return fmt.Sprintf("illegal instruction at address 0x%x", r.Addr)
	case KindBusError:
		return fmt.Sprintf("bus error at address 0x%x", r.Addr)
	case KindFloatingPointError:
		return fmt.Sprintf("floating point exception at address 0x%x", r.Addr)
	case KindMisalignment:
		return "datatype misalignment"
	case KindStackOverflow:
		return "stack overflow"
	case KindInternalError:
		return "internal error: " + r.Name
	default:
		return "unknown fault"
	}
}

// WireCode returns the single discriminant byte the trace string carries.
func (r Reason) WireCode() byte {
	switch r.Kind {
	case KindPanic:
		return tracestr.CodePanic
	case KindUnreachable:
		return tracestr.CodeUnreachable
	case KindSegFault:
		return tracestr.CodeSegFault
	case KindIllegalInstruction:
		return tracestr.CodeIllegalInstruction
	case KindBusError:
		return tracestr.CodeBusError
	case KindFloatingPointError:
		return tracestr.CodeFloatingPointError
	case KindMisalignment:
		return tracestr.CodeMisalignment
	case KindStackOverflow:
		return tracestr.CodeStackOverflow
	default:
		return tracestr.CodeInternalError
	}
}
