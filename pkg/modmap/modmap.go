// Package modmap resolves raw instruction pointers against the process's
// loaded-module table, turning ASLR-randomized addresses into small offsets
// that stay stable across runs of the same build.
//
// The table is snapshotted up front (typically when the crash handler is
// installed) so that Resolve itself does no I/O and no allocation; it is safe
// to call from a fault handler even when the rest of the process is suspect.
package modmap

import (
	"path/filepath"
	"sort"
)

// Kind classifies a resolved address.
type Kind uint8

const (
	// Unknown means no loaded module contains the address, or the module
	// table could not be walked at snapshot time.
	Unknown Kind = iota
	// Interpreted marks a frame that belongs to an embedded interpreter
	// rather than native code. The resolver never produces this itself;
	// callers tag such frames before encoding.
	Interpreted
	// Native means the address falls inside a loaded module.
	Native
)

func (k Kind) String() string {
	switch k {
	case Interpreted:
		return "interpreted"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// Resolved is the outcome of resolving one instruction pointer.
type Resolved struct {
	Kind Kind
	// Offset is the module-relative offset with the load bias removed.
	// Only meaningful for Native.
	Offset int32
	// Module is the basename of the containing image, or "" when the
	// address belongs to the primary executable.
	Module string
}

// ModuleInfo describes one loaded image, for diagnostic listings.
type ModuleInfo struct {
	Path     string
	Base     uintptr
	Size     uintptr
	Primary  bool
	Segments int
}

// segment is one executable mapping. Offsets are precomputed so Resolve is a
// binary search plus a subtraction.
type segment struct {
	start, end uintptr
	fileOff    uintptr
	module     string // "" = primary executable
}

// Table is an immutable snapshot of the process's executable mappings.
type Table struct {
	segs []segment // sorted by start
	mods []ModuleInfo
}

// NewTable snapshots the current module table. It never fails: if the table
// cannot be walked on this platform the snapshot is empty and every lookup
// reports Unknown.
func NewTable() *Table {
	t := &Table{}
	t.segs, t.mods = loadSegments()
	sort.Slice(t.segs, func(i, j int) bool { return t.segs[i].start < t.segs[j].start })
	return t
}

// Resolve maps an instruction pointer to a module-relative offset. It never
// panics and performs no allocation.
func (t *Table) Resolve(ip uintptr) Resolved {
	if t == nil || len(t.segs) == 0 {
		return Resolved{Kind: Unknown}
	}
	// First segment starting above ip, then step back one.
	i := sort.Search(len(t.segs), func(i int) bool { return t.segs[i].start > ip })
	if i == 0 {
		return Resolved{Kind: Unknown}
	}
	s := &t.segs[i-1]
	if ip >= s.end {
		return Resolved{Kind: Unknown}
	}
	off := ip - s.start + s.fileOff
	if off > 0x7fffffff {
		return Resolved{Kind: Unknown}
	}
	return Resolved{Kind: Native, Offset: int32(off), Module: s.module}
}

// Modules lists the snapshotted images in load order.
func (t *Table) Modules() []ModuleInfo {
	out := make([]ModuleInfo, len(t.mods))
	copy(out, t.mods)
	return out
}

func basename(path string) string {
	return filepath.Base(path)
}
