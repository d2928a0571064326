package modmap

import "testing"

func TestParseMapsLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		start   uintptr
		end     uintptr
		perms   string
		fileOff uintptr
		path    string
	}{
		{
			name: "executable file mapping",
			line: "55d0a1a2b000-55d0a1c00000 r-xp 00001000 fd:01 123456                     /usr/bin/hostd",
			ok:   true, start: 0x55d0a1a2b000, end: 0x55d0a1c00000,
			perms: "r-xp", fileOff: 0x1000, path: "/usr/bin/hostd",
		},
		{
			name: "shared object",
			line: "7f3b2c000000-7f3b2c1b0000 r-xp 00025000 fd:01 99 /usr/lib/x86_64-linux-gnu/libc.so.6",
			ok:   true, start: 0x7f3b2c000000, end: 0x7f3b2c1b0000,
			perms: "r-xp", fileOff: 0x25000, path: "/usr/lib/x86_64-linux-gnu/libc.so.6",
		},
		{
			name: "anonymous mapping",
			line: "7f3b2c1b0000-7f3b2c1b2000 rw-p 00000000 00:00 0",
			ok:   true, start: 0x7f3b2c1b0000, end: 0x7f3b2c1b2000,
			perms: "rw-p", fileOff: 0, path: "",
		},
		{
			name: "pseudo path",
			line: "7ffd1c000000-7ffd1c021000 rw-p 00000000 00:00 0                          [stack]",
			ok:   true, start: 0x7ffd1c000000, end: 0x7ffd1c021000,
			perms: "rw-p", fileOff: 0, path: "[stack]",
		},
		{name: "garbage", line: "not a maps line", ok: false},
		{name: "missing dash", line: "55d0a1a2b000 r-xp", ok: false},
		{name: "empty", line: "", ok: false},
	}

	for _, tt := range tests {
		start, end, perms, fileOff, path, ok := parseMapsLine([]byte(tt.line))
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if start != tt.start || end != tt.end || perms != tt.perms || fileOff != tt.fileOff || path != tt.path {
			t.Errorf("%s: got (%#x, %#x, %q, %#x, %q)", tt.name, start, end, perms, fileOff, path)
		}
	}
}

func TestLoadSegmentsSkipsNonExecutable(t *testing.T) {
	segs, mods := loadSegments()
	if len(segs) == 0 {
		t.Skip("/proc/self/maps not available")
	}
	for _, s := range segs {
		if s.end <= s.start {
			t.Errorf("segment %#x-%#x has non-positive size", s.start, s.end)
		}
	}
	primary := 0
	for _, m := range mods {
		if m.Primary {
			primary++
		}
	}
	if primary != 1 {
		t.Errorf("snapshot has %d primary modules, want exactly 1", primary)
	}
}
