package modmap

import (
	"bytes"
	"os"
)

// mapsBufSize bounds how much of /proc/self/maps one snapshot will read.
// Processes with tables larger than this lose the tail mappings and report
// Unknown for addresses inside them, which is the documented degradation.
const mapsBufSize = 512 * 1024

// loadSegments walks /proc/self/maps and keeps the executable file-backed
// mappings. The walk tolerates a truncated or malformed table: unparseable
// lines are skipped, a read failure yields an empty snapshot.
func loadSegments() ([]segment, []ModuleInfo) {
	exe, _ := os.Executable()

	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	buf := make([]byte, mapsBufSize)
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			break
		}
	}
	buf = buf[:n]

	var segs []segment
	var mods []ModuleInfo
	modIndex := map[string]int{}

	for len(buf) > 0 {
		line := buf
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line, buf = buf[:i], buf[i+1:]
		} else {
			// Partial final line from a truncated read; drop it.
			break
		}

		start, end, perms, fileOff, path, ok := parseMapsLine(line)
		if !ok || len(path) == 0 || path[0] != '/' {
			continue
		}
		if len(perms) < 3 || perms[2] != 'x' {
			continue
		}

		idx, seen := modIndex[path]
		if !seen {
			idx = len(mods)
			modIndex[path] = idx
			mods = append(mods, ModuleInfo{
				Path:    path,
				Base:    start,
				Size:    end - start,
				Primary: path == exe,
			})
		} else {
			m := &mods[idx]
			if start < m.Base {
				m.Base = start
			}
			if end-m.Base > m.Size {
				m.Size = end - m.Base
			}
		}
		mods[idx].Segments++

		name := ""
		if path != exe {
			name = basename(path)
		}
		segs = append(segs, segment{start: start, end: end, fileOff: fileOff, module: name})
	}
	return segs, mods
}

// parseMapsLine splits one maps entry:
//
//	start-end perms offset dev inode          path
func parseMapsLine(line []byte) (start, end uintptr, perms string, fileOff uintptr, path string, ok bool) {
	p := line

	start, p, ok = parseHex(p)
	if !ok || len(p) == 0 || p[0] != '-' {
		return 0, 0, "", 0, "", false
	}
	end, p, ok = parseHex(p[1:])
	if !ok || len(p) == 0 || p[0] != ' ' {
		return 0, 0, "", 0, "", false
	}
	p = p[1:]

	i := bytes.IndexByte(p, ' ')
	if i < 0 {
		return 0, 0, "", 0, "", false
	}
	perms, p = string(p[:i]), p[i+1:]

	fileOff, p, ok = parseHex(p)
	if !ok || len(p) == 0 || p[0] != ' ' {
		return 0, 0, "", 0, "", false
	}

	// Skip dev and inode fields, then any space padding before the path.
	for field := 0; field < 2; field++ {
		p = p[1:]
		i = bytes.IndexByte(p, ' ')
		if i < 0 {
			return start, end, perms, fileOff, "", true // anonymous mapping
		}
		p = p[i:]
	}
	for len(p) > 0 && p[0] == ' ' {
		p = p[1:]
	}
	return start, end, perms, fileOff, string(p), true
}

func parseHex(p []byte) (v uintptr, rest []byte, ok bool) {
	n := 0
	for n < len(p) {
		c := p[n]
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uintptr(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uintptr(c-'a'+10)
		default:
			return v, p[n:], n > 0
		}
		n++
	}
	return v, nil, n > 0
}
