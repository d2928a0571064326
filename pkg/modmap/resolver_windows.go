package modmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// maxModules caps the enumeration; processes rarely exceed a few hundred
// loaded DLLs.
const maxModules = 1024

// loadSegments enumerates the process's loaded DLLs through psapi. Each
// module contributes a single segment spanning its whole image, offsets are
// image-relative. The first enumerated module is the executable itself.
func loadSegments() ([]segment, []ModuleInfo) {
	proc := windows.CurrentProcess()

	var handles [maxModules]windows.Handle
	var needed uint32
	err := windows.EnumProcessModules(proc, &handles[0], uint32(unsafe.Sizeof(handles)), &needed)
	if err != nil {
		return nil, nil
	}
	count := int(needed / uint32(unsafe.Sizeof(handles[0])))
	if count > maxModules {
		count = maxModules
	}

	var segs []segment
	var mods []ModuleInfo
	for i := 0; i < count; i++ {
		var info windows.ModuleInfo
		if err := windows.GetModuleInformation(proc, handles[i], &info, uint32(unsafe.Sizeof(info))); err != nil {
			continue
		}

		var nameBuf [windows.MAX_PATH]uint16
		path := ""
		if err := windows.GetModuleFileNameEx(proc, handles[i], &nameBuf[0], windows.MAX_PATH); err == nil {
			path = windows.UTF16ToString(nameBuf[:])
		}

		name := ""
		if i != 0 {
			name = basename(path)
		}
		segs = append(segs, segment{
			start:  info.BaseOfDll,
			end:    info.BaseOfDll + uintptr(info.SizeOfImage),
			module: name,
		})
		mods = append(mods, ModuleInfo{
			Path:     path,
			Base:     info.BaseOfDll,
			Size:     uintptr(info.SizeOfImage),
			Primary:  i == 0,
			Segments: 1,
		})
	}
	return segs, mods
}
