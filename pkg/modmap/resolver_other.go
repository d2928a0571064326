//go:build !linux && !windows

package modmap

// loadSegments has no module-table walk on this platform; every address
// resolves to Unknown and the trace string degrades to '_' frames.
func loadSegments() ([]segment, []ModuleInfo) {
	return nil, nil
}
