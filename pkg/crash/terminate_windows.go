package crash

import "os"

// terminate collapses to the direct abort status on Windows; there is no
// portable way to provoke a core-dumping hardware fault from here.
func terminate() {
	os.Exit(3) // the C runtime's abort() status
}
