package crash

// installSignals has nothing to subscribe to on Windows: the Go runtime owns
// the vectored exception handler and surfaces access violations, illegal
// instructions, misaligned accesses and stack overflows as panics, which
// Guard translates. Unrecognized exceptions continue down the handler chain
// inside the runtime itself.
func installSignals(h *Handler) func() {
	return func() {}
}
