package crash

import (
	"sync"
	"sync/atomic"
)

// Panic stages, tracked per goroutine. A stage only ever increases until
// process death.
//
//	0  not panicking
//	1  first fault being rendered
//	2  fault occurred while rendering the first
//	3  fault occurred while rendering the escalation notice
//	4+ abandon all output
//
// handlerState groups every piece of process-wide mutable handler state into
// one explicitly owned structure. It is constructed with the handler at
// install time and never destroyed; the escalation paths touch the atomic
// fields without holding mu, so none of them may be plain ints.
type handlerState struct {
	// stages maps goroutine id -> *atomic.Int32 panic stage.
	stages sync.Map
	// panicking counts goroutines currently at stage >= 1. Used only for
	// cross-thread coordination, never for formatting decisions.
	panicking atomic.Int32
	// bannerPrinted is the process-wide one-shot flag for the banner and
	// metadata block.
	bannerPrinted atomic.Bool
	// reloading ensures the external reload collaborator runs at most
	// once, and suppresses reload for faults raised from inside it.
	reloading atomic.Bool
	// mu is the OutputMutex: it totally orders diagnostic writes so
	// concurrent panics never interleave their bytes.
	mu sync.Mutex
}

// bumpStage advances the goroutine's panic stage and returns the previous
// value. Stages never decrease.
func (s *handlerState) bumpStage(tid uint64) int {
	v, _ := s.stages.LoadOrStore(tid, new(atomic.Int32))
	return int(v.(*atomic.Int32).Add(1)) - 1
}

// stage reports the goroutine's current panic stage.
func (s *handlerState) stage(tid uint64) int {
	v, ok := s.stages.Load(tid)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int32).Load())
}
