package pyramid

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/uuid"
)

// Result is the terminal status of a run with its cumulative counters.
type Result struct {
	RunID          uuid.UUID
	State          State
	MaxLevel       uint32
	TilesProcessed uint64
	TilesWritten   uint64

	// Err is nil for StateCompleted and matches tile.ErrCancelled for StateCancelled.
	Err error
}

type progressEvent struct {
	step   Step
	status Status
}

// Handle controls a run started with Generator.Start. Its methods are safe
// for concurrent use.
type Handle struct {
	id       uuid.UUID
	maxLevel uint32
	cancel   func()

	state     atomic.Int32
	level     atomic.Uint32
	processed atomic.Uint64
	written   atomic.Uint64

	// deliver orders progress delivery; listeners run while it is held and
	// must not call Step.
	deliver   sync.Mutex
	history   []progressEvent
	listeners []ProgressFunc

	done   chan struct{}
	result Result
}

func newHandle(id uuid.UUID, maxLevel uint32, cancel func()) *Handle {
	return &Handle{id: id, maxLevel: maxLevel, cancel: cancel, done: make(chan struct{})}
}

func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Cancel asks the run to stop. Tiles in flight are completed, tiles written
// so far stay in place.
func (h *Handle) Cancel() {
	h.cancel()
}

// OnProgress registers a listener. Transitions that already happened are
// replayed to it first, so every listener sees the complete ordered sequence.
func (h *Handle) OnProgress(fn ProgressFunc) {
	h.deliver.Lock()
	defer h.deliver.Unlock()
	for _, e := range h.history {
		fn(e.step, e.status)
	}
	h.listeners = append(h.listeners, fn)
}

// Step reports a transition to all listeners. The generator reports
// StepBuildPyramid itself.
func (h *Handle) Step(step Step, status Status) {
	h.deliver.Lock()
	defer h.deliver.Unlock()
	h.history = append(h.history, progressEvent{step, status})
	for _, fn := range h.listeners {
		fn(step, status)
	}
}

func (h *Handle) State() State {
	return State(h.state.Load())
}

// Level returns the level being processed.
func (h *Handle) Level() uint32 {
	return h.level.Load()
}

// TilesProcessed counts the tiles for which a creator call returned.
func (h *Handle) TilesProcessed() uint64 {
	return h.processed.Load()
}

func (h *Handle) TilesWritten() uint64 {
	return h.written.Load()
}

// Done is closed when the run reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run ends and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

func (h *Handle) setState(state State, level uint32) {
	h.level.Store(level)
	h.state.Store(int32(state))
}

func (h *Handle) finish(err error) {
	state := StateCompleted
	switch {
	case errors.Is(err, tile.ErrCancelled):
		state = StateCancelled
	case err != nil:
		state = StateFailed
	}
	h.state.Store(int32(state))
	h.result = Result{
		RunID:          h.id,
		State:          state,
		MaxLevel:       h.maxLevel,
		TilesProcessed: h.processed.Load(),
		TilesWritten:   h.written.Load(),
		Err:            err,
	}
	close(h.done)
}
