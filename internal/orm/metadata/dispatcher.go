package metadata

import (
	"fmt"

	"go.uber.org/zap"
)

// maxConventionEvents bounds a single drain of the convention queue. Idempotent
// conventions settle long before this; reaching it means two conventions keep
// undoing each other.
const maxConventionEvents = 10000

// event is a structural change waiting for its conventions.
type event interface {
	// live reports whether the changed metadata is still part of the model.
	live() bool
	dispatch(set *ConventionSet)
	String() string
}

// dispatcher runs conventions from an explicit FIFO queue. Builder operations
// open a scope; changes made inside the scope are queued and the outermost scope
// drains the queue before returning to the caller. Builder calls made by
// conventions during the drain only add to the queue.
type dispatcher struct {
	model   *Model
	queue   []event
	depth   int
	running bool
}

func newDispatcher(m *Model) *dispatcher {
	return &dispatcher{model: m}
}

func (d *dispatcher) enqueue(e event) {
	if d.model.conventions == nil {
		return
	}
	d.queue = append(d.queue, e)
}

// scope runs fn as one builder operation.
func (d *dispatcher) scope(fn func()) {
	d.depth++
	defer func() {
		d.depth--
		if d.depth == 0 && !d.running {
			d.run()
		}
	}()
	fn()
}

func (d *dispatcher) run() {
	d.running = true
	defer func() { d.running = false }()

	processed := 0
	for len(d.queue) > 0 {
		e := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]

		processed++
		if processed > maxConventionEvents {
			d.model.logger.Error("convention queue did not settle",
				zap.Int("events", processed),
				zap.Int("pending", len(d.queue)),
				zap.Stringer("last", e))
			d.queue = nil
			d.model.recordError(fmt.Errorf("%w after %d events", ErrConventionLoop, maxConventionEvents))
			return
		}

		if !e.live() {
			continue
		}
		e.dispatch(d.model.conventions)
	}
	d.queue = nil
}

// pending reports the number of queued events.
func (d *dispatcher) pending() int {
	return len(d.queue)
}

// liveBuilder is implemented by every internal builder.
type liveBuilder interface {
	comparable
	live() bool
}

// withConventions runs fn as one builder operation and returns its result only
// if the built metadata survived the conventions it triggered. Finalized models
// reject every operation.
func withConventions[B liveBuilder](m *Model, fn func() B) B {
	var zero B
	if m.finalized {
		return zero
	}
	var result B
	m.dispatcher.scope(func() { result = fn() })
	if result == zero || !result.live() {
		return zero
	}
	return result
}

// withConventionsErr is withConventions for operations that can report a
// configuration conflict.
func withConventionsErr[B liveBuilder](m *Model, fn func() (B, error)) (B, error) {
	var zero B
	if m.finalized {
		return zero, ErrModelReadOnly
	}
	var result B
	var err error
	m.dispatcher.scope(func() { result, err = fn() })
	if err != nil {
		return zero, err
	}
	if result == zero || !result.live() {
		return zero, nil
	}
	return result, nil
}

// withConventionsBool runs a removal or ignore operation.
func withConventionsBool(m *Model, fn func() bool) bool {
	if m.finalized {
		return false
	}
	var ok bool
	m.dispatcher.scope(func() { ok = fn() })
	return ok
}
