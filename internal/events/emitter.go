package events

import (
	"sync"
	"time"
)

const emitterBuffer = 64

// Emitter fans events out to sinks from a background goroutine, so the run
// loop never blocks on reporting. A nil *Emitter is valid and discards
// everything, which covers the sink-absent case.
type Emitter struct {
	runID string
	sinks []Sink
	ch    chan Event
	done  chan struct{}
	once  sync.Once
}

// NewEmitter starts an emitter for one run. With no sinks it still accepts
// (and discards) events. Close it when the run ends.
func NewEmitter(runID string, sinks ...Sink) *Emitter {
	e := &Emitter{
		runID: runID,
		sinks: sinks,
		ch:    make(chan Event, emitterBuffer),
		done:  make(chan struct{}),
	}
	go e.drain()
	return e
}

// RunID reports the run this emitter is stamped with
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

func (e *Emitter) drain() {
	defer close(e.done)
	for ev := range e.ch {
		for _, s := range e.sinks {
			s.Consume(ev)
		}
	}
}

// Emit queues an event. It never blocks: when the buffer is full the event
// is dropped on the floor rather than stalling the run.
func (e *Emitter) Emit(kind Kind, payload map[string]string) {
	if e == nil {
		return
	}
	ev := Event{
		Timestamp: time.Now(),
		RunID:     e.runID,
		Kind:      kind,
		Payload:   payload,
	}
	select {
	case e.ch <- ev:
	default:
	}
}

// Close flushes queued events and stops the background goroutine
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.once.Do(func() {
		close(e.ch)
		<-e.done
	})
}
