package events

import (
	"sync"
	"testing"
)

// recordingSink collects consumed events under a lock
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Consume(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestEmitterDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter("run-1", sink)

	e.Emit(KindRunStarted, map[string]string{"run_id": "run-1"})
	e.Emit(KindPlanBuilt, map[string]string{"step": "0"})
	e.Emit(KindRunDone, nil)
	e.Close()

	got := sink.all()
	if len(got) != 3 {
		t.Fatalf("sink received %d events, want 3", len(got))
	}
	wantKinds := []Kind{KindRunStarted, KindPlanBuilt, KindRunDone}
	for i, ev := range got {
		if ev.Kind != wantKinds[i] {
			t.Errorf("event %d Kind = %s, want %s", i, ev.Kind, wantKinds[i])
		}
		if ev.RunID != "run-1" {
			t.Errorf("event %d RunID = %q, want run-1", i, ev.RunID)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d has a zero timestamp", i)
		}
	}
}

func TestEmitterNilSafe(t *testing.T) {
	var e *Emitter
	// Must not panic and must not block
	e.Emit(KindRunStarted, nil)
	e.Close()
	if e.RunID() != "" {
		t.Errorf("nil emitter RunID() = %q, want empty", e.RunID())
	}
}

func TestEmitterCloseIdempotent(t *testing.T) {
	e := NewEmitter("run-1")
	e.Close()
	e.Close() // Second close must not panic
}

func TestEmitterDropsWhenSaturated(t *testing.T) {
	// A closed-over channel with no drain would block a plain send; the
	// emitter must drop instead. Flood well past the buffer with a slow
	// sink and verify Emit never blocks the caller.
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	e := NewEmitter("run-1", sink)

	for i := 0; i < emitterBuffer*3; i++ {
		e.Emit(KindActionExecuted, nil)
	}
	close(block)
	e.Close()
	// Reaching this point without deadlock is the assertion
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Consume(ev Event) {
	s.once.Do(func() { <-s.release })
}
