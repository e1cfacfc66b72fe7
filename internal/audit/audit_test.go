package audit

import (
	"sync"
	"testing"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Write(event Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func TestRecorder_DeliversEvents(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(sink)

	r.Record(ActionCreated, ResourceFlag, "new_header", "prod", "admin")
	r.Record(ActionDeleted, ResourceExperiment, "layout_test", "prod", "admin")
	r.Close()

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	first := sink.events[0]
	if first.ID == "" || first.At.IsZero() {
		t.Errorf("expected stamped ID and timestamp, got %+v", first)
	}
	if first.Action != ActionCreated || first.ResourceKey != "new_header" {
		t.Errorf("unexpected event: %+v", first)
	}
}

func TestRecorder_RecordNeverBlocks(t *testing.T) {
	// Sink that blocks forever would stall a naive implementation.
	blocked := make(chan struct{})
	r := NewRecorder(sinkFunc(func(Event) { <-blocked }))

	for i := 0; i < 1000; i++ {
		r.Record(ActionUpdated, ResourceFlag, "f", "prod", "admin")
	}
	close(blocked)
	r.Close()
}

type sinkFunc func(Event)

func (f sinkFunc) Write(e Event) { f(e) }
