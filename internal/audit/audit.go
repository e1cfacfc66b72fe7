// Package audit records admin mutations of flags and experiments. Events
// are written asynchronously so the admin API never blocks on the sink.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Actions recorded by the admin API.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Resource types recorded by the admin API.
const (
	ResourceFlag       = "flag"
	ResourceExperiment = "experiment"
)

// Event is one audit trail entry.
type Event struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	ResourceKey string    `json:"resourceKey"`
	Environment string    `json:"environment"`
	Actor       string    `json:"actor,omitempty"`
	At          time.Time `json:"at"`
}

// Sink receives audit events. Implementations must tolerate being called
// from a single background goroutine.
type Sink interface {
	Write(event Event)
}

// LogSink writes audit events as structured log lines.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Write(event Event) {
	s.Logger.Info().
		Str("audit_id", event.ID).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("key", event.ResourceKey).
		Str("env", event.Environment).
		Str("actor", event.Actor).
		Time("at", event.At).
		Msg("audit")
}

// Recorder buffers events and drains them to a sink on a background
// goroutine. Record never blocks; if the buffer is full the event is
// dropped, which is acceptable for an advisory trail.
type Recorder struct {
	events chan Event
	done   chan struct{}
}

// NewRecorder starts a recorder draining into sink.
func NewRecorder(sink Sink) *Recorder {
	r := &Recorder{
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for event := range r.events {
			sink.Write(event)
		}
	}()
	return r
}

// Record enqueues an audit event, stamping ID and timestamp.
func (r *Recorder) Record(action, resource, key, env, actor string) {
	event := Event{
		ID:          uuid.NewString(),
		Action:      action,
		Resource:    resource,
		ResourceKey: key,
		Environment: env,
		Actor:       actor,
		At:          time.Now().UTC(),
	}
	select {
	case r.events <- event:
	default:
	}
}

// Close stops the recorder and waits for buffered events to drain.
func (r *Recorder) Close() {
	close(r.events)
	<-r.done
}
