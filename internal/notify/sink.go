package notify

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Sink receives events. Implementations must not block for long; wrap slow
// sinks in Async.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink writes events to a logger.
type LogSink struct {
	Logger *log.Logger
}

// Notify logs e at info level, or error level for failures.
func (s LogSink) Notify(e Event) {
	kv := []any{"event", string(e.Kind), "id", e.ID}
	if e.PeerID != "" {
		kv = append(kv, "peer", e.PeerID.String())
	}
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, e.Payload[k])
	}
	switch e.Kind {
	case HandlerFailed, ConnectionLost, LoginFailed:
		s.Logger.Error(e.Text, kv...)
	default:
		s.Logger.Info(e.Text, kv...)
	}
}

// Recorder stores events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
