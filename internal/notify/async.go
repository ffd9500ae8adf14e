package notify

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Async forwards events to another Sink from a single goroutine. Notify
// never blocks: when the queue is full the event is dropped and logged.
type Async struct {
	next   Sink
	logger *log.Logger
	queue  chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the forwarding goroutine. Call Close to flush and stop it.
func NewAsync(next Sink, buffer int, logger *log.Logger) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		a.next.Notify(e)
	}
}

// Notify enqueues e without waiting.
func (a *Async) Notify(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- e:
	default:
		a.logger.Warn("notification queue full, dropping event", "event", string(e.Kind), "id", e.ID)
	}
}

// Close stops accepting events and waits until queued ones are delivered.
// It is safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}
