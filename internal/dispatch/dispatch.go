// Package dispatch routes decoded wire messages to the handler registered
// for their kind.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"

	"relaychat/internal/wire"
)

// ErrUnhandledKind is returned by Dispatch when no handler is registered
// for the message kind.
var ErrUnhandledKind = errors.New("no handler for message kind")

// Handler processes one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg wire.Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg wire.Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg wire.Message) error { return f(ctx, msg) }

// Dispatcher is a kind-to-handler table. Registration is expected at start
// up, but it is safe to register while dispatching.
type Dispatcher struct {
	logger *log.Logger

	mu       sync.RWMutex
	handlers map[wire.Kind]Handler
}

// New returns an empty Dispatcher.
func New(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With("component", "dispatch"),
		handlers: make(map[wire.Kind]Handler),
	}
}

// Register installs h for kind, replacing any earlier handler.
func (d *Dispatcher) Register(kind wire.Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// RegisterFunc is shorthand for Register(kind, HandlerFunc(fn)).
func (d *Dispatcher) RegisterFunc(kind wire.Kind, fn func(context.Context, wire.Message) error) {
	d.Register(kind, HandlerFunc(fn))
}

// Kinds lists the kinds that have a handler.
func (d *Dispatcher) Kinds() []wire.Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]wire.Kind, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	return out
}

// Dispatch runs the handler for msg. A handler error or panic is logged and
// returned wrapped; it never propagates as a panic to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, msg wire.Message) (err error) {
	d.mu.RLock()
	h, ok := d.handlers[msg.Kind()]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("unhandled message", "kind", string(msg.Kind()))
		return fmt.Errorf("%w: %s", ErrUnhandledKind, msg.Kind())
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", "kind", string(msg.Kind()), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handle %s: panic: %v", msg.Kind(), r)
		}
	}()

	if err := h.Handle(ctx, msg); err != nil {
		d.logger.Error("handler failed", "kind", string(msg.Kind()), "err", err)
		return fmt.Errorf("handle %s: %w", msg.Kind(), err)
	}
	return nil
}
