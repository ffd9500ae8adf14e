package conn

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send when no stream is open.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by Connect unless the manager is
	// Disconnected.
	ErrAlreadyConnected = errors.New("already connected or connecting")
)

// TransportError is a stream-level I/O failure.
type TransportError struct {
	Op   string // dial, read, write, close
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
