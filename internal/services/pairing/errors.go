package pairing

import (
	"errors"
	"fmt"

	"relaychat/internal/domain"
)

var (
	// ErrProtocolViolation marks a message that the peer's current state
	// does not accept. Handlers log it and carry on.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrNoRequest is returned by Accept when no incoming request is pending.
	ErrNoRequest = errors.New("no pending request from peer")
)

// StoreError is a failed pairing store operation. The step that hit it was
// aborted and the peer's state is unchanged.
type StoreError struct {
	Op   string
	Peer domain.UserID
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("pairing store %s for %s: %v", e.Op, e.Peer, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
