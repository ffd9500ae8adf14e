package interfaces

import "relaychat/internal/wire"

// MessageSender writes one message to the relay. Implementations must be
// safe to call from any goroutine.
type MessageSender interface {
	Send(msg wire.Message) error
}
