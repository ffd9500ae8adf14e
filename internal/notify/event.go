package notify

import (
	"time"

	"github.com/google/uuid"

	"relaychat/internal/domain"
)

// EventKind names what happened.
type EventKind string

const (
	LoggedIn          EventKind = "logged-in"
	LoginFailed       EventKind = "login-failed"
	SaltReceived      EventKind = "salt-received"
	UserFound         EventKind = "user-found"
	UserNotFound      EventKind = "user-not-found"
	FriendRequested   EventKind = "friend-requested"
	RequestReceived   EventKind = "request-received"
	RequestTaken      EventKind = "request-taken"
	SecretEstablished EventKind = "secret-established"
	HandlerFailed     EventKind = "handler-failed"
	ConnectionLost    EventKind = "connection-lost"
)

// Event is one notification.
type Event struct {
	ID      string
	Kind    EventKind
	PeerID  domain.UserID
	Text    string
	Payload map[string]string
	At      time.Time
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(kind EventKind, peer domain.UserID, text string) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		PeerID: peer,
		Text:   text,
		At:     time.Now().UTC(),
	}
}

// WithPayload returns a copy of e carrying key=value.
func (e Event) WithPayload(key, value string) Event {
	p := make(map[string]string, len(e.Payload)+1)
	for k, v := range e.Payload {
		p[k] = v
	}
	p[key] = value
	e.Payload = p
	return e
}
