package types

// IncomingKeyRequest is a peer's contribution to a handshake this client did
// not initiate. It is kept until a secret is derived.
type IncomingKeyRequest struct {
	PeerID        UserID       `json:"peer_id"`
	Profile       PeerIdentity `json:"profile"`
	PeerPublicKey []byte       `json:"peer_public_key"`
	ReceivedUTC   int64        `json:"received_utc"`
}

// SharedSecret is the final artifact of a completed handshake.
type SharedSecret struct {
	PeerID     UserID    `json:"peer_id"`
	Suite      SuiteName `json:"suite"`
	Secret     []byte    `json:"secret"`
	DerivedUTC int64     `json:"derived_utc"`
}

// PairingState is the handshake position for one peer, derived from the
// persisted records.
type PairingState int

const (
	NoRelationship PairingState = iota
	KeySent
	KeyAcknowledged
	RequestReceived
	ResponseSent
	SecretDerived
)

var pairingStateNames = [...]string{
	NoRelationship:  "no-relationship",
	KeySent:         "key-sent",
	KeyAcknowledged: "key-acknowledged",
	RequestReceived: "request-received",
	ResponseSent:    "response-sent",
	SecretDerived:   "secret-derived",
}

// String returns a kebab-case name for the state.
func (s PairingState) String() string {
	if s < 0 || int(s) >= len(pairingStateNames) {
		return "unknown"
	}
	return pairingStateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s PairingState) Terminal() bool { return s == SecretDerived }

// Relationship summarises what the store holds about one peer.
type Relationship struct {
	Peer   PeerIdentity  `json:"peer"`
	State  PairingState  `json:"state"`
	Secret *SharedSecret `json:"secret,omitempty"`
}
