package types

// Role records which side of a handshake generated a key pair.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

// KeyPairRecord is the local half of a handshake with one peer.
//
// LocalPrivateKey never leaves the store except to feed the key-exchange
// primitive; it is never put on the wire.
type KeyPairRecord struct {
	PeerID          UserID    `json:"peer_id"`
	Suite           SuiteName `json:"suite"`
	Role            Role      `json:"role"`
	LocalPublicKey  []byte    `json:"local_public_key"`
	LocalPrivateKey []byte    `json:"local_private_key"`
	Acknowledged    bool      `json:"acknowledged"`
	CreatedUTC      int64     `json:"created_utc"`
}
