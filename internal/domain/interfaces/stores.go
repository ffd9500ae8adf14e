package interfaces

import domaintypes "relaychat/internal/domain/types"

// PeerStore persists peer profiles.
type PeerStore interface {
	UpsertPeerIdentity(peer domaintypes.PeerIdentity) error
	LoadPeerIdentity(id domaintypes.UserID) (domaintypes.PeerIdentity, bool, error)
	ListPeerIdentities() ([]domaintypes.PeerIdentity, error)
}

// KeyPairStore persists the local key pair for each handshake.
type KeyPairStore interface {
	SaveKeyPair(record domaintypes.KeyPairRecord) error
	LoadKeyPair(peer domaintypes.UserID) (domaintypes.KeyPairRecord, bool, error)
	// MarkAcknowledged flips Acknowledged to true. It returns
	// domaintypes.ErrNoKeyPair when no record exists.
	MarkAcknowledged(peer domaintypes.UserID) error
}

// RequestStore persists incoming friend requests.
type RequestStore interface {
	SaveIncomingRequest(request domaintypes.IncomingKeyRequest) error
	LoadIncomingRequest(peer domaintypes.UserID) (domaintypes.IncomingKeyRequest, bool, error)
	ListIncomingRequests() ([]domaintypes.IncomingKeyRequest, error)
}

// SecretStore persists derived shared secrets.
type SecretStore interface {
	// SaveSharedSecret stores a new secret. It returns
	// domaintypes.ErrSecretExists if the peer already has one.
	SaveSharedSecret(secret domaintypes.SharedSecret) error
	LoadSharedSecret(peer domaintypes.UserID) (domaintypes.SharedSecret, bool, error)
}

// PairingStore is everything the friend-pairing protocol persists.
//
// Every operation writes a whole record or nothing; implementations must be
// safe for concurrent use.
type PairingStore interface {
	PeerStore
	KeyPairStore
	RequestStore
	SecretStore
}
