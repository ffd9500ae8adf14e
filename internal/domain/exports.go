package domain

import (
	interfaces "relaychat/internal/domain/interfaces"
	types "relaychat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID             = types.UserID
	Username           = types.Username
	Fingerprint        = types.Fingerprint
	SuiteName          = types.SuiteName
	PeerIdentity       = types.PeerIdentity
	LocalUser          = types.LocalUser
	Role               = types.Role
	KeyPairRecord      = types.KeyPairRecord
	IncomingKeyRequest = types.IncomingKeyRequest
	SharedSecret       = types.SharedSecret
	PairingState       = types.PairingState
	Relationship       = types.Relationship
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	PeerStore    = interfaces.PeerStore
	KeyPairStore = interfaces.KeyPairStore
	RequestStore = interfaces.RequestStore
	SecretStore  = interfaces.SecretStore
	PairingStore = interfaces.PairingStore

	MessageSender = interfaces.MessageSender
)

const (
	RoleInitiator = types.RoleInitiator
	RoleResponder = types.RoleResponder

	NoRelationship  = types.NoRelationship
	KeySent         = types.KeySent
	KeyAcknowledged = types.KeyAcknowledged
	RequestReceived = types.RequestReceived
	ResponseSent    = types.ResponseSent
	SecretDerived   = types.SecretDerived
)

var (
	ErrSecretExists = types.ErrSecretExists
	ErrNoKeyPair    = types.ErrNoKeyPair
)
