package types

import "errors"

var (
	// ErrSecretExists is returned when a shared secret is saved for a peer that
	// already has one. Secrets are never overwritten.
	ErrSecretExists = errors.New("shared secret already derived for peer")

	// ErrNoKeyPair is returned when a key pair record is required but missing.
	ErrNoKeyPair = errors.New("no key pair recorded for peer")
)
