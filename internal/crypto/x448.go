package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/dh/x448"

	"relaychat/internal/domain"
)

// X448 is the Curve448 suite.
type X448 struct{}

func (X448) Name() domain.SuiteName { return SuiteX448 }

func (X448) PublicKeySize() int { return x448.Size }

// GenerateKeyPair returns a fresh Curve448 key pair.
func (X448) GenerateKeyPair() (KeyPair, error) {
	var secret, public x448.Key
	if _, err := rand.Read(secret[:]); err != nil {
		return KeyPair{}, err
	}
	x448.KeyGen(&public, &secret)
	kp := KeyPair{
		Public:  append([]byte(nil), public[:]...),
		Private: append([]byte(nil), secret[:]...),
	}
	Wipe(secret[:])
	return kp, nil
}

// Agree computes X448 Diffie–Hellman.
func (X448) Agree(private, peerPublic []byte) ([]byte, error) {
	if len(private) != x448.Size {
		return nil, fmt.Errorf("%w: x448 private: want %d bytes, got %d", ErrBadKey, x448.Size, len(private))
	}
	if len(peerPublic) != x448.Size {
		return nil, fmt.Errorf("%w: x448 public: want %d bytes, got %d", ErrBadKey, x448.Size, len(peerPublic))
	}
	var secret, public, shared x448.Key
	copy(secret[:], private)
	copy(public[:], peerPublic)
	defer Wipe(secret[:])
	if !x448.Shared(&shared, &secret, &public) {
		return nil, fmt.Errorf("%w: x448 low-order public key", ErrBadKey)
	}
	return append([]byte(nil), shared[:]...), nil
}
