package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"relaychat/internal/domain"
)

// X25519 is the Curve25519 suite.
type X25519 struct{}

func (X25519) Name() domain.SuiteName { return SuiteX25519 }

func (X25519) PublicKeySize() int { return curve25519.PointSize }

// GenerateKeyPair returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func (X25519) GenerateKeyPair() (KeyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return KeyPair{}, err
	}
	clamp(priv)
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		Wipe(priv)
		return KeyPair{}, err
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// Agree computes X25519 Diffie–Hellman.
func (X25519) Agree(private, peerPublic []byte) ([]byte, error) {
	if len(private) != curve25519.ScalarSize {
		return nil, fmt.Errorf("%w: x25519 private: want %d bytes, got %d", ErrBadKey, curve25519.ScalarSize, len(private))
	}
	if len(peerPublic) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: x25519 public: want %d bytes, got %d", ErrBadKey, curve25519.PointSize, len(peerPublic))
	}
	secret, err := curve25519.X25519(private, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return secret, nil
}

func clamp(k []byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
