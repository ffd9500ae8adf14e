package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"relaychat/internal/domain"
)

// SecretBytes is the length of a derived shared secret.
const SecretBytes = 32

var (
	// ErrUnknownSuite is returned by SuiteByName for unsupported names.
	ErrUnknownSuite = errors.New("unknown key-exchange suite")
	// ErrBadKey is returned when key material has the wrong size or is rejected
	// by the curve (e.g. a low-order point).
	ErrBadKey = errors.New("invalid key material")
)

// KeyPair is a freshly generated key-exchange pair.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// Suite is one Diffie–Hellman group.
type Suite interface {
	Name() domain.SuiteName
	PublicKeySize() int
	GenerateKeyPair() (KeyPair, error)
	// Agree returns the raw Diffie–Hellman output for private and peerPublic.
	Agree(private, peerPublic []byte) ([]byte, error)
}

const (
	SuiteX25519 domain.SuiteName = "x25519"
	SuiteX448   domain.SuiteName = "x448"
)

// DefaultSuite is used when no suite is configured.
var DefaultSuite Suite = X25519{}

// SuiteByName returns the suite registered under name (case-insensitive).
// An empty name selects DefaultSuite.
func SuiteByName(name string) (Suite, error) {
	switch domain.SuiteName(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultSuite, nil
	case SuiteX25519:
		return X25519{}, nil
	case SuiteX448:
		return X448{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
}

// DeriveSharedSecret runs Diffie–Hellman for (private, peerPublic) and
// expands the result with HKDF-SHA256 into SecretBytes bytes. Both parties
// get the same secret from their own private key and the other's public key.
func DeriveSharedSecret(s Suite, private, peerPublic []byte) ([]byte, error) {
	raw, err := s.Agree(private, peerPublic)
	if err != nil {
		return nil, err
	}
	defer Wipe(raw)

	info := []byte("relaychat-pairing/" + string(s.Name()))
	out := make([]byte, SecretBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, info), out); err != nil {
		return nil, err
	}
	return out, nil
}
