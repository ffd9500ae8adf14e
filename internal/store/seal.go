package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"relaychat/internal/util/memzero"
)

// sealFormatVersion is the newest sealed blob layout this package reads.
const sealFormatVersion = 1

var (
	// ErrWrongPassphrase is returned when a sealed file cannot be opened,
	// either because the passphrase is wrong or the file was modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted store file")
	// ErrNoPassphrase is returned by NewFileStore without a passphrase.
	ErrNoPassphrase = errors.New("file store requires a passphrase")
)

// ScryptParams tunes the passphrase KDF used for sealed files.
type ScryptParams struct {
	N, R, P int
}

// DefaultScrypt is the cost used unless a caller overrides it.
var DefaultScrypt = ScryptParams{N: 1 << 15, R: 8, P: 1}

// sealed is the on-disk JSON structure of one sealed table file.
type sealed struct {
	V      int    `json:"v"`
	Table  string `json:"table"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// additionalData binds a ciphertext to the table it was written for, so a
// sealed file copied over another table's file does not open.
func (bl *sealed) additionalData() []byte {
	ad := make([]byte, 0, len("relaychat/")+len(bl.Table)+1+len(bl.Salt))
	ad = append(ad, "relaychat/"...)
	ad = append(ad, bl.Table...)
	ad = append(ad, 0)
	return append(ad, bl.Salt...)
}

// open derives the file key and returns the AEAD for bl. The zero nonce is
// safe because every seal draws a fresh salt and therefore a fresh key.
func (bl *sealed) open(passphrase string) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key for %s: %w", bl.Table, err)
	}
	defer memzero.Zero(key)
	return chacha20poly1305.New(key)
}

var zeroNonce [chacha20poly1305.NonceSize]byte

// seal encrypts the contents raw of table under passphrase.
func seal(table, passphrase string, raw []byte, kdf ScryptParams) ([]byte, error) {
	bl := sealed{V: sealFormatVersion, Table: table, Salt: make([]byte, 16), N: kdf.N, R: kdf.R, P: kdf.P}
	if _, err := rand.Read(bl.Salt); err != nil {
		return nil, err
	}
	aead, err := bl.open(passphrase)
	if err != nil {
		return nil, err
	}
	bl.Cipher = aead.Seal(nil, zeroNonce[:], raw, bl.additionalData())
	return json.Marshal(bl)
}

// unseal opens a blob that seal produced for table.
func unseal(table, passphrase string, b []byte) ([]byte, error) {
	var bl sealed
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, fmt.Errorf("parse sealed %s: %w", table, err)
	}
	if bl.V > sealFormatVersion {
		return nil, fmt.Errorf("unsupported sealed file version %d", bl.V)
	}
	// The header is not trusted; a foreign table fails authentication below.
	bl.Table = table
	aead, err := bl.open(passphrase)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, zeroNonce[:], bl.Cipher, bl.additionalData())
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
