// Package crypto exposes the key-exchange primitive used by friend pairing.
//
// Contents
//
//   - Key-exchange suites: X25519 (golang.org/x/crypto/curve25519) and X448
//     (github.com/cloudflare/circl), selected by name with SuiteByName
//   - Shared-secret derivation: raw Diffie–Hellman output run through
//     HKDF-SHA256 (DeriveSharedSecret)
//   - Transportable key text: standard base64 (EncodeKey, DecodeKey)
//   - Short fingerprints for display/logging (Fingerprint)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Private keys are plain byte slices so they can be persisted by any store.
// Callers should Wipe them once a secret has been derived.
package crypto
