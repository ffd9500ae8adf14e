package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"relaychat/internal/crypto"
)

func suites(t *testing.T) []crypto.Suite {
	t.Helper()
	var out []crypto.Suite
	for _, name := range []string{"x25519", "X448"} {
		s, err := crypto.SuiteByName(name)
		if err != nil {
			t.Fatalf("SuiteByName(%q): %v", name, err)
		}
		out = append(out, s)
	}
	return out
}

func TestDeriveSharedSecret_BothSidesAgree(t *testing.T) {
	for _, s := range suites(t) {
		t.Run(s.Name().String(), func(t *testing.T) {
			alice, err := s.GenerateKeyPair()
			if err != nil {
				t.Fatalf("GenerateKeyPair: %v", err)
			}
			bob, err := s.GenerateKeyPair()
			if err != nil {
				t.Fatalf("GenerateKeyPair: %v", err)
			}
			if len(alice.Public) != s.PublicKeySize() {
				t.Fatalf("public key is %d bytes, want %d", len(alice.Public), s.PublicKeySize())
			}

			ab, err := crypto.DeriveSharedSecret(s, alice.Private, bob.Public)
			if err != nil {
				t.Fatalf("alice derive: %v", err)
			}
			ba, err := crypto.DeriveSharedSecret(s, bob.Private, alice.Public)
			if err != nil {
				t.Fatalf("bob derive: %v", err)
			}
			if !bytes.Equal(ab, ba) {
				t.Fatal("shared secrets differ")
			}
			if len(ab) != crypto.SecretBytes {
				t.Fatalf("secret is %d bytes, want %d", len(ab), crypto.SecretBytes)
			}

			eve, err := s.GenerateKeyPair()
			if err != nil {
				t.Fatalf("GenerateKeyPair: %v", err)
			}
			ae, err := crypto.DeriveSharedSecret(s, alice.Private, eve.Public)
			if err != nil {
				t.Fatalf("alice/eve derive: %v", err)
			}
			if bytes.Equal(ab, ae) {
				t.Fatal("different peers produced the same secret")
			}
		})
	}
}

func TestAgree_RejectsBadKeys(t *testing.T) {
	for _, s := range suites(t) {
		t.Run(s.Name().String(), func(t *testing.T) {
			kp, err := s.GenerateKeyPair()
			if err != nil {
				t.Fatalf("GenerateKeyPair: %v", err)
			}
			if _, err := s.Agree(kp.Private, []byte{1, 2, 3}); !errors.Is(err, crypto.ErrBadKey) {
				t.Fatalf("short public key: want ErrBadKey, got %v", err)
			}
			if _, err := s.Agree(kp.Private[:4], kp.Public); !errors.Is(err, crypto.ErrBadKey) {
				t.Fatalf("short private key: want ErrBadKey, got %v", err)
			}
			// The all-zero point has low order on both curves.
			zero := make([]byte, s.PublicKeySize())
			if _, err := s.Agree(kp.Private, zero); !errors.Is(err, crypto.ErrBadKey) {
				t.Fatalf("zero public key: want ErrBadKey, got %v", err)
			}
		})
	}
}

func TestSuiteByName(t *testing.T) {
	s, err := crypto.SuiteByName("")
	if err != nil || s.Name() != crypto.SuiteX25519 {
		t.Fatalf("empty name: got %v, %v", s, err)
	}
	if _, err := crypto.SuiteByName("p256"); !errors.Is(err, crypto.ErrUnknownSuite) {
		t.Fatalf("want ErrUnknownSuite, got %v", err)
	}
}

func TestKeyText_RoundTrip(t *testing.T) {
	kp, err := crypto.X25519{}.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	text := crypto.EncodeKey(kp.Public)
	got, err := crypto.DecodeKey(text, 32)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if !bytes.Equal(got, kp.Public) {
		t.Fatal("decoded key differs")
	}
	if _, err := crypto.DecodeKey(text, 56); !errors.Is(err, crypto.ErrBadKey) {
		t.Fatalf("wrong size: want ErrBadKey, got %v", err)
	}
	if _, err := crypto.DecodeKey("not base64!", 0); !errors.Is(err, crypto.ErrBadKey) {
		t.Fatalf("bad text: want ErrBadKey, got %v", err)
	}
}

func TestFingerprint_StableAndShort(t *testing.T) {
	a := crypto.Fingerprint([]byte("secret"))
	b := crypto.Fingerprint([]byte("secret"))
	if a != b {
		t.Fatal("fingerprint is not deterministic")
	}
	if len(a) != 20 {
		t.Fatalf("fingerprint length = %d, want 20", len(a))
	}
}

func TestWipe(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4}
	crypto.Wipe(a, b, nil)
	if !bytes.Equal(a, []byte{0, 0, 0}) || b[0] != 0 {
		t.Fatalf("buffers not wiped: %v %v", a, b)
	}
}
