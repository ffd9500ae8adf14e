package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"relaychat/internal/domain"
)

const (
	peersFile    = "peers.json"    // map[UserID]PeerIdentity
	requestsFile = "requests.json" // map[UserID]IncomingKeyRequest
	keyPairsFile = "keypairs.enc"  // sealed map[UserID]KeyPairRecord
	secretsFile  = "secrets.enc"   // sealed map[UserID]SharedSecret
)

// FileStore stores pairing state as JSON files in one directory. Files that
// hold private keys or secrets are sealed with a passphrase.
type FileStore struct {
	dir        string
	passphrase string
	kdf        ScryptParams
	mu         sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithScrypt overrides the KDF cost used when sealing files.
func WithScrypt(p ScryptParams) FileOption {
	return func(s *FileStore) { s.kdf = p }
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir, passphrase string, opts ...FileOption) (*FileStore, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &FileStore{dir: dir, passphrase: passphrase, kdf: DefaultScrypt}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name) }

func (s *FileStore) keyPairs() (table[domain.KeyPairRecord], error) {
	return loadSealedTable[domain.KeyPairRecord](s.path(keyPairsFile), s.passphrase)
}

func (s *FileStore) secrets() (table[domain.SharedSecret], error) {
	return loadSealedTable[domain.SharedSecret](s.path(secretsFile), s.passphrase)
}

// ---------- Peers ----------

func (s *FileStore) UpsertPeerIdentity(p domain.PeerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.PeerIdentity](s.path(peersFile))
	if err != nil {
		return err
	}
	m[p.ID] = p
	return saveTable(s.path(peersFile), m)
}

func (s *FileStore) LoadPeerIdentity(id domain.UserID) (domain.PeerIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.PeerIdentity](s.path(peersFile))
	if err != nil {
		return domain.PeerIdentity{}, false, err
	}
	p, ok := m[id]
	return p, ok, nil
}

func (s *FileStore) ListPeerIdentities() ([]domain.PeerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.PeerIdentity](s.path(peersFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.PeerIdentity, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sortPeers(out)
	return out, nil
}

// ---------- Key pairs ----------

func (s *FileStore) SaveKeyPair(r domain.KeyPairRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.keyPairs()
	if err != nil {
		return err
	}
	m[r.PeerID] = r
	return saveSealedTable(s.path(keyPairsFile), s.passphrase, s.kdf, m)
}

func (s *FileStore) LoadKeyPair(peer domain.UserID) (domain.KeyPairRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.keyPairs()
	if err != nil {
		return domain.KeyPairRecord{}, false, err
	}
	r, ok := m[peer]
	return r, ok, nil
}

func (s *FileStore) MarkAcknowledged(peer domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.keyPairs()
	if err != nil {
		return err
	}
	r, ok := m[peer]
	if !ok {
		return domain.ErrNoKeyPair
	}
	r.Acknowledged = true
	m[peer] = r
	return saveSealedTable(s.path(keyPairsFile), s.passphrase, s.kdf, m)
}

// ---------- Incoming requests ----------

func (s *FileStore) SaveIncomingRequest(r domain.IncomingKeyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.IncomingKeyRequest](s.path(requestsFile))
	if err != nil {
		return err
	}
	m[r.PeerID] = r
	return saveTable(s.path(requestsFile), m)
}

func (s *FileStore) LoadIncomingRequest(peer domain.UserID) (domain.IncomingKeyRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.IncomingKeyRequest](s.path(requestsFile))
	if err != nil {
		return domain.IncomingKeyRequest{}, false, err
	}
	r, ok := m[peer]
	return r, ok, nil
}

func (s *FileStore) ListIncomingRequests() ([]domain.IncomingKeyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadTable[domain.IncomingKeyRequest](s.path(requestsFile))
	if err != nil {
		return nil, err
	}
	out := make([]domain.IncomingKeyRequest, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sortRequests(out)
	return out, nil
}

// ---------- Secrets ----------

func (s *FileStore) SaveSharedSecret(sec domain.SharedSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.secrets()
	if err != nil {
		return err
	}
	if _, ok := m[sec.PeerID]; ok {
		return domain.ErrSecretExists
	}
	m[sec.PeerID] = sec
	return saveSealedTable(s.path(secretsFile), s.passphrase, s.kdf, m)
}

func (s *FileStore) LoadSharedSecret(peer domain.UserID) (domain.SharedSecret, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.secrets()
	if err != nil {
		return domain.SharedSecret{}, false, err
	}
	sec, ok := m[peer]
	return sec, ok, nil
}

// Close is a no-op; every write is flushed before it returns.
func (s *FileStore) Close() error { return nil }

// Compile-time assertion that FileStore implements domain.PairingStore.
var _ domain.PairingStore = (*FileStore)(nil)
