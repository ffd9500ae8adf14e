package store

import (
	"sync"

	"relaychat/internal/domain"
)

// MemoryStore keeps pairing state in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	peers    map[domain.UserID]domain.PeerIdentity
	keyPairs map[domain.UserID]domain.KeyPairRecord
	requests map[domain.UserID]domain.IncomingKeyRequest
	secrets  map[domain.UserID]domain.SharedSecret
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		peers:    make(map[domain.UserID]domain.PeerIdentity),
		keyPairs: make(map[domain.UserID]domain.KeyPairRecord),
		requests: make(map[domain.UserID]domain.IncomingKeyRequest),
		secrets:  make(map[domain.UserID]domain.SharedSecret),
	}
}

// ---------- Peers ----------

func (s *MemoryStore) UpsertPeerIdentity(p domain.PeerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p.ID] = p
	return nil
}

func (s *MemoryStore) LoadPeerIdentity(id domain.UserID) (domain.PeerIdentity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[id]
	return p, ok, nil
}

func (s *MemoryStore) ListPeerIdentities() ([]domain.PeerIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PeerIdentity, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	sortPeers(out)
	return out, nil
}

// ---------- Key pairs ----------

func (s *MemoryStore) SaveKeyPair(r domain.KeyPairRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPairs[r.PeerID] = cloneKeyPair(r)
	return nil
}

func (s *MemoryStore) LoadKeyPair(peer domain.UserID) (domain.KeyPairRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.keyPairs[peer]
	if !ok {
		return domain.KeyPairRecord{}, false, nil
	}
	return cloneKeyPair(r), true, nil
}

func (s *MemoryStore) MarkAcknowledged(peer domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.keyPairs[peer]
	if !ok {
		return domain.ErrNoKeyPair
	}
	r.Acknowledged = true
	s.keyPairs[peer] = r
	return nil
}

// ---------- Incoming requests ----------

func (s *MemoryStore) SaveIncomingRequest(r domain.IncomingKeyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.PeerID] = cloneRequest(r)
	return nil
}

func (s *MemoryStore) LoadIncomingRequest(peer domain.UserID) (domain.IncomingKeyRequest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[peer]
	if !ok {
		return domain.IncomingKeyRequest{}, false, nil
	}
	return cloneRequest(r), true, nil
}

func (s *MemoryStore) ListIncomingRequests() ([]domain.IncomingKeyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IncomingKeyRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, cloneRequest(r))
	}
	sortRequests(out)
	return out, nil
}

// ---------- Secrets ----------

func (s *MemoryStore) SaveSharedSecret(sec domain.SharedSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[sec.PeerID]; ok {
		return domain.ErrSecretExists
	}
	s.secrets[sec.PeerID] = cloneSecret(sec)
	return nil
}

func (s *MemoryStore) LoadSharedSecret(peer domain.UserID) (domain.SharedSecret, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[peer]
	if !ok {
		return domain.SharedSecret{}, false, nil
	}
	return cloneSecret(sec), true, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Compile-time assertion that MemoryStore implements domain.PairingStore.
var _ domain.PairingStore = (*MemoryStore)(nil)
