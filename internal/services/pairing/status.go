package pairing

import (
	"sort"

	"relaychat/internal/domain"
)

// Status reports where the handshake with peer stands.
func (s *Service) Status(peer domain.UserID) (domain.PairingState, error) {
	st, _, err := s.status(peer)
	return st, err
}

func (s *Service) status(peer domain.UserID) (domain.PairingState, *domain.SharedSecret, error) {
	sec, ok, err := s.store.LoadSharedSecret(peer)
	if err != nil {
		return domain.NoRelationship, nil, &StoreError{Op: "load secret", Peer: peer, Err: err}
	}
	if ok {
		return domain.SecretDerived, &sec, nil
	}
	rec, ok, err := s.store.LoadKeyPair(peer)
	if err != nil {
		return domain.NoRelationship, nil, &StoreError{Op: "load key pair", Peer: peer, Err: err}
	}
	if ok {
		switch {
		case rec.Role == domain.RoleResponder:
			return domain.ResponseSent, nil, nil
		case rec.Acknowledged:
			return domain.KeyAcknowledged, nil, nil
		default:
			return domain.KeySent, nil, nil
		}
	}
	_, ok, err = s.store.LoadIncomingRequest(peer)
	if err != nil {
		return domain.NoRelationship, nil, &StoreError{Op: "load request", Peer: peer, Err: err}
	}
	if ok {
		return domain.RequestReceived, nil, nil
	}
	return domain.NoRelationship, nil, nil
}

// Relationships lists every known peer with its handshake state, ordered by
// peer id.
func (s *Service) Relationships() ([]domain.Relationship, error) {
	peers, err := s.store.ListPeerIdentities()
	if err != nil {
		return nil, &StoreError{Op: "list peers", Err: err}
	}
	reqs, err := s.store.ListIncomingRequests()
	if err != nil {
		return nil, &StoreError{Op: "list requests", Err: err}
	}

	known := make(map[domain.UserID]domain.PeerIdentity, len(peers)+len(reqs))
	for _, r := range reqs {
		known[r.PeerID] = r.Profile
	}
	for _, p := range peers {
		known[p.ID] = p
	}

	out := make([]domain.Relationship, 0, len(known))
	for id, p := range known {
		st, sec, err := s.status(id)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Relationship{Peer: p, State: st, Secret: sec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peer.ID < out[j].Peer.ID })
	return out, nil
}

// PendingRequests lists incoming requests that have no secret yet.
func (s *Service) PendingRequests() ([]domain.IncomingKeyRequest, error) {
	reqs, err := s.store.ListIncomingRequests()
	if err != nil {
		return nil, &StoreError{Op: "list requests", Err: err}
	}
	out := reqs[:0]
	for _, r := range reqs {
		if _, ok, err := s.store.LoadSharedSecret(r.PeerID); err != nil {
			return nil, &StoreError{Op: "load secret", Peer: r.PeerID, Err: err}
		} else if !ok {
			out = append(out, r)
		}
	}
	return out, nil
}
