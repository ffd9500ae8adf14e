package store

import (
	"sort"

	"relaychat/internal/domain"
)

// The clone helpers keep callers from aliasing stored key material.

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneKeyPair(r domain.KeyPairRecord) domain.KeyPairRecord {
	r.LocalPublicKey = cloneBytes(r.LocalPublicKey)
	r.LocalPrivateKey = cloneBytes(r.LocalPrivateKey)
	return r
}

func cloneRequest(r domain.IncomingKeyRequest) domain.IncomingKeyRequest {
	r.PeerPublicKey = cloneBytes(r.PeerPublicKey)
	return r
}

func cloneSecret(s domain.SharedSecret) domain.SharedSecret {
	s.Secret = cloneBytes(s.Secret)
	return s
}

func sortPeers(ps []domain.PeerIdentity) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

func sortRequests(rs []domain.IncomingKeyRequest) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].PeerID < rs[j].PeerID })
}
