package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relaychat/internal/domain"
)

// RedisStore keeps pairing state in Redis, one JSON value per record.
//
// Keys are namespaced as <prefix>:<kind>:<peer>; the peer and request
// indexes are sets so listing needs no SCAN.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// OpenRedisStore connects to addr and checks the server with PING.
func OpenRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "relaychat"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, timeout: 5 * time.Second}
}

func (s *RedisStore) key(kind string, peer domain.UserID) string {
	return s.prefix + ":" + kind + ":" + string(peer)
}

func (s *RedisStore) index(kind string) string { return s.prefix + ":" + kind }

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// getJSON loads key into out and reports whether it existed.
func (s *RedisStore) getJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

// putIndexed writes a record and adds it to an index set in one transaction.
func (s *RedisStore) putIndexed(kind, indexKind string, peer domain.UserID, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(kind, peer), b, 0)
		pipe.SAdd(ctx, s.index(indexKind), string(peer))
		return nil
	})
	return err
}

// listIndexed loads every record named in an index set.
func listIndexed[T any](s *RedisStore, kind, indexKind string) ([]T, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	ids, err := s.rdb.SMembers(ctx, s.index(indexKind)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(kind, domain.UserID(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ---------- Peers ----------

func (s *RedisStore) UpsertPeerIdentity(p domain.PeerIdentity) error {
	return s.putIndexed("peer", "peers", p.ID, p)
}

func (s *RedisStore) LoadPeerIdentity(id domain.UserID) (domain.PeerIdentity, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var p domain.PeerIdentity
	ok, err := s.getJSON(ctx, s.key("peer", id), &p)
	return p, ok, err
}

func (s *RedisStore) ListPeerIdentities() ([]domain.PeerIdentity, error) {
	out, err := listIndexed[domain.PeerIdentity](s, "peer", "peers")
	if err != nil {
		return nil, err
	}
	sortPeers(out)
	return out, nil
}

// ---------- Key pairs ----------

func (s *RedisStore) SaveKeyPair(r domain.KeyPairRecord) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Set(ctx, s.key("keypair", r.PeerID), b, 0).Err()
}

func (s *RedisStore) LoadKeyPair(peer domain.UserID) (domain.KeyPairRecord, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var r domain.KeyPairRecord
	ok, err := s.getJSON(ctx, s.key("keypair", peer), &r)
	return r, ok, err
}

func (s *RedisStore) MarkAcknowledged(peer domain.UserID) error {
	ctx, cancel := s.ctx()
	defer cancel()
	key := s.key("keypair", peer)

	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNoKeyPair
		}
		if err != nil {
			return err
		}
		var r domain.KeyPairRecord
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		r.Acknowledged = true
		nb, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, 0)
			return nil
		})
		return err
	}, key)
}

// ---------- Incoming requests ----------

func (s *RedisStore) SaveIncomingRequest(r domain.IncomingKeyRequest) error {
	return s.putIndexed("request", "requests", r.PeerID, r)
}

func (s *RedisStore) LoadIncomingRequest(peer domain.UserID) (domain.IncomingKeyRequest, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var r domain.IncomingKeyRequest
	ok, err := s.getJSON(ctx, s.key("request", peer), &r)
	return r, ok, err
}

func (s *RedisStore) ListIncomingRequests() ([]domain.IncomingKeyRequest, error) {
	out, err := listIndexed[domain.IncomingKeyRequest](s, "request", "requests")
	if err != nil {
		return nil, err
	}
	sortRequests(out)
	return out, nil
}

// ---------- Secrets ----------

func (s *RedisStore) SaveSharedSecret(sec domain.SharedSecret) error {
	b, err := json.Marshal(sec)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	created, err := s.rdb.SetNX(ctx, s.key("secret", sec.PeerID), b, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrSecretExists
	}
	return nil
}

func (s *RedisStore) LoadSharedSecret(peer domain.UserID) (domain.SharedSecret, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var sec domain.SharedSecret
	ok, err := s.getJSON(ctx, s.key("secret", peer), &sec)
	return sec, ok, err
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// Compile-time assertion that RedisStore implements domain.PairingStore.
var _ domain.PairingStore = (*RedisStore)(nil)
