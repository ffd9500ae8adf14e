package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"relaychat/internal/domain"
)

// SQLiteStore keeps pairing state in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS peers (
			peer_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS key_pairs (
			peer_id TEXT PRIMARY KEY,
			suite TEXT NOT NULL,
			role TEXT NOT NULL,
			public_key BLOB NOT NULL,
			private_key BLOB NOT NULL,
			acknowledged INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS incoming_requests (
			peer_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			public_key BLOB NOT NULL,
			received_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS shared_secrets (
			peer_id TEXT PRIMARY KEY,
			suite TEXT NOT NULL,
			secret BLOB NOT NULL,
			derived_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---------- Peers ----------

func (s *SQLiteStore) UpsertPeerIdentity(p domain.PeerIdentity) error {
	_, err := s.db.Exec(`INSERT INTO peers(peer_id, display_name, email, phone) VALUES(?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET display_name=excluded.display_name, email=excluded.email, phone=excluded.phone`,
		string(p.ID), p.DisplayName, p.Email, p.Phone)
	return err
}

func (s *SQLiteStore) LoadPeerIdentity(id domain.UserID) (domain.PeerIdentity, bool, error) {
	p := domain.PeerIdentity{ID: id}
	err := s.db.QueryRow(`SELECT display_name, email, phone FROM peers WHERE peer_id = ?`, string(id)).
		Scan(&p.DisplayName, &p.Email, &p.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PeerIdentity{}, false, nil
	}
	if err != nil {
		return domain.PeerIdentity{}, false, err
	}
	return p, true, nil
}

func (s *SQLiteStore) ListPeerIdentities() ([]domain.PeerIdentity, error) {
	rows, err := s.db.Query(`SELECT peer_id, display_name, email, phone FROM peers ORDER BY peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.PeerIdentity{}
	for rows.Next() {
		var p domain.PeerIdentity
		var id string
		if err := rows.Scan(&id, &p.DisplayName, &p.Email, &p.Phone); err != nil {
			return nil, err
		}
		p.ID = domain.UserID(id)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------- Key pairs ----------

func (s *SQLiteStore) SaveKeyPair(r domain.KeyPairRecord) error {
	_, err := s.db.Exec(`INSERT INTO key_pairs(peer_id, suite, role, public_key, private_key, acknowledged, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET suite=excluded.suite, role=excluded.role,
			public_key=excluded.public_key, private_key=excluded.private_key,
			acknowledged=excluded.acknowledged, created_at=excluded.created_at`,
		string(r.PeerID), string(r.Suite), string(r.Role), r.LocalPublicKey, r.LocalPrivateKey, boolToInt(r.Acknowledged), r.CreatedUTC)
	return err
}

func (s *SQLiteStore) LoadKeyPair(peer domain.UserID) (domain.KeyPairRecord, bool, error) {
	r := domain.KeyPairRecord{PeerID: peer}
	var suite, role string
	var acked int
	err := s.db.QueryRow(`SELECT suite, role, public_key, private_key, acknowledged, created_at FROM key_pairs WHERE peer_id = ?`, string(peer)).
		Scan(&suite, &role, &r.LocalPublicKey, &r.LocalPrivateKey, &acked, &r.CreatedUTC)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.KeyPairRecord{}, false, nil
	}
	if err != nil {
		return domain.KeyPairRecord{}, false, err
	}
	r.Suite = domain.SuiteName(suite)
	r.Role = domain.Role(role)
	r.Acknowledged = acked != 0
	return r, true, nil
}

func (s *SQLiteStore) MarkAcknowledged(peer domain.UserID) error {
	res, err := s.db.Exec(`UPDATE key_pairs SET acknowledged = 1 WHERE peer_id = ?`, string(peer))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoKeyPair
	}
	return nil
}

// ---------- Incoming requests ----------

func (s *SQLiteStore) SaveIncomingRequest(r domain.IncomingKeyRequest) error {
	_, err := s.db.Exec(`INSERT INTO incoming_requests(peer_id, display_name, email, phone, public_key, received_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET display_name=excluded.display_name, email=excluded.email,
			phone=excluded.phone, public_key=excluded.public_key, received_at=excluded.received_at`,
		string(r.PeerID), r.Profile.DisplayName, r.Profile.Email, r.Profile.Phone, r.PeerPublicKey, r.ReceivedUTC)
	return err
}

func (s *SQLiteStore) LoadIncomingRequest(peer domain.UserID) (domain.IncomingKeyRequest, bool, error) {
	r := domain.IncomingKeyRequest{PeerID: peer, Profile: domain.PeerIdentity{ID: peer}}
	err := s.db.QueryRow(`SELECT display_name, email, phone, public_key, received_at FROM incoming_requests WHERE peer_id = ?`, string(peer)).
		Scan(&r.Profile.DisplayName, &r.Profile.Email, &r.Profile.Phone, &r.PeerPublicKey, &r.ReceivedUTC)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IncomingKeyRequest{}, false, nil
	}
	if err != nil {
		return domain.IncomingKeyRequest{}, false, err
	}
	return r, true, nil
}

func (s *SQLiteStore) ListIncomingRequests() ([]domain.IncomingKeyRequest, error) {
	rows, err := s.db.Query(`SELECT peer_id, display_name, email, phone, public_key, received_at FROM incoming_requests ORDER BY peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.IncomingKeyRequest{}
	for rows.Next() {
		var r domain.IncomingKeyRequest
		var id string
		if err := rows.Scan(&id, &r.Profile.DisplayName, &r.Profile.Email, &r.Profile.Phone, &r.PeerPublicKey, &r.ReceivedUTC); err != nil {
			return nil, err
		}
		r.PeerID = domain.UserID(id)
		r.Profile.ID = r.PeerID
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------- Secrets ----------

func (s *SQLiteStore) SaveSharedSecret(sec domain.SharedSecret) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRow(`SELECT 1 FROM shared_secrets WHERE peer_id = ?`, string(sec.PeerID)).Scan(&one)
	switch {
	case err == nil:
		return domain.ErrSecretExists
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	if _, err := tx.Exec(`INSERT INTO shared_secrets(peer_id, suite, secret, derived_at) VALUES(?, ?, ?, ?)`,
		string(sec.PeerID), string(sec.Suite), sec.Secret, sec.DerivedUTC); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSharedSecret(peer domain.UserID) (domain.SharedSecret, bool, error) {
	sec := domain.SharedSecret{PeerID: peer}
	var suite string
	err := s.db.QueryRow(`SELECT suite, secret, derived_at FROM shared_secrets WHERE peer_id = ?`, string(peer)).
		Scan(&suite, &sec.Secret, &sec.DerivedUTC)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SharedSecret{}, false, nil
	}
	if err != nil {
		return domain.SharedSecret{}, false, err
	}
	sec.Suite = domain.SuiteName(suite)
	return sec, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time assertion that SQLiteStore implements domain.PairingStore.
var _ domain.PairingStore = (*SQLiteStore)(nil)
