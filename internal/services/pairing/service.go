package pairing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"relaychat/internal/crypto"
	"relaychat/internal/dispatch"
	"relaychat/internal/domain"
	"relaychat/internal/notify"
	"relaychat/internal/wire"
)

// Options collects the Service's collaborators.
type Options struct {
	Store  domain.PairingStore
	Sender domain.MessageSender
	Suite  crypto.Suite     // defaults to crypto.DefaultSuite
	Sink   notify.Sink      // defaults to notify.Discard
	Logger *log.Logger      // defaults to log.Default()
	Clock  func() time.Time // defaults to time.Now
}

// Service drives the friend-pairing handshake for every peer.
type Service struct {
	store  domain.PairingStore
	sender domain.MessageSender
	suite  crypto.Suite
	sink   notify.Sink
	logger *log.Logger
	now    func() time.Time
	locks  peerLocks
}

// New constructs a Service.
func New(opts Options) *Service {
	s := &Service{
		store:  opts.Store,
		sender: opts.Sender,
		suite:  opts.Suite,
		sink:   opts.Sink,
		logger: opts.Logger,
		now:    opts.Clock,
	}
	if s.suite == nil {
		s.suite = crypto.DefaultSuite
	}
	if s.sink == nil {
		s.sink = notify.Discard
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.With("component", "pairing")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register installs the inbound handlers on d.
func (s *Service) Register(d *dispatch.Dispatcher) {
	d.RegisterFunc(wire.KindUserResolved, s.HandleUserResolved)
	d.RegisterFunc(wire.KindFriendRequestIncoming, s.HandleFriendRequestIncoming)
	d.RegisterFunc(wire.KindRequestAcknowledged, s.HandleRequestAcknowledged)
	d.RegisterFunc(wire.KindHandshakeComplete, s.HandleHandshakeComplete)
}

// Initiate starts a handshake with peer as the initiator.
//
// Steps:
//  1. Skip if a secret exists or the peer's request is already acknowledged.
//  2. Reuse an unacknowledged initiator key pair, or generate a fresh one
//     and persist it unacknowledged.
//  3. Send FriendRequest{userId=peer, publicKey} to the relay.
//
// Calling it again before the acknowledgement resends the same public key,
// which the peer treats as a duplicate.
func (s *Service) Initiate(ctx context.Context, peer domain.UserID) error {
	if peer == "" {
		return errors.New("initiate: empty peer id")
	}
	unlock := s.locks.lock(peer)
	defer unlock()
	return s.initiateLocked(ctx, peer)
}

func (s *Service) initiateLocked(_ context.Context, peer domain.UserID) error {
	if _, ok, err := s.store.LoadSharedSecret(peer); err != nil {
		return s.storeFailed("load secret", peer, err)
	} else if ok {
		s.logger.Debug("already paired, not initiating", "peer", peer)
		return nil
	}
	rec, ok, err := s.store.LoadKeyPair(peer)
	if err != nil {
		return s.storeFailed("load key pair", peer, err)
	}
	resend := ok
	switch {
	case ok && (rec.Role != domain.RoleInitiator || rec.Acknowledged):
		s.logger.Debug("handshake already in progress", "peer", peer, "role", string(rec.Role))
		return nil
	case !ok:
		kp, err := s.suite.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generate key pair: %w", err)
		}
		rec = domain.KeyPairRecord{
			PeerID:          peer,
			Suite:           s.suite.Name(),
			Role:            domain.RoleInitiator,
			LocalPublicKey:  kp.Public,
			LocalPrivateKey: kp.Private,
			CreatedUTC:      s.now().Unix(),
		}
		if err := s.store.SaveKeyPair(rec); err != nil {
			return s.storeFailed("save key pair", peer, err)
		}
	}
	crypto.Wipe(rec.LocalPrivateKey)

	msg := wire.MustNew(wire.KindFriendRequest, map[string]string{
		wire.FieldUserID:    string(peer),
		wire.FieldPublicKey: crypto.EncodeKey(rec.LocalPublicKey),
	})
	if err := s.sender.Send(msg); err != nil {
		return fmt.Errorf("send friend request: %w", err)
	}
	s.logger.Info("friend request sent", "peer", peer, "suite", rec.Suite, "resend", resend)
	s.sink.Notify(notify.NewEvent(notify.FriendRequested, peer, "friend request sent"))
	return nil
}

// Accept completes a pending incoming request from peer without waiting
// for the relay's HandshakeComplete. It returns ErrNoRequest when nothing
// is pending and nil when the peer is already paired.
func (s *Service) Accept(ctx context.Context, peer domain.UserID) error {
	unlock := s.locks.lock(peer)
	defer unlock()

	if _, ok, err := s.store.LoadSharedSecret(peer); err != nil {
		return s.storeFailed("load secret", peer, err)
	} else if ok {
		s.logger.Info("already paired", "peer", peer)
		return nil
	}
	req, ok, err := s.store.LoadIncomingRequest(peer)
	if err != nil {
		return s.storeFailed("load request", peer, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRequest, peer)
	}
	return s.completeLocked(ctx, peer, req.PeerPublicKey)
}

// HandleUserResolved persists the resolved profile and then initiates a
// handshake. Key material is never generated for a peer whose profile could
// not be stored.
func (s *Service) HandleUserResolved(ctx context.Context, msg wire.Message) error {
	p := profileOf(msg)
	if p.ID == "" {
		return s.violation(msg, "", "missing user id")
	}
	unlock := s.locks.lock(p.ID)
	defer unlock()

	if err := s.store.UpsertPeerIdentity(p); err != nil {
		return s.storeFailed("upsert peer", p.ID, err)
	}
	s.sink.Notify(notify.NewEvent(notify.UserFound, p.ID, "user found").WithPayload("name", p.DisplayName))
	return s.initiateLocked(ctx, p.ID)
}

// HandleFriendRequestIncoming records a peer's request and acknowledges it.
//
// A repeat with the same key is ignored. A different key while the request
// is still pending replaces it and is acknowledged again. Once a secret
// exists further requests are violations.
func (s *Service) HandleFriendRequestIncoming(_ context.Context, msg wire.Message) error {
	peer := domain.UserID(msg.Field(wire.FieldUserID))
	if peer == "" {
		return s.violation(msg, peer, "missing user id")
	}
	pub, err := crypto.DecodeKey(msg.Field(wire.FieldPublicKey), s.suite.PublicKeySize())
	if err != nil {
		return s.violation(msg, peer, err.Error())
	}

	unlock := s.locks.lock(peer)
	defer unlock()

	if _, ok, err := s.store.LoadSharedSecret(peer); err != nil {
		return s.storeFailed("load secret", peer, err)
	} else if ok {
		return s.violation(msg, peer, "request after secret derived")
	}
	prev, ok, err := s.store.LoadIncomingRequest(peer)
	if err != nil {
		return s.storeFailed("load request", peer, err)
	}
	if ok && bytes.Equal(prev.PeerPublicKey, pub) {
		s.logger.Debug("duplicate friend request", "peer", peer)
		return nil
	}

	p := profileOf(msg)
	if err := s.store.UpsertPeerIdentity(p); err != nil {
		return s.storeFailed("upsert peer", peer, err)
	}
	req := domain.IncomingKeyRequest{
		PeerID:        peer,
		Profile:       p,
		PeerPublicKey: pub,
		ReceivedUTC:   s.now().Unix(),
	}
	if err := s.store.SaveIncomingRequest(req); err != nil {
		return s.storeFailed("save request", peer, err)
	}

	ack := wire.MustNew(wire.KindRequestAcknowledged, map[string]string{wire.FieldUserID: string(peer)})
	if err := s.sender.Send(ack); err != nil {
		return fmt.Errorf("send acknowledgement: %w", err)
	}
	if ok {
		s.logger.Info("friend request replaced", "peer", peer)
	} else {
		s.logger.Info("friend request received", "peer", peer)
	}
	s.sink.Notify(notify.NewEvent(notify.RequestReceived, peer, "friend request received").
		WithPayload("name", p.DisplayName).
		WithPayload("fingerprint", string(crypto.Fingerprint(pub))))
	return nil
}

// HandleRequestAcknowledged marks the initiator record acknowledged.
func (s *Service) HandleRequestAcknowledged(_ context.Context, msg wire.Message) error {
	peer := domain.UserID(msg.Field(wire.FieldUserID))
	if peer == "" {
		return s.violation(msg, peer, "missing user id")
	}
	unlock := s.locks.lock(peer)
	defer unlock()

	if _, ok, err := s.store.LoadSharedSecret(peer); err != nil {
		return s.storeFailed("load secret", peer, err)
	} else if ok {
		s.logger.Debug("acknowledgement after secret derived", "peer", peer)
		return nil
	}
	rec, ok, err := s.store.LoadKeyPair(peer)
	if err != nil {
		return s.storeFailed("load key pair", peer, err)
	}
	if !ok || rec.Role != domain.RoleInitiator {
		return s.violation(msg, peer, "no friend request outstanding")
	}
	if rec.Acknowledged {
		s.logger.Debug("duplicate acknowledgement", "peer", peer)
		return nil
	}
	if err := s.store.MarkAcknowledged(peer); err != nil {
		return s.storeFailed("mark acknowledged", peer, err)
	}
	s.logger.Info("friend request acknowledged", "peer", peer)
	s.sink.Notify(notify.NewEvent(notify.RequestTaken, peer, "friend request delivered"))
	return nil
}

// HandleHandshakeComplete derives the shared secret from the counterpart's
// public key.
//
// Steps:
//  1. Skip if a secret already exists (duplicate completion).
//  2. With a stored key pair, derive with its private key.
//  3. Otherwise, with a pending request, act as responder: generate a key
//     pair, persist it, derive, then send KeyShare to the initiator.
//  4. With neither, the message is a violation.
func (s *Service) HandleHandshakeComplete(ctx context.Context, msg wire.Message) error {
	peer := domain.UserID(msg.Field(wire.FieldUserID))
	if peer == "" {
		return s.violation(msg, peer, "missing user id")
	}
	unlock := s.locks.lock(peer)
	defer unlock()

	if _, ok, err := s.store.LoadSharedSecret(peer); err != nil {
		return s.storeFailed("load secret", peer, err)
	} else if ok {
		s.logger.Info("duplicate handshake completion", "peer", peer)
		return nil
	}

	suite := s.suite
	rec, haveKey, err := s.store.LoadKeyPair(peer)
	if err != nil {
		return s.storeFailed("load key pair", peer, err)
	}
	if haveKey {
		if suite, err = crypto.SuiteByName(string(rec.Suite)); err != nil {
			return s.violation(msg, peer, err.Error())
		}
	} else {
		_, pending, err := s.store.LoadIncomingRequest(peer)
		if err != nil {
			return s.storeFailed("load request", peer, err)
		}
		if !pending {
			return s.violation(msg, peer, "no handshake in progress")
		}
	}

	pub, err := crypto.DecodeKey(msg.Field(wire.FieldPublicKey), suite.PublicKeySize())
	if err != nil {
		return s.violation(msg, peer, err.Error())
	}
	return s.completeLocked(ctx, peer, pub)
}

// completeLocked derives and stores the secret for peer. It uses a stored
// key pair when one exists and otherwise generates a responder pair, which
// is persisted only after the secret so a failed save leaves the request
// pending. A responder then sends its public key back as KeyShare.
func (s *Service) completeLocked(_ context.Context, peer domain.UserID, peerPub []byte) error {
	rec, stored, err := s.store.LoadKeyPair(peer)
	if err != nil {
		return s.storeFailed("load key pair", peer, err)
	}
	suite := s.suite
	if stored {
		if suite, err = crypto.SuiteByName(string(rec.Suite)); err != nil {
			return err
		}
	} else {
		kp, err := suite.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generate key pair: %w", err)
		}
		rec = domain.KeyPairRecord{
			PeerID:          peer,
			Suite:           suite.Name(),
			Role:            domain.RoleResponder,
			LocalPublicKey:  kp.Public,
			LocalPrivateKey: kp.Private,
			CreatedUTC:      s.now().Unix(),
		}
	}

	secret, err := crypto.DeriveSharedSecret(suite, rec.LocalPrivateKey, peerPub)
	if err != nil {
		crypto.Wipe(rec.LocalPrivateKey)
		s.logger.Warn("key agreement failed", "peer", peer, "err", err)
		return nil
	}
	err = s.store.SaveSharedSecret(domain.SharedSecret{
		PeerID:     peer,
		Suite:      suite.Name(),
		Secret:     secret,
		DerivedUTC: s.now().Unix(),
	})
	fp := crypto.Fingerprint(secret)
	crypto.Wipe(secret)
	switch {
	case errors.Is(err, domain.ErrSecretExists):
		crypto.Wipe(rec.LocalPrivateKey)
		s.logger.Warn("secret already stored, keeping the first", "peer", peer)
		return nil
	case err != nil:
		crypto.Wipe(rec.LocalPrivateKey)
		return s.storeFailed("save secret", peer, err)
	}

	if rec.Role == domain.RoleResponder {
		if !stored {
			if err := s.store.SaveKeyPair(rec); err != nil {
				s.logger.Warn("responder key pair not stored", "peer", peer, "err", err)
			}
		}
		share := wire.MustNew(wire.KindKeyShare, map[string]string{
			wire.FieldUserID:    string(peer),
			wire.FieldPublicKey: crypto.EncodeKey(rec.LocalPublicKey),
		})
		if err := s.sender.Send(share); err != nil {
			crypto.Wipe(rec.LocalPrivateKey)
			return fmt.Errorf("send key share: %w", err)
		}
	}
	crypto.Wipe(rec.LocalPrivateKey)
	s.logger.Info("shared secret derived", "peer", peer, "role", string(rec.Role), "fingerprint", fp)
	s.sink.Notify(notify.NewEvent(notify.SecretEstablished, peer, "shared secret established").
		WithPayload("fingerprint", string(fp)))
	return nil
}

func (s *Service) storeFailed(op string, peer domain.UserID, err error) error {
	serr := &StoreError{Op: op, Peer: peer, Err: err}
	s.sink.Notify(notify.NewEvent(notify.HandlerFailed, peer, serr.Error()))
	return serr
}

// violation logs a message the peer's state does not accept and swallows it.
func (s *Service) violation(msg wire.Message, peer domain.UserID, reason string) error {
	s.logger.Warn("ignoring message", "kind", string(msg.Kind()), "peer", peer,
		"err", fmt.Errorf("%w: %s", ErrProtocolViolation, reason))
	return nil
}

func profileOf(msg wire.Message) domain.PeerIdentity {
	return domain.PeerIdentity{
		ID:          domain.UserID(msg.Field(wire.FieldUserID)),
		DisplayName: msg.Field(wire.FieldUserName),
		Email:       msg.Field(wire.FieldEmail),
		Phone:       msg.Field(wire.FieldPhone),
	}
}
