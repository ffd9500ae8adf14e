package pairing_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"relaychat/internal/crypto"
	"relaychat/internal/dispatch"
	"relaychat/internal/domain"
	"relaychat/internal/notify"
	"relaychat/internal/services/pairing"
	"relaychat/internal/store"
	"relaychat/internal/wire"
)

// outbox records sent messages.
type outbox struct {
	mu   sync.Mutex
	msgs []wire.Message
	err  error
}

func (o *outbox) Send(m wire.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *outbox) sent() []wire.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]wire.Message(nil), o.msgs...)
}

func (o *outbox) only(t *testing.T, kind wire.Kind) wire.Message {
	t.Helper()
	msgs := o.sent()
	if len(msgs) != 1 || msgs[0].Kind() != kind {
		t.Fatalf("sent %v, want exactly one %s", kinds(msgs), kind)
	}
	return msgs[0]
}

func kinds(ms []wire.Message) []wire.Kind {
	out := make([]wire.Kind, len(ms))
	for i, m := range ms {
		out[i] = m.Kind()
	}
	return out
}

// flakyStore fails the operations named in fail.
type flakyStore struct {
	*store.MemoryStore
	fail map[string]bool
}

var errDisk = errors.New("disk full")

func (f *flakyStore) UpsertPeerIdentity(p domain.PeerIdentity) error {
	if f.fail["upsert"] {
		return errDisk
	}
	return f.MemoryStore.UpsertPeerIdentity(p)
}

func (f *flakyStore) SaveKeyPair(r domain.KeyPairRecord) error {
	if f.fail["keypair"] {
		return errDisk
	}
	return f.MemoryStore.SaveKeyPair(r)
}

func (f *flakyStore) SaveSharedSecret(s domain.SharedSecret) error {
	if f.fail["secret"] {
		return errDisk
	}
	return f.MemoryStore.SaveSharedSecret(s)
}

type fixture struct {
	svc   *pairing.Service
	store *flakyStore
	out   *outbox
	rec   *notify.Recorder
}

func newFixture(t *testing.T, suite crypto.Suite) *fixture {
	t.Helper()
	f := &fixture{
		store: &flakyStore{MemoryStore: store.NewMemoryStore(), fail: map[string]bool{}},
		out:   &outbox{},
		rec:   &notify.Recorder{},
	}
	f.svc = pairing.New(pairing.Options{
		Store:  f.store,
		Sender: f.out,
		Suite:  suite,
		Sink:   f.rec,
		Logger: log.New(io.Discard),
		Clock:  func() time.Time { return time.Unix(1700000000, 0) },
	})
	return f
}

var ctx = context.Background()

func msg(kind wire.Kind, fields map[string]string) wire.Message {
	return wire.MustNew(kind, fields)
}

func ack(peer string) wire.Message {
	return msg(wire.KindRequestAcknowledged, map[string]string{wire.FieldUserID: peer})
}

func complete(peer string, pub []byte) wire.Message {
	return msg(wire.KindHandshakeComplete, map[string]string{
		wire.FieldUserID:    peer,
		wire.FieldPublicKey: crypto.EncodeKey(pub),
	})
}

func incoming(peer, name string, pub []byte) wire.Message {
	return msg(wire.KindFriendRequestIncoming, map[string]string{
		wire.FieldUserID:    peer,
		wire.FieldUserName:  name,
		wire.FieldEmail:     name + "@example.com",
		wire.FieldPhone:     "555",
		wire.FieldPublicKey: crypto.EncodeKey(pub),
	})
}

func TestInitiate_PersistsRecordAndSendsOneRequest(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.svc.Initiate(ctx, "peerA"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	rec, ok, err := f.store.LoadKeyPair("peerA")
	if err != nil || !ok {
		t.Fatalf("load key pair: ok=%v err=%v", ok, err)
	}
	if rec.Acknowledged || rec.Role != domain.RoleInitiator || rec.Suite != crypto.SuiteX25519 {
		t.Fatalf("record = %+v", rec)
	}
	m := f.out.only(t, wire.KindFriendRequest)
	if m.Field(wire.FieldUserID) != "peerA" || m.Field(wire.FieldPublicKey) != crypto.EncodeKey(rec.LocalPublicKey) {
		t.Fatalf("friend request = %v", m.Fields())
	}
	if bytes.Contains([]byte(m.Field(wire.FieldPublicKey)), []byte(crypto.EncodeKey(rec.LocalPrivateKey))) {
		t.Fatal("private key on the wire")
	}

	st, _ := f.svc.Status("peerA")
	if st != domain.KeySent {
		t.Fatalf("state = %s, want key-sent", st)
	}

	// Before the acknowledgement a second Initiate resends the same key.
	if err := f.svc.Initiate(ctx, "peerA"); err != nil {
		t.Fatalf("initiate again: %v", err)
	}
	again, _, _ := f.store.LoadKeyPair("peerA")
	if !bytes.Equal(again.LocalPrivateKey, rec.LocalPrivateKey) {
		t.Fatal("key pair regenerated")
	}
	sent := f.out.sent()
	if len(sent) != 2 || sent[1].Field(wire.FieldPublicKey) != m.Field(wire.FieldPublicKey) {
		t.Fatalf("sent %v, want the same friend request twice", kinds(sent))
	}

	// After it, Initiate is a no-op.
	_ = f.svc.HandleRequestAcknowledged(ctx, ack("peerA"))
	if err := f.svc.Initiate(ctx, "peerA"); err != nil {
		t.Fatalf("initiate after ack: %v", err)
	}
	if got := len(f.out.sent()); got != 2 {
		t.Fatalf("sent %d messages after ack, want 2", got)
	}
}

func TestInitiate_SendFailureIsRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.out.err = errors.New("not connected")

	if err := f.svc.Initiate(ctx, "u9"); err == nil {
		t.Fatal("expected send error")
	}
	rec, ok, _ := f.store.LoadKeyPair("u9")
	if !ok {
		t.Fatal("key pair not kept after send failure")
	}

	f.out.mu.Lock()
	f.out.err = nil
	f.out.mu.Unlock()
	if err := f.svc.Initiate(ctx, "u9"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	m := f.out.only(t, wire.KindFriendRequest)
	if m.Field(wire.FieldPublicKey) != crypto.EncodeKey(rec.LocalPublicKey) {
		t.Fatal("retry did not send the stored public key")
	}
	if st, _ := f.svc.Status("u9"); st != domain.KeySent {
		t.Fatalf("state = %s, want key-sent", st)
	}
}

func TestHandshake_U42EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	b, _ := crypto.X25519{}.GenerateKeyPair()

	if err := f.svc.Initiate(ctx, "u42"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	req := f.out.only(t, wire.KindFriendRequest)
	aPub, _ := crypto.DecodeKey(req.Field(wire.FieldPublicKey), 32)

	if err := f.svc.HandleRequestAcknowledged(ctx, ack("u42")); err != nil {
		t.Fatalf("ack: %v", err)
	}
	rec, _, _ := f.store.LoadKeyPair("u42")
	if !rec.Acknowledged {
		t.Fatal("record not acknowledged")
	}
	f.out.only(t, wire.KindFriendRequest)
	if st, _ := f.svc.Status("u42"); st != domain.KeyAcknowledged {
		t.Fatalf("state = %s", st)
	}

	if err := f.svc.HandleHandshakeComplete(ctx, complete("u42", b.Public)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	sec, ok, _ := f.store.LoadSharedSecret("u42")
	if !ok {
		t.Fatal("no secret stored")
	}
	want, err := crypto.DeriveSharedSecret(crypto.X25519{}, b.Private, aPub)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(sec.Secret, want) {
		t.Fatal("secret does not match peer's derivation")
	}
	f.out.only(t, wire.KindFriendRequest)

	// Same inputs again: no second secret, nothing sent.
	if err := f.svc.HandleHandshakeComplete(ctx, complete("u42", b.Public)); err != nil {
		t.Fatalf("complete again: %v", err)
	}
	again, _, _ := f.store.LoadSharedSecret("u42")
	if !bytes.Equal(again.Secret, sec.Secret) {
		t.Fatal("secret overwritten")
	}
	f.out.only(t, wire.KindFriendRequest)
	if st, _ := f.svc.Status("u42"); st != domain.SecretDerived || !st.Terminal() {
		t.Fatalf("state = %s", st)
	}
}

func TestRequestAcknowledged_DuplicateIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.svc.Initiate(ctx, "X")
	_ = f.svc.HandleRequestAcknowledged(ctx, ack("X"))
	before, _, _ := f.store.LoadKeyPair("X")
	events := len(f.rec.Events())

	if err := f.svc.HandleRequestAcknowledged(ctx, ack("X")); err != nil {
		t.Fatalf("duplicate ack: %v", err)
	}
	after, _, _ := f.store.LoadKeyPair("X")
	if !bytes.Equal(before.LocalPrivateKey, after.LocalPrivateKey) || !after.Acknowledged {
		t.Fatalf("record changed: %+v", after)
	}
	f.out.only(t, wire.KindFriendRequest)
	if len(f.rec.Events()) != events {
		t.Fatal("duplicate ack produced a notification")
	}
}

func TestRequestAcknowledged_WithoutRecordIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.svc.HandleRequestAcknowledged(ctx, ack("ghost")); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, ok, _ := f.store.LoadKeyPair("ghost"); ok {
		t.Fatal("record created")
	}
	if len(f.out.sent()) != 0 {
		t.Fatal("message sent")
	}
}

func TestHandshakeComplete_WithoutHandshakeIsViolation(t *testing.T) {
	f := newFixture(t, nil)
	b, _ := crypto.X25519{}.GenerateKeyPair()
	if err := f.svc.HandleHandshakeComplete(ctx, complete("stranger", b.Public)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, ok, _ := f.store.LoadSharedSecret("stranger"); ok {
		t.Fatal("secret derived without a handshake")
	}
	if _, ok, _ := f.store.LoadKeyPair("stranger"); ok {
		t.Fatal("key pair generated without a handshake")
	}
	if len(f.out.sent()) != 0 {
		t.Fatal("message sent")
	}
}

func TestHandshakeComplete_BadKeyIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.svc.Initiate(ctx, "u1")
	bad := msg(wire.KindHandshakeComplete, map[string]string{wire.FieldUserID: "u1", wire.FieldPublicKey: "not base64!"})
	if err := f.svc.HandleHandshakeComplete(ctx, bad); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, ok, _ := f.store.LoadSharedSecret("u1"); ok {
		t.Fatal("secret derived from a bad key")
	}
}

func TestFriendRequestIncoming_StoresAndAcknowledges(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := crypto.X25519{}.GenerateKeyPair()

	if err := f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a.Public)); err != nil {
		t.Fatalf("incoming: %v", err)
	}
	req, ok, _ := f.store.LoadIncomingRequest("u7")
	if !ok || !bytes.Equal(req.PeerPublicKey, a.Public) || req.Profile.DisplayName != "amy" {
		t.Fatalf("request = %+v ok=%v", req, ok)
	}
	p, ok, _ := f.store.LoadPeerIdentity("u7")
	if !ok || p.Email != "amy@example.com" || p.Phone != "555" {
		t.Fatalf("peer = %+v", p)
	}
	m := f.out.only(t, wire.KindRequestAcknowledged)
	if m.Field(wire.FieldUserID) != "u7" {
		t.Fatalf("ack addressed to %q", m.Field(wire.FieldUserID))
	}
	if _, ok, _ := f.store.LoadSharedSecret("u7"); ok {
		t.Fatal("secret derived before responder generated a key")
	}
	if st, _ := f.svc.Status("u7"); st != domain.RequestReceived {
		t.Fatalf("state = %s", st)
	}

	// Same key again: ignored.
	_ = f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a.Public))
	f.out.only(t, wire.KindRequestAcknowledged)

	// New key while pending: replaces and re-acknowledges.
	a2, _ := crypto.X25519{}.GenerateKeyPair()
	_ = f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a2.Public))
	if got := kinds(f.out.sent()); len(got) != 2 {
		t.Fatalf("sent %v, want two acknowledgements", got)
	}
	req, _, _ = f.store.LoadIncomingRequest("u7")
	if !bytes.Equal(req.PeerPublicKey, a2.Public) {
		t.Fatal("request not replaced")
	}

	pending, err := f.svc.PendingRequests()
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v err=%v", pending, err)
	}
}

func TestFriendRequestIncoming_AfterSecretIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.store.SaveSharedSecret(domain.SharedSecret{PeerID: "u7", Secret: []byte{1}})
	a, _ := crypto.X25519{}.GenerateKeyPair()

	if err := f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a.Public)); err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if _, ok, _ := f.store.LoadIncomingRequest("u7"); ok {
		t.Fatal("request stored after pairing")
	}
	if len(f.out.sent()) != 0 {
		t.Fatal("acknowledged after pairing")
	}
}

// TestHandshake_BothSidesAgree runs initiator A and responder B against
// each other, carrying messages by hand the way the relay would.
func TestHandshake_BothSidesAgree(t *testing.T) {
	for _, suite := range []crypto.Suite{crypto.X25519{}, crypto.X448{}} {
		t.Run(string(suite.Name()), func(t *testing.T) {
			a := newFixture(t, suite)
			b := newFixture(t, suite)

			if err := a.svc.Initiate(ctx, "bob"); err != nil {
				t.Fatalf("initiate: %v", err)
			}
			req := a.out.only(t, wire.KindFriendRequest)
			aPub, err := crypto.DecodeKey(req.Field(wire.FieldPublicKey), suite.PublicKeySize())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if err := b.svc.HandleFriendRequestIncoming(ctx, incoming("alice", "alice", aPub)); err != nil {
				t.Fatalf("incoming: %v", err)
			}
			b.out.only(t, wire.KindRequestAcknowledged)

			if err := a.svc.HandleRequestAcknowledged(ctx, ack("bob")); err != nil {
				t.Fatalf("ack: %v", err)
			}
			if err := b.svc.HandleHandshakeComplete(ctx, complete("alice", aPub)); err != nil {
				t.Fatalf("responder complete: %v", err)
			}
			share := b.out.sent()
			if len(share) != 2 || share[1].Kind() != wire.KindKeyShare {
				t.Fatalf("responder sent %v", kinds(share))
			}
			bRec, _, _ := b.store.LoadKeyPair("alice")
			if bRec.Role != domain.RoleResponder {
				t.Fatalf("responder record role = %s", bRec.Role)
			}
			if share[1].Field(wire.FieldPublicKey) != crypto.EncodeKey(bRec.LocalPublicKey) {
				t.Fatal("key share does not carry the responder's public key")
			}

			bPub, _ := crypto.DecodeKey(share[1].Field(wire.FieldPublicKey), suite.PublicKeySize())
			if err := a.svc.HandleHandshakeComplete(ctx, complete("bob", bPub)); err != nil {
				t.Fatalf("initiator complete: %v", err)
			}

			sa, okA, _ := a.store.LoadSharedSecret("bob")
			sb, okB, _ := b.store.LoadSharedSecret("alice")
			if !okA || !okB {
				t.Fatalf("secrets stored: a=%v b=%v", okA, okB)
			}
			if !bytes.Equal(sa.Secret, sb.Secret) {
				t.Fatal("sides derived different secrets")
			}
			if sa.Suite != suite.Name() {
				t.Fatalf("suite = %s", sa.Suite)
			}
			// The initiator never sends a KeyShare.
			if got := kinds(a.out.sent()); len(got) != 1 {
				t.Fatalf("initiator sent %v", got)
			}
		})
	}
}

func TestAccept_CompletesPendingRequest(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := crypto.X25519{}.GenerateKeyPair()
	_ = f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a.Public))

	if err := f.svc.Accept(ctx, "u7"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	sent := f.out.sent()
	if len(sent) != 2 || sent[1].Kind() != wire.KindKeyShare {
		t.Fatalf("sent %v", kinds(sent))
	}
	sec, ok, _ := f.store.LoadSharedSecret("u7")
	if !ok {
		t.Fatal("no secret after accept")
	}

	// The relay's HandshakeComplete arriving later is a duplicate.
	if err := f.svc.HandleHandshakeComplete(ctx, complete("u7", a.Public)); err != nil {
		t.Fatalf("late complete: %v", err)
	}
	again, _, _ := f.store.LoadSharedSecret("u7")
	if !bytes.Equal(again.Secret, sec.Secret) || len(f.out.sent()) != 2 {
		t.Fatal("late completion changed state")
	}
	if err := f.svc.Accept(ctx, "u7"); err != nil {
		t.Fatalf("accept again: %v", err)
	}
	if pending, _ := f.svc.PendingRequests(); len(pending) != 0 {
		t.Fatalf("pending after accept: %v", pending)
	}
}

func TestAccept_NoRequest(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.svc.Accept(ctx, "nobody"); !errors.Is(err, pairing.ErrNoRequest) {
		t.Fatalf("got %v, want ErrNoRequest", err)
	}
}

func TestUserResolved_PersistsIdentityThenInitiates(t *testing.T) {
	f := newFixture(t, nil)
	m := msg(wire.KindUserResolved, map[string]string{
		wire.FieldUserID: "u42", wire.FieldUserName: "bob", wire.FieldEmail: "b@x", wire.FieldPhone: "1",
	})
	if err := f.svc.HandleUserResolved(ctx, m); err != nil {
		t.Fatalf("resolved: %v", err)
	}
	p, ok, _ := f.store.LoadPeerIdentity("u42")
	if !ok || p.DisplayName != "bob" {
		t.Fatalf("peer = %+v ok=%v", p, ok)
	}
	f.out.only(t, wire.KindFriendRequest)

	got := f.rec.Kinds()
	if len(got) != 2 || got[0] != notify.UserFound || got[1] != notify.FriendRequested {
		t.Fatalf("events = %v", got)
	}
}

func TestUserResolved_IdentityFailureBlocksKeyGeneration(t *testing.T) {
	f := newFixture(t, nil)
	f.store.fail["upsert"] = true
	m := msg(wire.KindUserResolved, map[string]string{
		wire.FieldUserID: "u42", wire.FieldUserName: "bob", wire.FieldEmail: "", wire.FieldPhone: "",
	})

	err := f.svc.HandleUserResolved(ctx, m)
	var serr *pairing.StoreError
	if !errors.As(err, &serr) || !errors.Is(err, errDisk) {
		t.Fatalf("got %v, want StoreError wrapping disk full", err)
	}
	if _, ok, _ := f.store.LoadKeyPair("u42"); ok {
		t.Fatal("key pair generated although identity was not stored")
	}
	if len(f.out.sent()) != 0 {
		t.Fatal("friend request sent although identity was not stored")
	}
	if got := f.rec.Kinds(); len(got) != 1 || got[0] != notify.HandlerFailed {
		t.Fatalf("events = %v", got)
	}
}

func TestInitiate_KeyPairSaveFailureSendsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.store.fail["keypair"] = true
	var serr *pairing.StoreError
	if err := f.svc.Initiate(ctx, "u1"); !errors.As(err, &serr) {
		t.Fatalf("got %v, want StoreError", err)
	}
	if len(f.out.sent()) != 0 {
		t.Fatal("request sent without a stored key pair")
	}
	if st, _ := f.svc.Status("u1"); st != domain.NoRelationship {
		t.Fatalf("state = %s", st)
	}
}

func TestHandshakeComplete_SecretSaveFailureCanBeRetried(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := crypto.X25519{}.GenerateKeyPair()
	_ = f.svc.HandleFriendRequestIncoming(ctx, incoming("u7", "amy", a.Public))

	f.store.fail["secret"] = true
	var serr *pairing.StoreError
	if err := f.svc.HandleHandshakeComplete(ctx, complete("u7", a.Public)); !errors.As(err, &serr) {
		t.Fatalf("got %v, want StoreError", err)
	}
	if len(f.out.sent()) != 1 {
		t.Fatal("key share sent before the secret was stored")
	}
	if st, _ := f.svc.Status("u7"); st != domain.RequestReceived {
		t.Fatalf("state after failed save = %s, want request-received", st)
	}
	if _, ok, _ := f.store.LoadKeyPair("u7"); ok {
		t.Fatal("responder key pair stored without a secret")
	}

	f.store.fail["secret"] = false
	if err := f.svc.HandleHandshakeComplete(ctx, complete("u7", a.Public)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	rec, ok, _ := f.store.LoadKeyPair("u7")
	if !ok || rec.Role != domain.RoleResponder {
		t.Fatalf("responder key pair = %+v, %v", rec, ok)
	}
	sent := f.out.sent()
	if len(sent) != 2 || sent[1].Kind() != wire.KindKeyShare ||
		sent[1].Field(wire.FieldPublicKey) != crypto.EncodeKey(rec.LocalPublicKey) {
		t.Fatalf("sent %v, want a key share carrying the stored responder key", kinds(sent))
	}
	if st, _ := f.svc.Status("u7"); st != domain.SecretDerived {
		t.Fatalf("state = %s", st)
	}
}

func TestInitiate_ConcurrentCallsShareOneKeyPair(t *testing.T) {
	f := newFixture(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.Initiate(ctx, "u1")
			_ = f.svc.Initiate(ctx, "u2")
		}()
	}
	wg.Wait()

	keys := make(map[string]map[string]bool)
	for _, m := range f.out.sent() {
		peer := m.Field(wire.FieldUserID)
		if keys[peer] == nil {
			keys[peer] = make(map[string]bool)
		}
		keys[peer][m.Field(wire.FieldPublicKey)] = true
	}
	if len(keys) != 2 {
		t.Fatalf("requests went to %d peers, want 2", len(keys))
	}
	for peer, ks := range keys {
		if len(ks) != 1 {
			t.Fatalf("peer %s received %d distinct keys, want 1", peer, len(ks))
		}
	}
}

func TestRelationships_ListsEveryPeer(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := crypto.X25519{}.GenerateKeyPair()
	_ = f.svc.HandleUserResolved(ctx, msg(wire.KindUserResolved, map[string]string{
		wire.FieldUserID: "u1", wire.FieldUserName: "one", wire.FieldEmail: "", wire.FieldPhone: "",
	}))
	_ = f.svc.HandleFriendRequestIncoming(ctx, incoming("u2", "two", a.Public))
	_ = f.svc.HandleHandshakeComplete(ctx, complete("u2", a.Public))

	rels, err := f.svc.Relationships()
	if err != nil {
		t.Fatalf("relationships: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("got %d relationships", len(rels))
	}
	if rels[0].Peer.ID != "u1" || rels[0].State != domain.KeySent || rels[0].Secret != nil {
		t.Fatalf("u1 = %+v", rels[0])
	}
	if rels[1].Peer.ID != "u2" || rels[1].State != domain.SecretDerived || rels[1].Secret == nil {
		t.Fatalf("u2 = %+v", rels[1])
	}
}

func TestRegister_RoutesThroughDispatcher(t *testing.T) {
	f := newFixture(t, nil)
	d := dispatch.New(log.New(io.Discard))
	f.svc.Register(d)

	a, _ := crypto.X25519{}.GenerateKeyPair()
	if err := d.Dispatch(ctx, incoming("u9", "nine", a.Public)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	f.out.only(t, wire.KindRequestAcknowledged)
}
