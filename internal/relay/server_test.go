package relay_test

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"relaychat/internal/relay"
	"relaychat/internal/wire"
)

var (
	alice = relay.User{ID: "u1", Username: "alice", PasswordHash: "ha", Salt: "sa", DisplayName: "Alice", Email: "a@x", Phone: "1"}
	bob   = relay.User{ID: "u42", Username: "bob", PasswordHash: "hb", Salt: "sb", DisplayName: "Bob", Email: "b@x", Phone: "2"}
)

func startRelay(t *testing.T) (*relay.Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := relay.New(relay.NewDirectory(alice, bob), log.New(io.Discard))
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return srv, ln.Addr().String()
}

type client struct {
	t *testing.T
	c net.Conn
	r *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &client{t: t, c: c, r: bufio.NewReader(c)}
}

func (c *client) send(kind wire.Kind, fields map[string]string) {
	c.t.Helper()
	line, err := wire.Encode(wire.MustNew(kind, fields))
	if err != nil {
		c.t.Fatalf("encode: %v", err)
	}
	if _, err := io.WriteString(c.c, line+"\n"); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) expect(kind wire.Kind) wire.Message {
	c.t.Helper()
	_ = c.c.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("read waiting for %s: %v", kind, err)
	}
	m, err := wire.Decode(line)
	if err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	if m.Kind() != kind {
		c.t.Fatalf("got %s %v, want %s", m.Kind(), m.Fields(), kind)
	}
	return m
}

func (c *client) login(u relay.User) {
	c.t.Helper()
	c.send(wire.KindAuth, map[string]string{wire.FieldUsername: string(u.Username), wire.FieldPasswordHash: u.PasswordHash})
	m := c.expect(wire.KindAuthSuccess)
	if m.Field(wire.FieldUserID) != string(u.ID) {
		c.t.Fatalf("logged in as %q", m.Field(wire.FieldUserID))
	}
}

func TestAuth_WrongPassword(t *testing.T) {
	_, addr := startRelay(t)
	c := dial(t, addr)
	c.send(wire.KindAuth, map[string]string{wire.FieldUsername: "alice", wire.FieldPasswordHash: "nope"})
	c.expect(wire.KindAuthFail)
	c.send(wire.KindAuth, map[string]string{wire.FieldUsername: "mallory", wire.FieldPasswordHash: "x"})
	c.expect(wire.KindAuthFail)
}

func TestLookups(t *testing.T) {
	_, addr := startRelay(t)
	c := dial(t, addr)

	c.send(wire.KindGetSalt, map[string]string{wire.FieldUsername: "bob"})
	if m := c.expect(wire.KindSetSalt); m.Field(wire.FieldSalt) != "sb" {
		t.Fatalf("salt = %q", m.Field(wire.FieldSalt))
	}
	c.send(wire.KindGetUser, map[string]string{wire.FieldUsername: "bob"})
	m := c.expect(wire.KindUserResolved)
	if m.Field(wire.FieldUserID) != "u42" || m.Field(wire.FieldUserName) != "Bob" {
		t.Fatalf("resolved %v", m.Fields())
	}
	c.send(wire.KindGetUser, map[string]string{wire.FieldUsername: "nobody"})
	c.expect(wire.KindUserNotFound)
}

func TestHandshakeRouting(t *testing.T) {
	_, addr := startRelay(t)
	a := dial(t, addr)
	b := dial(t, addr)
	a.login(alice)
	b.login(bob)

	a.send(wire.KindFriendRequest, map[string]string{wire.FieldUserID: "u42", wire.FieldPublicKey: "AAAA"})
	in := b.expect(wire.KindFriendRequestIncoming)
	if in.Field(wire.FieldUserID) != "u1" || in.Field(wire.FieldPublicKey) != "AAAA" || in.Field(wire.FieldUserName) != "Alice" {
		t.Fatalf("incoming %v", in.Fields())
	}

	b.send(wire.KindRequestAcknowledged, map[string]string{wire.FieldUserID: "u1"})
	if m := a.expect(wire.KindRequestAcknowledged); m.Field(wire.FieldUserID) != "u42" {
		t.Fatalf("ack names %q", m.Field(wire.FieldUserID))
	}
	hc := b.expect(wire.KindHandshakeComplete)
	if hc.Field(wire.FieldUserID) != "u1" || hc.Field(wire.FieldPublicKey) != "AAAA" {
		t.Fatalf("responder completion %v", hc.Fields())
	}

	b.send(wire.KindKeyShare, map[string]string{wire.FieldUserID: "u1", wire.FieldPublicKey: "BBBB"})
	hc = a.expect(wire.KindHandshakeComplete)
	if hc.Field(wire.FieldUserID) != "u42" || hc.Field(wire.FieldPublicKey) != "BBBB" {
		t.Fatalf("initiator completion %v", hc.Fields())
	}
}

func TestOfflineDeliveryIsQueued(t *testing.T) {
	srv, addr := startRelay(t)
	a := dial(t, addr)
	a.login(alice)
	a.send(wire.KindFriendRequest, map[string]string{wire.FieldUserID: "u42", wire.FieldPublicKey: "AAAA"})

	deadline := time.Now().Add(2 * time.Second)
	for srv.Queued("u42") != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("queued = %d", srv.Queued("u42"))
		}
		time.Sleep(5 * time.Millisecond)
	}

	b := dial(t, addr)
	b.login(bob)
	b.expect(wire.KindFriendRequestIncoming)
	if srv.Queued("u42") != 0 {
		t.Fatal("queue not flushed")
	}
}

func TestHandshakeBeforeAuthIsRefused(t *testing.T) {
	_, addr := startRelay(t)
	c := dial(t, addr)
	c.send(wire.KindFriendRequest, map[string]string{wire.FieldUserID: "u42", wire.FieldPublicKey: "AAAA"})
	c.expect(wire.KindAuthFail)
}
