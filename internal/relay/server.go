package relay

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"net"
	"sync"

	"github.com/charmbracelet/log"

	"relaychat/internal/domain"
	"relaychat/internal/wire"
)

// DefaultMaxLineBytes bounds one inbound line per connection.
const DefaultMaxLineBytes = 64 * 1024

// offerKey names one pending handshake: from initiated towards to.
type offerKey struct {
	from, to domain.UserID
}

// Server relays messages between connected users.
type Server struct {
	dir     *Directory
	logger  *log.Logger
	maxLine int

	mu      sync.Mutex
	ln      net.Listener
	closed  bool
	conns   map[*session]struct{}
	online  map[domain.UserID]*session
	queued  map[domain.UserID][]wire.Message
	offers  map[offerKey]string // initiator public key, as sent
	handled sync.WaitGroup
}

// New returns a Server for the users in dir.
func New(dir *Directory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		dir:     dir,
		logger:  logger.With("component", "relay"),
		maxLine: DefaultMaxLineBytes,
		conns:   make(map[*session]struct{}),
		online:  make(map[domain.UserID]*session),
		queued:  make(map[domain.UserID][]wire.Message),
		offers:  make(map[offerKey]string),
	}
}

// Serve accepts connections on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("listening", "addr", ln.Addr().String())
	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		sess := &session{c: c}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = c.Close()
			return nil
		}
		s.conns[sess] = struct{}{}
		s.handled.Add(1)
		s.mu.Unlock()

		go s.handleConn(sess)
	}
}

// Close stops accepting, drops every connection and waits for their
// goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	for sess := range s.conns {
		_ = sess.c.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.handled.Wait()
	return err
}

// Queued reports how many messages wait for an offline user.
func (s *Server) Queued(id domain.UserID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued[id])
}

func (s *Server) handleConn(sess *session) {
	defer s.handled.Done()
	defer s.drop(sess)

	remote := sess.c.RemoteAddr().String()
	s.logger.Debug("client connected", "remote", remote)

	sc := bufio.NewScanner(sess.c)
	sc.Buffer(make([]byte, 0, 4096), s.maxLine)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		msg, err := wire.Decode(line)
		if err != nil {
			s.logger.Warn("dropping malformed line", "remote", remote, "err", err)
			continue
		}
		s.handle(sess, msg)
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("client read ended", "remote", remote, "err", err)
	}
}

func (s *Server) drop(sess *session) {
	_ = sess.c.Close()
	s.mu.Lock()
	delete(s.conns, sess)
	if id := sess.userID(); id != "" && s.online[id] == sess {
		delete(s.online, id)
	}
	s.mu.Unlock()
}

func (s *Server) handle(sess *session, msg wire.Message) {
	switch msg.Kind() {
	case wire.KindAuth:
		s.handleAuth(sess, msg)
	case wire.KindGetSalt:
		u, ok := s.dir.ByName(domain.Username(msg.Field(wire.FieldUsername)))
		if !ok {
			sess.send(wire.MustNew(wire.KindUserNotFound, nil))
			return
		}
		sess.send(wire.MustNew(wire.KindSetSalt, map[string]string{wire.FieldSalt: u.Salt}))
	case wire.KindGetUser:
		u, ok := s.dir.ByName(domain.Username(msg.Field(wire.FieldUsername)))
		if !ok {
			sess.send(wire.MustNew(wire.KindUserNotFound, nil))
			return
		}
		sess.send(profileMessage(wire.KindUserResolved, u))
	case wire.KindFriendRequest, wire.KindRequestAcknowledged, wire.KindKeyShare:
		from := sess.userID()
		if from == "" {
			s.logger.Warn("handshake message before auth", "kind", string(msg.Kind()))
			sess.send(wire.MustNew(wire.KindAuthFail, nil))
			return
		}
		s.forward(from, msg)
	default:
		s.logger.Warn("unexpected kind from client", "kind", string(msg.Kind()))
	}
}

func (s *Server) handleAuth(sess *session, msg wire.Message) {
	u, ok := s.dir.ByName(domain.Username(msg.Field(wire.FieldUsername)))
	hash := msg.Field(wire.FieldPasswordHash)
	if !ok || subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(hash)) != 1 {
		s.logger.Info("auth rejected", "username", msg.Field(wire.FieldUsername))
		sess.send(wire.MustNew(wire.KindAuthFail, nil))
		return
	}

	sess.bind(u.ID)
	sess.send(profileMessage(wire.KindAuthSuccess, u))

	s.mu.Lock()
	if prev, ok := s.online[u.ID]; ok && prev != sess {
		_ = prev.c.Close()
	}
	s.online[u.ID] = sess
	backlog := s.queued[u.ID]
	delete(s.queued, u.ID)
	s.mu.Unlock()

	s.logger.Info("auth ok", "user", u.ID, "queued", len(backlog))
	for _, m := range backlog {
		sess.send(m)
	}
}

// forward applies the routing table in the package doc.
func (s *Server) forward(from domain.UserID, msg wire.Message) {
	to := domain.UserID(msg.Field(wire.FieldUserID))
	target, ok := s.dir.ByID(to)
	if !ok {
		s.logger.Warn("handshake message for unknown user", "kind", string(msg.Kind()), "from", from, "to", to)
		return
	}
	sender, _ := s.dir.ByID(from)

	switch msg.Kind() {
	case wire.KindFriendRequest:
		pub := msg.Field(wire.FieldPublicKey)
		s.mu.Lock()
		s.offers[offerKey{from: from, to: target.ID}] = pub
		s.mu.Unlock()
		s.deliver(target.ID, wire.MustNew(wire.KindFriendRequestIncoming, map[string]string{
			wire.FieldUserID:    string(sender.ID),
			wire.FieldUserName:  sender.DisplayName,
			wire.FieldEmail:     sender.Email,
			wire.FieldPhone:     sender.Phone,
			wire.FieldPublicKey: pub,
		}))

	case wire.KindRequestAcknowledged:
		// from is the responder, target the initiator.
		s.mu.Lock()
		pub, ok := s.offers[offerKey{from: target.ID, to: from}]
		s.mu.Unlock()
		if !ok {
			s.logger.Warn("acknowledgement without a request", "from", from, "to", target.ID)
			return
		}
		s.deliver(target.ID, wire.MustNew(wire.KindRequestAcknowledged, map[string]string{
			wire.FieldUserID: string(from),
		}))
		s.deliver(from, wire.MustNew(wire.KindHandshakeComplete, map[string]string{
			wire.FieldUserID:    string(target.ID),
			wire.FieldPublicKey: pub,
		}))

	case wire.KindKeyShare:
		s.mu.Lock()
		delete(s.offers, offerKey{from: target.ID, to: from})
		s.mu.Unlock()
		s.deliver(target.ID, wire.MustNew(wire.KindHandshakeComplete, map[string]string{
			wire.FieldUserID:    string(from),
			wire.FieldPublicKey: msg.Field(wire.FieldPublicKey),
		}))
	}
}

// deliver sends msg to id now, or queues it until id logs in.
func (s *Server) deliver(id domain.UserID, msg wire.Message) {
	s.mu.Lock()
	sess, ok := s.online[id]
	if !ok {
		s.queued[id] = append(s.queued[id], msg)
		s.mu.Unlock()
		s.logger.Debug("queued for offline user", "to", id, "kind", string(msg.Kind()))
		return
	}
	s.mu.Unlock()
	sess.send(msg)
}

func profileMessage(kind wire.Kind, u User) wire.Message {
	return wire.MustNew(kind, map[string]string{
		wire.FieldUserID:   string(u.ID),
		wire.FieldUserName: u.DisplayName,
		wire.FieldEmail:    u.Email,
		wire.FieldPhone:    u.Phone,
	})
}

// session is one client connection.
type session struct {
	c net.Conn

	mu   sync.Mutex // serializes writes and guards user
	user domain.UserID
}

func (s *session) bind(id domain.UserID) {
	s.mu.Lock()
	s.user = id
	s.mu.Unlock()
}

func (s *session) userID() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *session) send(msg wire.Message) {
	line, err := wire.Encode(msg)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.c.Write([]byte(line + "\n"))
}
