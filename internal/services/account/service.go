package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"relaychat/internal/dispatch"
	"relaychat/internal/domain"
	"relaychat/internal/notify"
	"relaychat/internal/wire"
)

var (
	// ErrAuthFailed is returned by AwaitLogin when the relay rejected the
	// credentials.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNoLogin is returned by AwaitLogin before Login was called.
	ErrNoLogin = errors.New("no login in progress")
)

// Service tracks the local session.
type Service struct {
	sender domain.MessageSender
	sink   notify.Sink
	logger *log.Logger

	mu      sync.Mutex
	user    domain.LocalUser
	authed  bool
	authErr error
	pending chan struct{} // closed when the current login resolves
	salt    string
}

// New constructs a Service.
func New(sender domain.MessageSender, sink notify.Sink, logger *log.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{sender: sender, sink: sink, logger: logger.With("component", "account")}
}

// Register installs the inbound handlers on d.
func (s *Service) Register(d *dispatch.Dispatcher) {
	d.RegisterFunc(wire.KindAuthSuccess, s.HandleAuthSuccess)
	d.RegisterFunc(wire.KindAuthFail, s.HandleAuthFail)
	d.RegisterFunc(wire.KindSetSalt, s.HandleSetSalt)
	d.RegisterFunc(wire.KindUserNotFound, s.HandleUserNotFound)
}

// Login sends Auth. The outcome arrives asynchronously; see AwaitLogin.
func (s *Service) Login(_ context.Context, username domain.Username, passwordHash string) error {
	s.mu.Lock()
	s.authed = false
	s.authErr = nil
	s.pending = make(chan struct{})
	s.mu.Unlock()

	m := wire.MustNew(wire.KindAuth, map[string]string{
		wire.FieldUsername:     string(username),
		wire.FieldPasswordHash: passwordHash,
	})
	if err := s.sender.Send(m); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	return nil
}

// AwaitLogin blocks until the pending login succeeds or fails, or ctx ends.
func (s *Service) AwaitLogin(ctx context.Context) (domain.LocalUser, error) {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return domain.LocalUser{}, ErrNoLogin
	}

	select {
	case <-pending:
	case <-ctx.Done():
		return domain.LocalUser{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authErr != nil {
		return domain.LocalUser{}, s.authErr
	}
	return s.user, nil
}

// RequestSalt asks the relay for the password salt of username.
func (s *Service) RequestSalt(_ context.Context, username domain.Username) error {
	m := wire.MustNew(wire.KindGetSalt, map[string]string{wire.FieldUsername: string(username)})
	if err := s.sender.Send(m); err != nil {
		return fmt.Errorf("send salt request: %w", err)
	}
	return nil
}

// FindUser asks the relay to resolve username. A hit arrives as
// UserResolved and starts a handshake.
func (s *Service) FindUser(_ context.Context, username domain.Username) error {
	m := wire.MustNew(wire.KindGetUser, map[string]string{wire.FieldUsername: string(username)})
	if err := s.sender.Send(m); err != nil {
		return fmt.Errorf("send user lookup: %w", err)
	}
	return nil
}

// User returns the logged-in account.
func (s *Service) User() (domain.LocalUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.authed
}

// Salt returns the last salt received, or "".
func (s *Service) Salt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salt
}

func (s *Service) HandleAuthSuccess(_ context.Context, msg wire.Message) error {
	u := domain.LocalUser{
		ID:          domain.UserID(msg.Field(wire.FieldUserID)),
		DisplayName: msg.Field(wire.FieldUserName),
		Email:       msg.Field(wire.FieldEmail),
		Phone:       msg.Field(wire.FieldPhone),
	}
	s.mu.Lock()
	s.user = u
	s.authed = true
	s.authErr = nil
	s.resolveLocked()
	s.mu.Unlock()

	s.logger.Info("logged in", "user", u.ID, "name", u.DisplayName)
	s.sink.Notify(notify.NewEvent(notify.LoggedIn, u.ID, "logged in as "+u.DisplayName))
	return nil
}

func (s *Service) HandleAuthFail(context.Context, wire.Message) error {
	s.mu.Lock()
	s.authed = false
	s.authErr = ErrAuthFailed
	s.resolveLocked()
	s.mu.Unlock()

	s.logger.Warn("login rejected")
	s.sink.Notify(notify.NewEvent(notify.LoginFailed, "", "login rejected"))
	return nil
}

func (s *Service) HandleSetSalt(_ context.Context, msg wire.Message) error {
	s.mu.Lock()
	s.salt = msg.Field(wire.FieldSalt)
	s.mu.Unlock()
	s.sink.Notify(notify.NewEvent(notify.SaltReceived, "", "salt received"))
	return nil
}

func (s *Service) HandleUserNotFound(context.Context, wire.Message) error {
	s.logger.Info("user lookup found nobody")
	s.sink.Notify(notify.NewEvent(notify.UserNotFound, "", "no such user"))
	return nil
}

// resolveLocked wakes AwaitLogin callers. s.mu must be held.
func (s *Service) resolveLocked() {
	if s.pending == nil {
		return
	}
	select {
	case <-s.pending:
	default:
		close(s.pending)
	}
}
