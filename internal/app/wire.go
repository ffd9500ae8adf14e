package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"relaychat/internal/conn"
	"relaychat/internal/crypto"
	"relaychat/internal/dispatch"
	"relaychat/internal/notify"
	"relaychat/internal/services/account"
	"relaychat/internal/services/pairing"
	"relaychat/internal/store"
)

// Wire bundles the stores, services and connection for the CLI.
type Wire struct {
	Config     Config
	Logger     *log.Logger
	Store      store.Store
	Notify     *notify.Async
	Dispatcher *dispatch.Dispatcher
	Conn       *conn.Manager
	Pairing    *pairing.Service
	Account    *account.Service
}

// NewWire constructs the dependency graph from cfg. Events go to sink,
// or to the logger when sink is nil.
func NewWire(ctx context.Context, cfg Config, logger *log.Logger, sink notify.Sink) (*Wire, error) {
	suite, err := crypto.SuiteByName(cfg.Crypto.Suite)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		Dir:         cfg.Home,
		Passphrase:  cfg.Store.Passphrase,
		SQLitePath:  cfg.Store.SQLitePath,
		RedisAddr:   cfg.Store.RedisAddr,
		RedisPrefix: cfg.Store.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	dialer, err := newDialer(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if sink == nil {
		sink = notify.LogSink{Logger: logger.With("component", "notify")}
	}
	events := notify.NewAsync(sink, cfg.Notify.Buffer, logger)

	d := dispatch.New(logger)
	m := conn.NewManager(conn.Options{
		Dialer:       dialer,
		Handler:      d,
		Logger:       logger,
		MaxLineBytes: cfg.Conn.MaxLineBytes,
		OnDrop: func(err error) {
			events.Notify(notify.NewEvent(notify.ConnectionLost, "", err.Error()))
		},
	})

	pairingSvc := pairing.New(pairing.Options{
		Store:  st,
		Sender: m,
		Suite:  suite,
		Sink:   events,
		Logger: logger,
	})
	accountSvc := account.New(m, events, logger)

	pairingSvc.Register(d)
	accountSvc.Register(d)

	return &Wire{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Notify:     events,
		Dispatcher: d,
		Conn:       m,
		Pairing:    pairingSvc,
		Account:    accountSvc,
	}, nil
}

func newDialer(cfg Config) (conn.Dialer, error) {
	if !cfg.TLS.Enabled {
		return conn.TCPDialer{Timeout: cfg.Conn.DialTimeout}, nil
	}
	serverName := cfg.TLS.ServerName
	if serverName == "" {
		serverName = cfg.Server.Address
	}
	tc, err := conn.ClientTLSConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile, serverName)
	if err != nil {
		return nil, err
	}
	return conn.TLSDialer{Config: tc, Timeout: cfg.Conn.DialTimeout}, nil
}
