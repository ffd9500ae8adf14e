package app

import (
	"context"
	"errors"
	"fmt"

	"relaychat/internal/domain"
)

// ErrNoAccount is returned by Online when no username is configured.
var ErrNoAccount = errors.New("account.username is not configured")

// Connect opens the relay connection.
func (w *Wire) Connect(ctx context.Context) error {
	return w.Conn.Connect(ctx, w.Config.Server.Address, w.Config.Server.Port)
}

// Online connects and logs in with the configured account, waiting for the
// relay's answer or ctx.
func (w *Wire) Online(ctx context.Context) (domain.LocalUser, error) {
	if w.Config.Account.Username == "" {
		return domain.LocalUser{}, ErrNoAccount
	}
	if err := w.Connect(ctx); err != nil {
		return domain.LocalUser{}, err
	}
	username := domain.Username(w.Config.Account.Username)
	if err := w.Account.Login(ctx, username, w.Config.Account.PasswordHash); err != nil {
		return domain.LocalUser{}, err
	}
	u, err := w.Account.AwaitLogin(ctx)
	if err != nil {
		return domain.LocalUser{}, fmt.Errorf("login as %s: %w", username, err)
	}
	return u, nil
}

// Close disconnects, flushes pending notifications and closes the store.
func (w *Wire) Close() error {
	err := w.Conn.Disconnect()
	w.Notify.Close()
	if cerr := w.Store.Close(); err == nil {
		err = cerr
	}
	return err
}
