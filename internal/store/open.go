package store

import (
	"context"
	"fmt"
	"strings"

	"relaychat/internal/domain"
)

// Store is a PairingStore that owns resources.
type Store interface {
	domain.PairingStore
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver      string
	Dir         string // file driver
	Passphrase  string // file driver
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
	Scrypt      ScryptParams // zero means DefaultScrypt
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case "", DriverFile:
		var opts []FileOption
		if cfg.Scrypt.N != 0 {
			opts = append(opts, WithScrypt(cfg.Scrypt))
		}
		return NewFileStore(cfg.Dir, cfg.Passphrase, opts...)
	case DriverSQLite:
		return OpenSQLiteStore(cfg.SQLitePath)
	case DriverRedis:
		return OpenRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
