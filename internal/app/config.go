package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"relaychat/internal/crypto"
	"relaychat/internal/store"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home    string        `mapstructure:"home"`
	Server  ServerConfig  `mapstructure:"server"`
	TLS     TLSConfig     `mapstructure:"tls"`
	Conn    ConnConfig    `mapstructure:"conn"`
	Store   StoreConfig   `mapstructure:"store"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Account AccountConfig `mapstructure:"account"`
	Log     LogConfig     `mapstructure:"log"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CAFile     string `mapstructure:"ca_file"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	ServerName string `mapstructure:"server_name"`
}

type ConnConfig struct {
	MaxLineBytes int           `mapstructure:"max_line_bytes"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	Passphrase  string `mapstructure:"passphrase"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type CryptoConfig struct {
	Suite string `mapstructure:"suite"`
}

type AccountConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type NotifyConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"home":          "home",
	"server":        "server.address",
	"port":          "server.port",
	"tls":           "tls.enabled",
	"ca-file":       "tls.ca_file",
	"store":         "store.driver",
	"passphrase":    "store.passphrase",
	"suite":         "crypto.suite",
	"username":      "account.username",
	"password-hash": "account.password_hash",
	"log-level":     "log.level",
}

// LoadConfig reads relaychat.yaml (from ., ./config or $HOME/.relaychat, or
// the file named by the --config flag), RELAYCHAT_* environment variables
// and the flags in fs, in increasing order of precedence.
func LoadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetConfigName("relaychat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.relaychat")

	v.AutomaticEnv()
	v.SetEnvPrefix("RELAYCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setConfigDefaults(v)

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Home = filepath.Join(dir, ".relaychat")
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = filepath.Join(cfg.Home, "pairing.db")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("home", "")

	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 9443)

	v.SetDefault("tls.enabled", true)
	v.SetDefault("tls.ca_file", "")
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.server_name", "")

	v.SetDefault("conn.max_line_bytes", 64*1024)
	v.SetDefault("conn.dial_timeout", "10s")

	v.SetDefault("store.driver", store.DriverFile)
	v.SetDefault("store.passphrase", "")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.redis_addr", "127.0.0.1:6379")
	v.SetDefault("store.redis_prefix", "relaychat")

	v.SetDefault("crypto.suite", string(crypto.SuiteX25519))

	v.SetDefault("account.username", "")
	v.SetDefault("account.password_hash", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("notify.buffer", 64)
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMemory, store.DriverSQLite, store.DriverRedis:
	case store.DriverFile:
		if c.Store.Passphrase == "" {
			return fmt.Errorf("store.passphrase is required for the file store (use --passphrase or RELAYCHAT_STORE_PASSPHRASE)")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if _, err := crypto.SuiteByName(c.Crypto.Suite); err != nil {
		return err
	}
	return nil
}
