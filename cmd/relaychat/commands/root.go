package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

var appCtx *app.Wire

func Execute() error {
	root := &cobra.Command{
		Use:           "relaychat",
		Short:         "Relay chat client with relayed friend key exchange",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := app.NewLogger(cfg.Log.Level, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("log.level: %w", err)
			}
			appCtx, err = app.NewWire(cmd.Context(), cfg, logger, nil)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./relaychat.yaml or ~/.relaychat/relaychat.yaml)")
	pf.String("home", "", "data dir (default ~/.relaychat)")
	pf.String("server", "", "relay address")
	pf.Int("port", 0, "relay port")
	pf.Bool("tls", true, "connect with TLS")
	pf.String("ca-file", "", "PEM bundle trusted for the relay certificate")
	pf.String("store", "", "pairing store: memory, file, sqlite or redis")
	pf.StringP("passphrase", "p", "", "passphrase protecting the file store")
	pf.String("suite", "", "key-exchange suite: x25519 or x448")
	pf.String("username", "", "account username")
	pf.String("password-hash", "", "account password hash")
	pf.String("log-level", "", "debug, info, warn or error")

	root.AddCommand(runCmd(), addFriendCmd(), acceptCmd(), requestsCmd(), friendsCmd())
	err := root.Execute()
	if appCtx != nil {
		if cerr := appCtx.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
