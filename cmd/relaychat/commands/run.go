package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

// run: stay online and let the handlers progress every handshake.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect and process relay messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			u, err := appCtx.Online(ctx)
			switch {
			case errors.Is(err, app.ErrNoAccount):
				if err := appCtx.Connect(ctx); err != nil {
					return err
				}
				fmt.Println("Connected without logging in.")
			case err != nil:
				return err
			default:
				fmt.Printf("Logged in as %s (%s).\n", u.DisplayName, u.ID)
			}

			return waitOnline(ctx)
		},
	}
}

// waitOnline blocks until ctx ends or the connection drops.
func waitOnline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-appCtx.Conn.Done():
		return fmt.Errorf("connection to relay lost")
	}
}
