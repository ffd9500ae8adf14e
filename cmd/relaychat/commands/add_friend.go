package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relaychat/internal/domain"
)

func addFriendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "add-friend <username>",
		Short: "Look a user up and start a key exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			if _, err := appCtx.Online(ctx); err != nil {
				return err
			}
			if err := appCtx.Account.FindUser(ctx, domain.Username(args[0])); err != nil {
				return err
			}
			fmt.Printf("Looking up %s; staying online for %s.\n", args[0], wait)
			_ = waitOnline(ctx)

			return printRelationships()
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to stay online for the handshake")
	return cmd
}
