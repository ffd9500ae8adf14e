package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
)

func acceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <peer-id>",
		Short: "Complete a pending friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.UserID(args[0])
			if _, err := appCtx.Online(cmd.Context()); err != nil {
				return err
			}
			if err := appCtx.Pairing.Accept(cmd.Context(), peer); err != nil {
				return err
			}
			sec, ok, err := appCtx.Store.LoadSharedSecret(peer)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no secret stored for %s", peer)
			}
			fmt.Printf("Paired with %s.\nSecret fingerprint: %s\n", peer, crypto.Fingerprint(sec.Secret))
			return nil
		},
	}
}
