package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relaychat/internal/crypto"
)

func requestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List pending incoming friend requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := appCtx.Pairing.PendingRequests()
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Println("No pending requests.")
				return nil
			}
			for _, r := range reqs {
				fmt.Printf("%s\t%s\t%s\tkey %s\treceived %s\n",
					r.PeerID, r.Profile.DisplayName, r.Profile.Email,
					crypto.Fingerprint(r.PeerPublicKey),
					time.Unix(r.ReceivedUTC, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func friendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "friends",
		Short: "List known peers and handshake state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRelationships()
		},
	}
}

func printRelationships() error {
	rels, err := appCtx.Pairing.Relationships()
	if err != nil {
		return err
	}
	if len(rels) == 0 {
		fmt.Println("No peers yet.")
		return nil
	}
	for _, r := range rels {
		fp := "-"
		if r.Secret != nil {
			fp = string(crypto.Fingerprint(r.Secret.Secret))
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", r.Peer.ID, r.Peer.DisplayName, r.State, fp)
	}
	return nil
}
