package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print client ids, pair counts and idle handle counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range wire.Sessions() {
				fmt.Printf("%-16s client=%s pairs=%d\n", s.Name(), s.ClientID(), s.Pairs())
			}
			fmt.Printf("idle handles: %d encoders, %d decoders\n", wire.Pool.Encoders.Size(), wire.Pool.Decoders.Size())
			return nil
		},
	}
}
