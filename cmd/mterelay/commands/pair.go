package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func pairCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Establish additional pairs with the endpoint's relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := wire.Session(endpoint)
			if err != nil {
				return err
			}
			if err := s.Prepare(cmd.Context(), count); err != nil {
				return err
			}
			fmt.Printf("%s: client %s, %d pairs\n", s.Name(), s.ClientID(), s.Pairs())
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of pairs to add")
	return cmd
}
