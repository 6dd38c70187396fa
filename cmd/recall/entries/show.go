package entriescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := resolveID(cmd.Context(), s.Store, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			cliui.EntryDetail(w, e)
			fmt.Fprintln(w)
			return nil
		},
	}
}
