package entriescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/utils"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete entries",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			for _, id := range args {
				e, err := resolveID(cmd.Context(), s.Store, id)
				if err == nil {
					err = s.Store.Delete(cmd.Context(), e.ID)
				}
				if err != nil {
					fmt.Fprintf(w, "  %s %s\n\n", cliui.FailMark, id)
					return fmt.Errorf("deleting %s: %w", id, err)
				}
				fmt.Fprintf(w, "  %s %s %s\n", cliui.SuccessMark, e.ID, cliui.DimStyle.Render(utils.Truncate(e.Content, 50)))
			}
			fmt.Fprintln(w)
			return nil
		},
	}
}
