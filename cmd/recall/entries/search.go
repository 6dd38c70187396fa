package entriescmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find entries whose content contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.Store.Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("searching entries: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Entries matching"), cliui.KeyStyle.Render(fmt.Sprintf("%q", query)))
			cliui.EntryTable(w, entries)
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}
