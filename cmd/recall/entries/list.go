package entriescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

type listCommander struct {
	source   string
	typ      string
	category string
	limit    int
	offset   int
}

const listLongDesc string = `List stored context entries, newest first.

Examples:
  recall entries list
  recall entries list --source user_prompt --limit 10
  recall entries list --type preference --category preferences`

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored entries",
		Long:    listLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := cmder.filter()
			if err != nil {
				return err
			}

			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.Store.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing entries: %w", err)
			}
			total, err := s.Store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("counting entries: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			cliui.EntryTable(w, entries)
			fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d of %d entries", len(entries), total)))
			return nil
		},
	}

	cmd.Flags().StringVar(&cmder.source, "source", "", "Only entries from this source (manual, user_prompt, ai_response, imported)")
	cmd.Flags().StringVar(&cmder.typ, "type", "", "Only entries of this type")
	cmd.Flags().StringVar(&cmder.category, "category", "", "Only entries in this category")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 50, "Maximum number of entries to show (0 for all)")
	cmd.Flags().IntVar(&cmder.offset, "offset", 0, "Number of entries to skip")

	return cmd
}

func (c *listCommander) filter() (storage.Filter, error) {
	f := storage.Filter{Limit: c.limit, Offset: c.offset}
	if c.limit < 0 || c.offset < 0 {
		return f, fmt.Errorf("--limit and --offset must not be negative")
	}

	if c.source != "" {
		src, err := entry.ParseSource(c.source)
		if err != nil {
			return f, err
		}
		f.Source = &src
	}
	if c.typ != "" {
		t, err := entry.ParseType(c.typ)
		if err != nil {
			return f, err
		}
		f.Type = &t
	}
	if c.category != "" {
		cat, err := entry.ParseCategory(c.category)
		if err != nil {
			return f, err
		}
		f.Category = &cat
	}
	return f, nil
}
