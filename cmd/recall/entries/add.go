package entriescmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/entry"
)

type addCommander struct {
	typ        string
	category   string
	tags       []string
	confidence float64
}

const addLongDesc string = `Add a manual context entry.

Manual entries skip extraction and validation and are retrieved like any
learned fact.

Examples:
  recall entries add "My cat is called Miso"
  recall entries add "I use neovim" --type skill --category technical --tag editor`

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Add a manual entry",
		Long:  addLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := cmder.build(strings.Join(args, " "))
			if err != nil {
				return err
			}

			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Store.Create(cmd.Context(), e); err != nil {
				return fmt.Errorf("creating entry: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n  %s Added entry\n\n", cliui.SuccessMark)
			cliui.EntryDetail(w, e)
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().StringVar(&cmder.typ, "type", entry.TypeNote.String(), "Entry type")
	cmd.Flags().StringVar(&cmder.category, "category", entry.CategoryOther.String(), "Entry category")
	cmd.Flags().StringSliceVar(&cmder.tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().Float64Var(&cmder.confidence, "confidence", entry.DefaultManualConfidence, "Confidence in [0, 1]")

	return cmd
}

func (c *addCommander) build(content string) (*entry.Entry, error) {
	t, err := entry.ParseType(c.typ)
	if err != nil {
		return nil, err
	}
	cat, err := entry.ParseCategory(c.category)
	if err != nil {
		return nil, err
	}

	e := entry.New(strings.TrimSpace(content),
		entry.WithType(t),
		entry.WithCategory(cat),
		entry.WithConfidence(c.confidence),
		entry.WithTags(c.tags...),
	)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
