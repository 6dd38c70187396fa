// Package entriescmder provides the entries command for inspecting and
// editing the stored context entries.
package entriescmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

const entriesLongDesc string = `Inspect and edit stored context entries.

Entries are the facts recall has learned from conversations, plus anything
added by hand or imported. Commands read the store configured in config.toml
(storage.driver) in the .recall/ directory.

Ids may be abbreviated to any unique prefix, as printed by "recall entries list".

Examples:
  recall entries list --category work
  recall entries add "I prefer tabs over spaces" --category preferences --type preference
  recall entries show 3f2a91c0
  recall entries search portland
  recall entries rm 3f2a91c0`

const entriesShortDesc string = "Inspect and edit stored context entries"

func NewEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   entriesShortDesc,
		Long:    entriesLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newSearchCmd())

	return cmd
}

// minPrefix is the shortest id prefix resolveID will expand.
const minPrefix = 4

// resolveID returns the entry whose id is id, or whose id uniquely starts
// with id.
func resolveID(ctx context.Context, store storage.Driver, id string) (*entry.Entry, error) {
	e, err := store.Get(ctx, id)
	if err == nil {
		return e, nil
	}
	if !storage.IsNotFound(err) || len(id) < minPrefix {
		return nil, err
	}

	all, lerr := store.List(ctx, storage.Filter{})
	if lerr != nil {
		return nil, fmt.Errorf("listing entries: %w", lerr)
	}

	var match *entry.Entry
	for _, cand := range all {
		if !strings.HasPrefix(cand.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("id prefix %q is ambiguous", id)
		}
		match = cand
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}
