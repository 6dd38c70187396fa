package transfercmder

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/transfer"
)

type importCommander struct {
	format     string
	overwrite  bool
	keepSource bool
}

const importLongDesc string = `Import entries from a JSON or YAML document.

Reads the file argument, or stdin when the argument is "-". Entries whose id
already exists are skipped unless --overwrite is set. Imported entries are
marked with the imported source unless --keep-source is set.

Examples:
  recall import backup.json
  recall import backup.yaml --overwrite
  cat backup.json | recall import - --format json`

const importShortDesc string = "Import entries from a document"

func NewImportCmd() *cobra.Command {
	cmder := &importCommander{}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := formatFor(cmder.format, path)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s: %w", path, err)
				}
				defer f.Close()
				r = f
			}

			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := transfer.Import(cmd.Context(), s.Store, r, format, transfer.ImportOptions{
				Overwrite:    cmder.overwrite,
				MarkImported: !cmder.keepSource,
			})
			if res != nil {
				printResult(cmd, res)
			}
			if err != nil {
				return fmt.Errorf("importing entries: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cmder.format, "format", "f", "", "Document format (json or yaml)")
	cmd.Flags().BoolVar(&cmder.overwrite, "overwrite", false, "Replace entries whose id already exists")
	cmd.Flags().BoolVar(&cmder.keepSource, "keep-source", false, "Keep each entry's recorded source")

	return cmd
}

func printResult(cmd *cobra.Command, res *transfer.ImportResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n  %s %s created, %s updated, %s skipped\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(fmt.Sprint(res.Created)),
		cliui.ValueStyle.Render(fmt.Sprint(res.Updated)),
		cliui.ValueStyle.Render(fmt.Sprint(res.Skipped)),
	)
	for _, msg := range res.Errors {
		fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, cliui.DimStyle.Render(msg))
	}
	fmt.Fprintln(w)
}
