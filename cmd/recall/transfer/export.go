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

type exportCommander struct {
	format string
	output string
}

const exportLongDesc string = `Export every stored entry as a JSON or YAML document.

The document is written to stdout unless --output is given. The format
follows --format, then the output file extension, then defaults to JSON.

Examples:
  recall export > backup.json
  recall export --output backup.yaml
  recall export --format yaml | less`

const exportShortDesc string = "Export stored entries"

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := formatFor(cmder.format, cmder.output)
			if err != nil {
				return err
			}

			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var w io.Writer = cmd.OutOrStdout()
			status := cmd.ErrOrStderr()
			if cmder.output != "" {
				f, err := os.Create(cmder.output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", cmder.output, err)
				}
				defer f.Close()
				w = f
				status = cmd.OutOrStdout()
			}

			n, err := transfer.Export(cmd.Context(), s.Store, w, format)
			if err != nil {
				return fmt.Errorf("exporting entries: %w", err)
			}

			if cmder.output != "" {
				fmt.Fprintf(status, "\n  %s Exported %d entries to %s\n\n", cliui.SuccessMark, n, cmder.output)
			} else {
				fmt.Fprintf(status, "%s exported %d entries\n", cliui.SuccessMark, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cmder.format, "format", "f", "", "Document format (json or yaml)")
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
