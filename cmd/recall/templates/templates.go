// Package templatescmder provides the templates command listing the prompt
// templates available for context injection.
package templatescmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/memory/template"
)

const templatesLongDesc string = `List the prompt templates used for context injection.

Templates are ordered from the most suggestive to the most directive. The
template marked with a check is the one selected by injection.template.

Examples:
  recall templates
  recall templates --verbose
  recall config set injection.template structured`

const templatesShortDesc string = "List injection templates"

func NewTemplatesCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: templatesShortDesc,
		Long:  templatesLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			write(cmd.OutOrStdout(), template.New(), cfg.Injection.Template, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each template's pattern")

	return cmd
}

func write(w io.Writer, reg *template.Registry, selected string, verbose bool) {
	fmt.Fprintln(w)
	for _, t := range reg.Templates() {
		marker := " "
		if t.Name == selected {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			marker,
			cliui.KeyStyle.Render(fmt.Sprintf("%-17s", t.Name)),
			cliui.DimStyle.Render("strength "+strconv.Itoa(t.Strength)),
		)
		if verbose {
			for _, line := range strings.Split(t.Pattern, "\n") {
				fmt.Fprintf(w, "      %s\n", cliui.ValueStyle.Render(line))
			}
			fmt.Fprintln(w)
		}
	}
	if !reg.Has(selected) {
		fmt.Fprintf(w, "\n  %s %s is not a known template; %s is used instead\n",
			cliui.FailMark, selected, template.Default)
	}
	fmt.Fprintln(w)
}
