// Package recallcmder
package recallcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	entriescmder "github.com/papercomputeco/recall/cmd/recall/entries"
	previewcmder "github.com/papercomputeco/recall/cmd/recall/preview"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	statuscmder "github.com/papercomputeco/recall/cmd/recall/status"
	templatescmder "github.com/papercomputeco/recall/cmd/recall/templates"
	transfercmder "github.com/papercomputeco/recall/cmd/recall/transfer"
	versioncmder "github.com/papercomputeco/recall/cmd/recall/version"
)

const recallLongDesc string = `Recall is a context memory layer for Ollama.

It sits between your clients and the Ollama API, injects facts it has learned
about you into prompts, and learns new facts from every completed exchange.

Run services using:
  recall serve api      Run the management API server
  recall serve proxy    Run the proxy server
  recall serve          Run both servers together

Manage memory using:
  recall entries        Inspect and edit stored entries
  recall recall         Preview what would be injected for a prompt
  recall export/import  Move entries between stores`

const recallShortDesc string = "Recall - Context memory for Ollama"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "recall",
		Short:        recallShortDesc,
		Long:         recallLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .recall/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(entriescmder.NewEntriesCmd())
	cmd.AddCommand(previewcmder.NewPreviewCmd())
	cmd.AddCommand(transfercmder.NewExportCmd())
	cmd.AddCommand(transfercmder.NewImportCmd())
	cmd.AddCommand(templatescmder.NewTemplatesCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
