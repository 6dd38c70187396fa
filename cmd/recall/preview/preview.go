// Package previewcmder provides the recall command, which shows what the
// proxy would inject for a prompt without contacting the backend.
package previewcmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/stack"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory"
)

type previewCommander struct {
	model     string
	template  string
	maxLength int
	raw       bool
}

const previewLongDesc string = `Preview context injection for a prompt.

Runs retrieval against the configured store and renders the entries that
would be selected together with the augmented prompt the proxy would send
upstream. Nothing is forwarded and nothing is learned.

Template and budget default to injection.template and
injection.max_context_length from config.toml.

Examples:
  recall recall "Where should I go for dinner?"
  recall recall "What editor do I use?" --template minimal --max-length 200
  recall recall "Plan my week" --raw`

const previewShortDesc string = "Preview context injection for a prompt"

func NewPreviewCmd() *cobra.Command {
	cmder := &previewCommander{}

	cmd := &cobra.Command{
		Use:   "recall <prompt>",
		Short: previewShortDesc,
		Long:  previewLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stack.ForCommand(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			req := memory.RecallRequest{
				Model:     cmder.model,
				Prompt:    strings.Join(args, " "),
				MaxLength: s.Config.Injection.MaxContextLength,
				Template:  s.Config.Injection.Template,
			}
			if cmd.Flags().Changed("template") {
				if !s.Templates.Has(cmder.template) {
					return fmt.Errorf("unknown template %q (available: %s)",
						cmder.template, strings.Join(s.Templates.Names(), ", "))
				}
				req.Template = cmder.template
			}
			if cmd.Flags().Changed("max-length") {
				if cmder.maxLength <= 0 {
					return fmt.Errorf("--max-length must be positive")
				}
				req.MaxLength = cmder.maxLength
			}

			rec, err := s.Memory.Recall(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("retrieving context: %w", err)
			}

			return cmder.render(cmd.OutOrStdout(), rec, req)
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model name passed to retrieval")
	cmd.Flags().StringVarP(&cmder.template, "template", "t", "", "Injection template")
	cmd.Flags().IntVar(&cmder.maxLength, "max-length", 0, "Context budget in characters")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")

	return cmd
}

func (c *previewCommander) render(w io.Writer, rec *memory.Recollection, req memory.RecallRequest) error {
	doc := Markdown(rec, req)
	if c.raw {
		_, err := io.WriteString(w, doc)
		return err
	}

	rendered, err := cliui.RenderMarkdown(doc)
	if err != nil {
		// Fall back to the plain document.
		rendered = doc
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// Markdown renders a recollection as a markdown report.
func Markdown(rec *memory.Recollection, req memory.RecallRequest) string {
	var b strings.Builder

	b.WriteString("# Recall preview\n\n")
	if !rec.Injected() {
		b.WriteString("_No stored context is relevant to this prompt. It would be forwarded unchanged._\n\n")
	} else {
		fmt.Fprintf(&b, "**%d entries**, %d of %d characters, template `%s`\n\n",
			len(rec.Entries), rec.Length, req.MaxLength, req.Template)
		b.WriteString("| # | Content | Category | Confidence |\n")
		b.WriteString("|---|---------|----------|------------|\n")
		for i, e := range rec.Entries {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
				i+1,
				strings.ReplaceAll(e.Content, "|", `\|`),
				e.Category,
				strconv.FormatFloat(e.Confidence, 'f', 2, 64),
			)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Prompt\n\n```text\n")
	b.WriteString(rec.Prompt)
	b.WriteString("\n```\n")
	return b.String()
}
