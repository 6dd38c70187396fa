// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// entry listings, markdown rendering) for recall CLI commands.
package cliui

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/utils"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

const (
	idWidth      = 8
	contentWidth = 60
)

// EntryTable writes one aligned row per entry.
func EntryTable(w io.Writer, entries []*entry.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s\n", DimStyle.Render("No entries."))
		return
	}

	catWidth := len("CATEGORY")
	for _, e := range entries {
		catWidth = max(catWidth, len(e.Category.String()))
	}

	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		HeaderStyle.Render(pad("ID", idWidth)),
		HeaderStyle.Render(pad("CATEGORY", catWidth)),
		HeaderStyle.Render(pad("CONF", 4)),
		HeaderStyle.Render("CONTENT"),
	)
	for _, e := range entries {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			idStyle.Render(pad(utils.Prefix(e.ID, idWidth), idWidth)),
			DimStyle.Render(pad(e.Category.String(), catWidth)),
			scoreStyle.Render(pad(strconv.FormatFloat(e.Confidence, 'f', 2, 64), 4)),
			ValueStyle.Render(utils.Truncate(e.Content, contentWidth)),
		)
	}
}

// EntryDetail writes every field of a single entry.
func EntryDetail(w io.Writer, e *entry.Entry) {
	row := func(k, v string) {
		fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(pad(k+":", 11)), ValueStyle.Render(v))
	}
	row("id", e.ID)
	row("content", e.Content)
	row("type", e.Type.String())
	row("category", e.Category.String())
	row("source", e.Source.String())
	row("confidence", strconv.FormatFloat(e.Confidence, 'f', 2, 64))
	if len(e.Tags) > 0 {
		row("tags", strings.Join(e.Tags, ", "))
	}
	row("created", e.CreatedAt.Format(time.RFC3339))
	row("updated", e.UpdatedAt.Format(time.RFC3339))
	for _, k := range slices.Sorted(maps.Keys(e.Metadata)) {
		row(k, e.Metadata[k])
	}
}

func pad(value string, width int) string {
	if lipgloss.Width(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-lipgloss.Width(value))
}
