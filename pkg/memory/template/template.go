// Package template renders retrieved context and a user prompt into one
// augmented prompt.
//
// Templates are ordered by strength, from purely suggestive to directive.
// Each is a fixed pattern with a {context} and a {prompt} placeholder.
// Formatting is deterministic: the same inputs always render the same text.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	ContextPlaceholder = "{context}"
	PromptPlaceholder  = "{prompt}"

	// Default is the fallback for unknown template names.
	Default = "default"

	Suggestive      = "suggestive"
	ForcedReference = "forced_reference"
)

// StableNames are the template names external callers may rely on.
func StableNames() []string {
	return []string{Suggestive, Default, ForcedReference}
}

// Template is a named prompt pattern.
type Template struct {
	Name     string `json:"name"`
	Strength int    `json:"strength"`
	Pattern  string `json:"pattern"`
}

// Builtins returns the built-in templates in strength order.
func Builtins() []Template {
	return []Template{
		{Name: "minimal", Strength: 1, Pattern: "{context}\n\n{prompt}"},
		{Name: Suggestive, Strength: 2, Pattern: "Here is some background that may be relevant:\n{context}\n\n{prompt}"},
		{Name: Default, Strength: 3, Pattern: "Use the following context about the user if it is relevant:\n{context}\n\nQuestion: {prompt}"},
		{Name: "structured", Strength: 4, Pattern: "### Known facts about the user\n{context}\n\n### Request\n{prompt}"},
		{Name: "direct", Strength: 5, Pattern: "You know these facts about the user:\n{context}\n\nUse them when answering: {prompt}"},
		{Name: ForcedReference, Strength: 6, Pattern: "You MUST use the following facts when answering:\n{context}\n\nNow answer: {prompt}"},
	}
}

// Registry implements memory.Formatter over a fixed set of templates.
type Registry struct {
	byName  map[string]Template
	ordered []Template
}

// NewRegistry builds a registry from the built-ins plus extra templates.
// Extra templates replace built-ins of the same name. Every template must
// contain the prompt placeholder.
func NewRegistry(extra ...Template) (*Registry, error) {
	r := &Registry{byName: make(map[string]Template)}
	for _, t := range append(Builtins(), extra...) {
		if t.Name == "" {
			return nil, fmt.Errorf("template has no name")
		}
		if !strings.Contains(t.Pattern, PromptPlaceholder) {
			return nil, fmt.Errorf("template %q: missing %s placeholder", t.Name, PromptPlaceholder)
		}
		r.byName[t.Name] = t
	}

	for _, t := range r.byName {
		r.ordered = append(r.ordered, t)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		a, b := r.ordered[i], r.ordered[j]
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		return a.Name < b.Name
	})
	return r, nil
}

// New returns the built-in registry.
func New() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Names lists template names in strength order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		names[i] = t.Name
	}
	return names
}

// Templates returns the registry in strength order.
func (r *Registry) Templates() []Template {
	return append([]Template(nil), r.ordered...)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Lookup returns the named template, or the default template when name is
// unknown.
func (r *Registry) Lookup(name string) Template {
	if t, ok := r.byName[name]; ok {
		return t
	}
	return r.byName[Default]
}

// Format renders context lines and prompt with the named template. Blank
// lines are dropped; with no context the prompt is returned unchanged.
func (r *Registry) Format(context []string, prompt, templateName string) string {
	block := Block(context)
	if block == "" {
		return prompt
	}

	t := r.Lookup(templateName)
	return strings.NewReplacer(
		ContextPlaceholder, block,
		PromptPlaceholder, prompt,
	).Replace(t.Pattern)
}

// Block renders context lines as a bulleted list.
func Block(context []string) string {
	var b strings.Builder
	for _, line := range context {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}

var _ memory.Formatter = (*Registry)(nil)
