package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/template"
)

var (
	searchToolName    = "context_search"
	searchDescription = "Search stored facts about the user. Returns entries whose content contains the query text, newest first."

	addToolName    = "context_add"
	addDescription = "Remember a fact about the user. The fact is stored as a manual entry and becomes available for future prompts."

	recallToolName    = "context_recall"
	recallDescription = "Preview the context that would be injected for a prompt. Returns the selected entries and the augmented prompt."
)

const defaultSearchLimit = 10

// Entry is the tool-facing view of a stored entry. Enumerations and
// timestamps are carried as strings so the inferred output schema matches
// the serialized form.
type Entry struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Type       string            `json:"type" jsonschema:"entry type, e.g. note, fact, preference"`
	Category   string            `json:"category" jsonschema:"entry category, e.g. personal_info, work, preferences"`
	Source     string            `json:"source" jsonschema:"one of manual, user_prompt, ai_response, imported"`
	Confidence float64           `json:"confidence"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

func toolEntry(e *entry.Entry) Entry {
	return Entry{
		ID:         e.ID,
		Content:    e.Content,
		Type:       e.Type.String(),
		Category:   e.Category.String(),
		Source:     e.Source.String(),
		Confidence: e.Confidence,
		Tags:       e.Tags,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toolEntries(es []*entry.Entry) []Entry {
	out := make([]Entry, 0, len(es))
	for _, e := range es {
		out = append(out, toolEntry(e))
	}
	return out
}

// SearchInput represents the input arguments for the context_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to look for in stored facts"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 10)"`
}

// SearchOutput represents the output of the context_search tool.
type SearchOutput struct {
	Query   string  `json:"query"`
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), SearchOutput{Entries: []Entry{}}, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s.config.Logger.Debug("MCP search request", "query", input.Query, "limit", limit)

	entries, err := s.config.Store.Search(ctx, input.Query, limit)
	if err != nil {
		s.config.Logger.Error("failed to search entries", "error", err)
		return toolError("Search failed: %v", err), SearchOutput{Query: input.Query, Entries: []Entry{}}, nil
	}

	output := SearchOutput{Query: input.Query, Entries: toolEntries(entries), Count: len(entries)}
	return toolResult(output), output, nil
}

// AddInput represents the input arguments for the context_add tool.
type AddInput struct {
	Content  string   `json:"content" jsonschema:"the fact to remember, in first person"`
	Category string   `json:"category,omitempty" jsonschema:"one of personal_info, preferences, work, health, relationships, goals, projects, technical, other"`
	Tags     []string `json:"tags,omitempty" jsonschema:"optional tags"`
}

// AddOutput is the stored entry.
type AddOutput struct {
	Entry Entry `json:"entry"`
}

func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	opts := []entry.Option{entry.WithTags(input.Tags...)}
	if input.Category != "" {
		cat, err := entry.ParseCategory(input.Category)
		if err != nil {
			return toolError("%v", err), AddOutput{}, nil
		}
		opts = append(opts, entry.WithCategory(cat))
	}

	e := entry.New(strings.TrimSpace(input.Content), opts...)
	if err := e.Validate(); err != nil {
		return toolError("%v", err), AddOutput{}, nil
	}

	if err := s.config.Store.Create(ctx, e); err != nil {
		s.config.Logger.Error("failed to create entry", "error", err)
		return toolError("Failed to store entry: %v", err), AddOutput{}, nil
	}

	s.config.Logger.Info("entry added via MCP", "id", e.ID)
	output := AddOutput{Entry: toolEntry(e)}
	return toolResult(output), output, nil
}

// RecallInput represents the input arguments for the context_recall tool.
type RecallInput struct {
	Prompt    string `json:"prompt" jsonschema:"the prompt to find context for"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"character budget for the context block"`
	Template  string `json:"template,omitempty" jsonschema:"injection template name"`
}

// RecallOutput is the preview of an injection.
type RecallOutput struct {
	Entries []Entry `json:"entries"`
	Context string  `json:"context"`
	Prompt  string  `json:"prompt"`
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, input RecallInput) (*mcp.CallToolResult, RecallOutput, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return toolError("prompt is required"), RecallOutput{Entries: []Entry{}}, nil
	}

	req := memory.RecallRequest{
		Prompt:    input.Prompt,
		MaxLength: input.MaxLength,
		Template:  input.Template,
	}
	if req.MaxLength <= 0 {
		req.MaxLength = s.config.MaxContextLength
	}
	if req.Template == "" {
		req.Template = s.config.DefaultTemplate
	}
	if req.Template == "" {
		req.Template = template.Default
	}

	rec, err := s.config.Memory.Recall(ctx, req)
	if err != nil {
		s.config.Logger.Error("context recall failed", "error", err)
		return toolError("Context recall failed: %v", err), RecallOutput{Entries: []Entry{}}, nil
	}

	output := RecallOutput{Entries: toolEntries(rec.Entries), Context: rec.Context, Prompt: rec.Prompt}
	return toolResult(output), output, nil
}
