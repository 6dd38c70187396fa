// Package memory defines the context pipeline services and the composed
// memory Driver consumed by the proxy orchestrator.
//
// Learning runs Extractor -> Deduplicator -> Validator -> storage.Driver after
// a response has been returned. Recall runs Retriever -> Formatter before a
// request is forwarded. Each service is an explicit dependency so it can be
// constructed and tested on its own.
//
// Drivers are pluggable via configuration:
//
//	[learning]
//	enabled = true
package memory

import (
	"context"
	"iter"

	"github.com/papercomputeco/recall/pkg/entry"
)

// Extractor turns a conversation transcript into candidate facts.
type Extractor interface {
	Extract(conv entry.Conversation) iter.Seq[entry.Candidate]
}

// Deduplicator collapses candidates that restate each other or stored entries.
type Deduplicator interface {
	Deduplicate(candidates []entry.Candidate, existing []*entry.Entry) []entry.Candidate
}

// ConflictDetector reports candidates that contradict stored entries.
type ConflictDetector interface {
	Conflicts(candidates []entry.Candidate, existing []*entry.Entry) []Conflict
}

// Validator classifies candidates for storage eligibility.
type Validator interface {
	Validate(c entry.Candidate) entry.ValidationResult
	ValidateBatch(cs []entry.Candidate) []entry.ValidationResult
}

// Retriever selects stored entries relevant to a prompt under a size budget.
type Retriever interface {
	Retrieve(ctx context.Context, model, prompt string, maxLength int) (*Retrieval, error)
}

// Formatter renders context lines and a prompt into an augmented prompt.
type Formatter interface {
	Format(context []string, prompt, templateName string) string
}

// Driver is the composed memory layer used by the proxy.
type Driver interface {
	// Learn mines a completed exchange and persists approved facts.
	Learn(ctx context.Context, conv entry.Conversation) (*LearnResult, error)

	// Recall retrieves context for a prompt and renders the augmented prompt.
	Recall(ctx context.Context, req RecallRequest) (*Recollection, error)

	// Close releases driver resources.
	Close() error
}

// Retrieval is the ordered set of entries chosen for injection.
type Retrieval struct {
	Entries []*entry.Entry `json:"entries"`

	// Context is the formatted concatenation of Entries.
	Context string `json:"context"`

	// Length is the length of Context in characters.
	Length int `json:"length"`
}

// Lines returns the content of each retrieved entry.
func (r *Retrieval) Lines() []string {
	if r == nil {
		return nil
	}
	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = e.Content
	}
	return lines
}

// RecallRequest parameterizes Driver.Recall.
type RecallRequest struct {
	Model     string
	Prompt    string
	MaxLength int
	Template  string
}

// Recollection is the result of Driver.Recall.
type Recollection struct {
	Retrieval

	// Prompt is the augmented prompt. It equals the request prompt when
	// nothing was retrieved.
	Prompt   string `json:"prompt"`
	Template string `json:"template"`
}

// Injected reports whether the recollection changes the prompt.
func (r *Recollection) Injected() bool {
	return r != nil && len(r.Entries) > 0
}

// Conflict is a candidate that contradicts a stored entry.
type Conflict struct {
	Candidate entry.Candidate
	Entry     *entry.Entry
	Reason    string
}

// LearnResult summarizes a learning cycle.
type LearnResult struct {
	Extracted  int
	Duplicates int
	Rejected   int
	Reinforced int
	Stored     []*entry.Entry
	Conflicts  []Conflict
}
