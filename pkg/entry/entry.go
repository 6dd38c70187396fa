// Package entry defines the context entry data model shared by the memory
// pipeline, the stores, and the management API.
//
// An Entry is a persisted atomic fact about the user. A Candidate is an
// unvalidated fact proposed by extraction; only candidates that pass
// validation become entries.
package entry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provenance metadata keys written by the learning pipeline.
const (
	MetaConversationID       = "conversation_id"
	MetaMessageIndex         = "message_index"
	MetaExtractionConfidence = "extraction_confidence"
	MetaRule                 = "rule"
	MetaOriginalMessage      = "original_message"
	MetaMergedFrom           = "merged_from"
	MetaValidationStatus     = "validation_status"
	MetaModel                = "model"
)

// DefaultManualConfidence is assigned to entries created by hand.
const DefaultManualConfidence = 1.0

var (
	// ErrEmptyContent is returned when an entry has no content.
	ErrEmptyContent = errors.New("entry content is empty")

	// ErrConfidenceRange is returned when confidence falls outside [0, 1].
	ErrConfidenceRange = errors.New("entry confidence must be within [0, 1]")
)

// Entry is a persisted context entry.
type Entry struct {
	ID         string            `json:"id" yaml:"id"`
	Content    string            `json:"content" yaml:"content"`
	Type       Type              `json:"type" yaml:"type"`
	Category   Category          `json:"category" yaml:"category"`
	Source     Source            `json:"source" yaml:"source"`
	Confidence float64           `json:"confidence" yaml:"confidence"`
	Tags       []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Option configures an Entry built with New.
type Option func(*Entry)

func WithType(t Type) Option { return func(e *Entry) { e.Type = t } }

func WithCategory(c Category) Option { return func(e *Entry) { e.Category = c } }

func WithSource(s Source) Option { return func(e *Entry) { e.Source = s } }

func WithConfidence(c float64) Option { return func(e *Entry) { e.Confidence = c } }

func WithTags(tags ...string) Option {
	return func(e *Entry) { e.Tags = append(e.Tags, tags...) }
}

func WithMetadata(key, value string) Option {
	return func(e *Entry) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// WithCreatedAt overrides the creation time; UpdatedAt follows it.
func WithCreatedAt(t time.Time) Option {
	return func(e *Entry) {
		e.CreatedAt = t
		e.UpdatedAt = t
	}
}

// New creates a manual note entry with a fresh id. Options override the
// defaults.
func New(content string, opts ...Option) *Entry {
	now := time.Now().UTC()
	e := &Entry{
		ID:         uuid.NewString(),
		Content:    content,
		Type:       TypeNote,
		Category:   CategoryOther,
		Source:     SourceManual,
		Confidence: DefaultManualConfidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks the entry's structural invariants.
func (e *Entry) Validate() error {
	if e == nil {
		return errors.New("nil entry")
	}
	if e.ID == "" {
		return errors.New("entry id is empty")
	}
	if len(Tokens(e.Content)) == 0 {
		return ErrEmptyContent
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrConfidenceRange, e.Confidence)
	}
	if e.UpdatedAt.Before(e.CreatedAt) {
		return fmt.Errorf("entry %s updated_at precedes created_at", e.ID)
	}
	return nil
}

// Touch advances UpdatedAt to now, never moving it behind CreatedAt.
func (e *Entry) Touch() {
	now := time.Now().UTC()
	if now.Before(e.CreatedAt) {
		now = e.CreatedAt
	}
	e.UpdatedAt = now
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Age returns how long ago the entry was created relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	if now.Before(e.CreatedAt) {
		return 0
	}
	return now.Sub(e.CreatedAt)
}
