// Package eventstream defines the events recall emits when the learning
// pipeline stores a new context entry, and the publishers that ship them.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/entry"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeEntryLearned is emitted after a learned entry is stored.
	EventTypeEntryLearned = "recall.entry.learned"
)

// EntryLearnedEvent is a transport-neutral event payload for a stored entry.
type EntryLearnedEvent struct {
	SchemaVersion  int          `json:"schema_version"`
	EventType      string       `json:"event_type"`
	EventID        string       `json:"event_id"`
	EmittedAt      time.Time    `json:"emitted_at"`
	Source         EventSource  `json:"source"`
	ConversationID string       `json:"conversation_id"`
	Entry          *entry.Entry `json:"entry"`
}

// EventSource identifies the exchange the entry was learned from.
type EventSource struct {
	Model string `json:"model,omitempty"`
	Path  string `json:"path,omitempty"`
}

// NewEntryLearnedEvent builds a V1 event for e.
func NewEntryLearnedEvent(conversationID string, source EventSource, e *entry.Entry) *EntryLearnedEvent {
	return &EntryLearnedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeEntryLearned,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		Source:         source,
		ConversationID: conversationID,
		Entry:          e,
	}
}
