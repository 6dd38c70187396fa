package entry

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Candidate is a fact proposed by extraction. Candidates are never persisted
// directly; see ToEntry.
type Candidate struct {
	Content        string
	Type           Type
	Category       Category
	Confidence     float64
	Source         Source
	Tags           []string
	ConversationID string
	MessageIndex   int
	Metadata       map[string]string
}

// ToEntry converts an approved candidate into a new Entry. The extraction
// confidence and conversation provenance are recorded in metadata.
func (c Candidate) ToEntry(now time.Time) *Entry {
	meta := make(map[string]string, len(c.Metadata)+3)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[MetaConversationID] = c.ConversationID
	meta[MetaMessageIndex] = strconv.Itoa(c.MessageIndex)
	meta[MetaExtractionConfidence] = strconv.FormatFloat(c.Confidence, 'f', 2, 64)

	now = now.UTC()
	return &Entry{
		ID:         uuid.NewString(),
		Content:    c.Content,
		Type:       c.Type,
		Category:   c.Category,
		Source:     c.Source,
		Confidence: c.Confidence,
		Tags:       append([]string(nil), c.Tags...),
		Metadata:   meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidationResult pairs a validation outcome with a candidate.
type ValidationResult struct {
	Status      Status   `json:"status"`
	Confidence  float64  `json:"confidence"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Message is one turn of a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an ordered message sequence keyed by id. Insertion order is
// the only sequencing signal.
type Conversation struct {
	ID       string    `json:"id"`
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
