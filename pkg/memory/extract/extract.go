// Package extract implements rule-based extraction of candidate facts from
// conversation transcripts.
//
// Only user messages are mined. Rules are independent: several may fire on
// the same sentence, and the overlapping candidates are left for
// deduplication to resolve. A message that matches no rule yields nothing.
package extract

import (
	"iter"
	"strings"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/utils"
)

const (
	// TagAutoExtracted marks every candidate produced by the extractor.
	TagAutoExtracted = "auto_extracted"

	certaintyBoost = 0.05
	hedgePenalty   = 0.2
	shortPenalty   = 0.1

	// replyBase is the confidence for facts inferred from a bare reply to an
	// assistant question.
	replyBase = 0.6

	originalMessageLimit = 100
)

var (
	certaintyMarkers = []string{"definitely", "always", "really", "absolutely", "certainly"}
	hedgeMarkers     = []string{"maybe", "perhaps", "might", "i think", "probably", "not sure", "i guess", "kind of"}
)

// Extractor applies an ordered rule set to conversations.
type Extractor struct {
	rules []Rule
}

// New creates an Extractor. With no rules it uses DefaultRules.
func New(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Rules returns the extractor's rules in evaluation order.
func (x *Extractor) Rules() []Rule {
	return x.rules
}

// Extract lazily yields candidates for every user message of conv.
func (x *Extractor) Extract(conv entry.Conversation) iter.Seq[entry.Candidate] {
	return func(yield func(entry.Candidate) bool) {
		for i, msg := range conv.Messages {
			if msg.Role != entry.RoleUser {
				continue
			}

			var prev *entry.Message
			if i > 0 && conv.Messages[i-1].Role == entry.RoleAssistant {
				prev = &conv.Messages[i-1]
			}

			for c := range x.extractMessage(conv.ID, i, msg.Content, prev) {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// ExtractAll drains Extract into a slice.
func (x *Extractor) ExtractAll(conv entry.Conversation) []entry.Candidate {
	var out []entry.Candidate
	for c := range x.Extract(conv) {
		out = append(out, c)
	}
	return out
}

func (x *Extractor) extractMessage(convID string, index int, text string, prev *entry.Message) iter.Seq[entry.Candidate] {
	return func(yield func(entry.Candidate) bool) {
		text = strings.ReplaceAll(text, "’", "'")
		adjust := messageAdjustment(text)
		matched := false

		for _, rule := range x.rules {
			for _, groups := range rule.Pattern.FindAllStringSubmatch(text, -1) {
				value := cleanValue(groups[len(groups)-1], rule.Cuts)
				if value == "" {
					continue
				}
				if rule.Accept != nil && !rule.Accept(value) {
					continue
				}

				confidence := rule.Base + adjust
				if len([]rune(value)) < 2 {
					confidence -= shortPenalty
				}

				matched = true
				c := newCandidate(convID, index, text, rule.Name, rule.Type, rule.Category,
					rule.Render(groups, value), confidence)
				if !yield(c) {
					return
				}
			}
		}

		if matched || prev == nil {
			return
		}

		if c, ok := inferFromReply(convID, index, text, prev.Content); ok {
			yield(c)
		}
	}
}

// inferFromReply handles a bare answer to an assistant question, e.g.
// "Where do you live?" followed by "Portland".
func inferFromReply(convID string, index int, reply, question string) (entry.Candidate, bool) {
	tokens := entry.Tokens(reply)
	if len(tokens) == 0 || len(tokens) > 3 {
		return entry.Candidate{}, false
	}

	q := entry.Normalize(question)
	if !strings.Contains(q, "where") || !containsAny(q, "live", "from", "based") {
		return entry.Candidate{}, false
	}

	value := cleanValue(reply, nil)
	if value == "" {
		return entry.Candidate{}, false
	}

	return newCandidate(convID, index, reply, "location_reply", entry.TypePersonalInfo,
		entry.CategoryPersonalInfo, "I live in "+value, replyBase), true
}

func newCandidate(convID string, index int, text, rule string, typ entry.Type, cat entry.Category, content string, confidence float64) entry.Candidate {
	return entry.Candidate{
		Content:        content,
		Type:           typ,
		Category:       cat,
		Confidence:     clamp(confidence),
		Source:         entry.SourceUserPrompt,
		Tags:           []string{rule, TagAutoExtracted},
		ConversationID: convID,
		MessageIndex:   index,
		Metadata: map[string]string{
			entry.MetaRule:            rule,
			entry.MetaOriginalMessage: utils.Truncate(text, originalMessageLimit),
		},
	}
}

// messageAdjustment scores certainty and hedging markers in the message.
func messageAdjustment(text string) float64 {
	padded := " " + entry.Normalize(text) + " "
	adjust := 0.0
	for _, m := range certaintyMarkers {
		if strings.Contains(padded, " "+m+" ") {
			adjust += certaintyBoost
			break
		}
	}
	for _, m := range hedgeMarkers {
		if strings.Contains(padded, " "+m+" ") {
			adjust -= hedgePenalty
			break
		}
	}
	return adjust
}

// cleanValue trims a captured value at clause boundaries and bounds its
// length.
func cleanValue(v string, cuts []string) string {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	for _, set := range [][]string{defaultCuts, cuts} {
		for _, cut := range set {
			if i := strings.Index(lower, cut); i >= 0 {
				v, lower = v[:i], lower[:i]
			}
		}
	}

	words := strings.Fields(v)
	if len(words) > maxValueWords {
		words = words[:maxValueWords]
	}
	v = strings.Join(words, " ")
	return strings.Trim(v, " \"'()[]:-")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
