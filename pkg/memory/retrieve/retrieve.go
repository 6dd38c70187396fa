// Package retrieve ranks stored entries against a prompt and packs the most
// relevant ones into a length budget.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

const (
	DefaultMinRelevance = 0.05

	tagBoost    = 0.3
	intentBoost = 0.2

	recencyFloor   = 0.5
	recencyHorizon = 365 * 24 * time.Hour

	linePrefix = "- "
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "i": true, "me": true, "my": true, "mine": true, "im": true,
	"you": true, "your": true, "is": true, "am": true, "are": true, "was": true, "were": true,
	"be": true, "do": true, "does": true, "did": true, "what": true, "where": true, "when": true,
	"who": true, "whom": true, "which": true, "why": true, "how": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "and": true, "or": true,
	"but": true, "it": true, "this": true, "that": true, "there": true, "can": true, "could": true,
	"should": true, "would": true, "will": true, "about": true, "tell": true, "know": true,
	"any": true, "some": true, "please": true, "so": true, "if": true, "just": true,
}

// Result is the retrieval outcome.
type Result = memory.Retrieval

// Scored is a stored entry with its relevance score.
type Scored struct {
	Entry *entry.Entry
	Score float64
}

// Config configures an Engine.
type Config struct {
	Store storage.Driver

	Packing Packing

	// MinRelevance is the floor the unweighted relevance must exceed.
	// Zero selects DefaultMinRelevance.
	MinRelevance float64

	// Now is the clock used for recency. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Engine implements memory.Retriever.
type Engine struct {
	store        storage.Driver
	packing      Packing
	minRelevance float64
	now          func() time.Time
	logger       *slog.Logger
}

// New creates an Engine.
func New(c Config) *Engine {
	if c.MinRelevance <= 0 {
		c.MinRelevance = DefaultMinRelevance
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return &Engine{
		store:        c.Store,
		packing:      c.Packing,
		minRelevance: c.MinRelevance,
		now:          c.Now,
		logger:       c.Logger,
	}
}

// Retrieve selects entries relevant to prompt whose formatted block fits in
// maxLength characters. No relevant entries is an empty result, not an error.
func (e *Engine) Retrieve(ctx context.Context, model, prompt string, maxLength int) (*Result, error) {
	if e.store == nil {
		return nil, memory.ErrNotConfigured
	}
	if maxLength <= 0 || strings.TrimSpace(prompt) == "" {
		return &Result{}, nil
	}

	entries, err := e.store.List(ctx, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	res := Pack(e.Rank(prompt, entries), maxLength, e.packing)
	e.logger.Debug("retrieved context",
		"model", model,
		"candidates", len(entries),
		"selected", len(res.Entries),
		"length", res.Length,
	)
	return res, nil
}

// Rank scores entries against prompt and returns those above the relevance
// floor, best first. Ties go to the most recently created entry.
func (e *Engine) Rank(prompt string, entries []*entry.Entry) []Scored {
	normalized := entry.Normalize(prompt)
	promptTokens := contentTokens(entry.Tokens(prompt))
	wanted := detectIntents(normalized)
	now := e.now()

	var out []Scored
	for _, en := range entries {
		if en == nil {
			continue
		}

		relevance := overlap(promptTokens, en) + tagScore(normalized, en.Tags)
		if wanted[en.Category] {
			relevance += intentBoost
		}
		if relevance <= e.minRelevance {
			continue
		}

		out = append(out, Scored{
			Entry: en,
			Score: relevance * recency(en.Age(now)) * en.Confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Entry.CreatedAt.Equal(b.Entry.CreatedAt) {
			return a.Entry.CreatedAt.After(b.Entry.CreatedAt)
		}
		return a.Entry.ID < b.Entry.ID
	})
	return out
}

// Pack accumulates ranked entries while the formatted block stays within
// maxLength characters.
func Pack(ranked []Scored, maxLength int, packing Packing) *Result {
	res := &Result{}
	var lines []string
	length := 0

	for _, s := range ranked {
		line := linePrefix + s.Entry.Content
		next := length + utf8.RuneCountInString(line)
		if len(lines) > 0 {
			next++
		}
		if next > maxLength {
			if packing == PackingStrict {
				break
			}
			continue
		}
		lines = append(lines, line)
		res.Entries = append(res.Entries, s.Entry)
		length = next
	}

	res.Context = strings.Join(lines, "\n")
	res.Length = length
	return res
}

func contentTokens(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			set[t] = struct{}{}
		}
	}
	return set
}

// overlap is the share of prompt tokens found in the entry content or tags.
func overlap(promptTokens map[string]struct{}, en *entry.Entry) float64 {
	if len(promptTokens) == 0 {
		return 0
	}
	have := entry.TokenSet(append([]string{en.Content}, en.Tags...)...)
	n := 0
	for t := range promptTokens {
		if _, ok := have[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(promptTokens))
}

// tagScore boosts multi-word tags that appear verbatim in the prompt.
func tagScore(normalizedPrompt string, tags []string) float64 {
	padded := " " + normalizedPrompt + " "
	score := 0.0
	for _, tag := range tags {
		t := entry.Normalize(tag)
		if !strings.Contains(t, " ") {
			continue
		}
		if strings.Contains(padded, " "+t+" ") {
			score += tagBoost
		}
	}
	return score
}

// recency decays linearly with age down to recencyFloor.
func recency(age time.Duration) float64 {
	return max(recencyFloor, 1-float64(age)/float64(recencyHorizon))
}

var _ memory.Retriever = (*Engine)(nil)
