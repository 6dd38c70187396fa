// Package local provides the default memory.Driver, composing the extraction,
// deduplication, validation, retrieval and template services over a
// storage.Driver.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/extract"
	"github.com/papercomputeco/recall/pkg/memory/retrieve"
	"github.com/papercomputeco/recall/pkg/memory/template"
	"github.com/papercomputeco/recall/pkg/memory/validate"
	"github.com/papercomputeco/recall/pkg/storage"
)

// Config holds the driver's collaborators. Store is required; nil services
// are replaced with the built-in implementations.
type Config struct {
	Store storage.Driver

	Extractor    memory.Extractor
	Deduplicator memory.Deduplicator
	Conflicts    memory.ConflictDetector
	Validator    memory.Validator
	Retriever    memory.Retriever
	Formatter    memory.Formatter

	// Reinforce makes Learn raise the confidence and recency of stored
	// entries that a new candidate restates.
	Reinforce bool

	Now    func() time.Time
	Logger *slog.Logger
}

// matcher finds the stored entry a candidate restates.
type matcher interface {
	Match(c entry.Candidate, existing []*entry.Entry) *entry.Entry
}

// Driver implements memory.Driver.
type Driver struct {
	store     storage.Driver
	extractor memory.Extractor
	dedup     memory.Deduplicator
	conflicts memory.ConflictDetector
	validator memory.Validator
	retriever memory.Retriever
	formatter memory.Formatter
	reinforce bool
	now       func() time.Time
	logger    *slog.Logger
}

// NewDriver creates a memory driver.
func NewDriver(c Config) (*Driver, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("local memory: %w", memory.ErrNotConfigured)
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Extractor == nil {
		c.Extractor = extract.New()
	}
	if c.Deduplicator == nil {
		c.Deduplicator = dedup.New(dedup.DefaultThreshold)
	}
	if c.Conflicts == nil {
		if cd, ok := c.Deduplicator.(memory.ConflictDetector); ok {
			c.Conflicts = cd
		}
	}
	if c.Validator == nil {
		c.Validator = validate.New()
	}
	if c.Retriever == nil {
		c.Retriever = retrieve.New(retrieve.Config{Store: c.Store, Logger: c.Logger})
	}
	if c.Formatter == nil {
		c.Formatter = template.New()
	}

	return &Driver{
		store:     c.Store,
		extractor: c.Extractor,
		dedup:     c.Deduplicator,
		conflicts: c.Conflicts,
		validator: c.Validator,
		retriever: c.Retriever,
		formatter: c.Formatter,
		reinforce: c.Reinforce,
		now:       c.Now,
		logger:    c.Logger,
	}, nil
}

// Learn runs extraction, deduplication and validation over conv and stores
// the approved candidates as new entries. Existing entries are only touched
// when reinforcement is enabled.
//
// A failed store write does not stop the remaining writes; all write errors
// are returned joined alongside the partial result.
func (d *Driver) Learn(ctx context.Context, conv entry.Conversation) (*memory.LearnResult, error) {
	res := &memory.LearnResult{}

	var candidates []entry.Candidate
	for c := range d.extractor.Extract(conv) {
		candidates = append(candidates, c)
	}
	res.Extracted = len(candidates)
	if len(candidates) == 0 {
		return res, nil
	}

	existing, err := d.store.List(ctx, storage.Filter{})
	if err != nil {
		return res, fmt.Errorf("loading existing entries: %w", err)
	}

	var errs []error
	if d.reinforce {
		n, err := d.reinforceExisting(ctx, candidates, existing)
		res.Reinforced = n
		if err != nil {
			errs = append(errs, err)
		}
	}

	if d.conflicts != nil {
		res.Conflicts = d.conflicts.Conflicts(candidates, existing)
		for _, c := range res.Conflicts {
			d.logger.Warn("learned fact contradicts stored entry",
				"conversation_id", conv.ID,
				"entry_id", c.Entry.ID,
				"candidate", c.Candidate.Content,
				"reason", c.Reason,
			)
		}
	}

	survivors := d.dedup.Deduplicate(candidates, existing)
	res.Duplicates = len(candidates) - len(survivors)

	results := d.validator.ValidateBatch(survivors)
	for i, c := range survivors {
		v := results[i]
		if !v.Status.Storable() {
			res.Rejected++
			d.logger.Debug("candidate rejected",
				"conversation_id", conv.ID,
				"content", c.Content,
				"status", v.Status.String(),
				"issues", v.Issues,
			)
			continue
		}

		e := c.ToEntry(d.now())
		e.Metadata[entry.MetaValidationStatus] = v.Status.String()
		if conv.Model != "" {
			e.Metadata[entry.MetaModel] = conv.Model
		}

		if err := d.store.Create(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("storing entry %s: %w", e.ID, err))
			continue
		}
		res.Stored = append(res.Stored, e)
	}

	d.logger.Debug("learning cycle complete",
		"conversation_id", conv.ID,
		"extracted", res.Extracted,
		"duplicates", res.Duplicates,
		"rejected", res.Rejected,
		"stored", len(res.Stored),
		"reinforced", res.Reinforced,
	)

	return res, errors.Join(errs...)
}

func (d *Driver) reinforceExisting(ctx context.Context, candidates []entry.Candidate, existing []*entry.Entry) (int, error) {
	m, ok := d.dedup.(matcher)
	if !ok {
		return 0, nil
	}

	touched := make(map[string]bool)
	var errs []error
	for _, c := range candidates {
		e := m.Match(c, existing)
		if e == nil || touched[e.ID] {
			continue
		}
		touched[e.ID] = true

		updated := e.Clone()
		updated.Confidence = max(updated.Confidence, c.Confidence)
		updated.Touch()
		if err := d.store.Update(ctx, updated); err != nil {
			errs = append(errs, fmt.Errorf("reinforcing entry %s: %w", e.ID, err))
			delete(touched, e.ID)
		}
	}
	return len(touched), errors.Join(errs...)
}

// Recall retrieves context for the prompt and renders the augmented prompt.
// With nothing relevant the prompt is returned unchanged.
func (d *Driver) Recall(ctx context.Context, req memory.RecallRequest) (*memory.Recollection, error) {
	r, err := d.retriever.Retrieve(ctx, req.Model, req.Prompt, req.MaxLength)
	if err != nil {
		return nil, err
	}

	out := &memory.Recollection{
		Retrieval: *r,
		Prompt:    req.Prompt,
		Template:  req.Template,
	}
	if len(r.Entries) > 0 {
		out.Prompt = d.formatter.Format(r.Lines(), req.Prompt, req.Template)
	}
	return out, nil
}

// Close is a no-op; the store is owned by the caller.
func (d *Driver) Close() error {
	return nil
}

var _ memory.Driver = (*Driver)(nil)
