// Package transfer moves context entries in and out of a store as JSON or
// YAML documents.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DocumentVersion is the current document schema version.
const DocumentVersion = 1

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name; "yml" is accepted for YAML and the empty
// string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Document is the export file layout.
type Document struct {
	Version    int            `json:"version" yaml:"version"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Entries    []*entry.Entry `json:"entries" yaml:"entries"`
}

// Export writes every entry in the store to w and returns the entry count.
func Export(ctx context.Context, store storage.Driver, w io.Writer, f Format) (int, error) {
	entries, err := store.List(ctx, storage.Filter{})
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}
	if entries == nil {
		entries = []*entry.Entry{}
	}

	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: time.Now().UTC(),
		Entries:    entries,
	}
	if err := Encode(w, &doc, f); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Encode writes doc in format f.
func Encode(w io.Writer, doc *Document, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// Decode reads a document in format f.
func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	return &doc, nil
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Overwrite replaces entries whose id already exists; otherwise they are
	// skipped.
	Overwrite bool

	// MarkImported sets every imported entry's source to imported.
	MarkImported bool
}

// ImportResult summarizes an import.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Import reads a document from r and writes its entries to the store.
// Invalid entries are skipped and reported; store failures abort.
func Import(ctx context.Context, store storage.Driver, r io.Reader, f Format, opts ImportOptions) (*ImportResult, error) {
	doc, err := Decode(r, f)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	now := time.Now().UTC()

	for i, e := range doc.Entries {
		if e == nil {
			res.Skipped++
			continue
		}
		prepare(e, now, opts)

		if err := e.Validate(); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("entries[%d]: %v", i, err))
			continue
		}

		_, err := store.Get(ctx, e.ID)
		switch {
		case err == nil && !opts.Overwrite:
			res.Skipped++
		case err == nil:
			if err := store.Update(ctx, e); err != nil {
				return res, fmt.Errorf("updating entry %s: %w", e.ID, err)
			}
			res.Updated++
		case storage.IsNotFound(err):
			if err := store.Create(ctx, e); err != nil {
				return res, fmt.Errorf("creating entry %s: %w", e.ID, err)
			}
			res.Created++
		default:
			return res, fmt.Errorf("looking up entry %s: %w", e.ID, err)
		}
	}
	return res, nil
}

func prepare(e *entry.Entry, now time.Time, opts ImportOptions) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() || e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
	if opts.MarkImported {
		e.Source = entry.SourceImported
	}
}
