// Package sqlstore implements storage.Driver on top of database/sql.
// The sqlite and postgres packages embed Driver and supply the connection,
// dialect and migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/storage"
)

// Dialect selects placeholder syntax and migration dialect.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// GooseName returns the goose dialect identifier.
func (d Dialect) GooseName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

const selectColumns = `id, content, entry_type, category, source, confidence, tags, metadata, created_at, updated_at`

// Driver implements storage.Driver against a context_entries table.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps an open, migrated database. A nil logger discards output.
func New(db *sql.DB, dialect Dialect, log *slog.Logger) *Driver {
	if log == nil {
		log = logger.Nop()
	}
	return &Driver{DB: db, dialect: dialect, logger: log}
}

// SQLDB returns the underlying database handle.
func (d *Driver) SQLDB() *sql.DB {
	return d.DB
}

// Create inserts a new entry.
func (d *Driver) Create(ctx context.Context, e *entry.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	tags, meta, err := encodeJSONFields(e)
	if err != nil {
		return err
	}

	_, err = d.DB.ExecContext(ctx, d.rebind(`
		INSERT INTO context_entries (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Content, e.Type.String(), e.Category.String(), e.Source.String(),
		e.Confidence, tags, meta, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return unavailable("insert entry", err)
	}

	return nil
}

// Get retrieves an entry by id.
func (d *Driver) Get(ctx context.Context, id string) (*entry.Entry, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`SELECT `+selectColumns+` FROM context_entries WHERE id = ?`), id)

	e, err := d.scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, unavailable("get entry", err)
	}

	return e, nil
}

// Update replaces the mutable fields of an existing entry. created_at is
// never rewritten.
func (d *Driver) Update(ctx context.Context, e *entry.Entry) error {
	if e == nil {
		return errors.New("cannot update nil entry")
	}

	existing, err := d.Get(ctx, e.ID)
	if err != nil {
		return err
	}

	updated := e.Clone()
	updated.CreatedAt = existing.CreatedAt
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	tags, meta, err := encodeJSONFields(updated)
	if err != nil {
		return err
	}

	res, err := d.DB.ExecContext(ctx, d.rebind(`
		UPDATE context_entries
		SET content = ?, entry_type = ?, category = ?, source = ?, confidence = ?,
		    tags = ?, metadata = ?, updated_at = ?
		WHERE id = ?`),
		updated.Content, updated.Type.String(), updated.Category.String(), updated.Source.String(),
		updated.Confidence, tags, meta, updated.UpdatedAt.UnixNano(), updated.ID,
	)
	if err != nil {
		return unavailable("update entry", err)
	}

	return requireAffected(res, e.ID)
}

// Delete removes an entry by id.
func (d *Driver) Delete(ctx context.Context, id string) error {
	res, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM context_entries WHERE id = ?`), id)
	if err != nil {
		return unavailable("delete entry", err)
	}

	return requireAffected(res, id)
}

// List returns entries matching filter, newest first.
func (d *Driver) List(ctx context.Context, filter storage.Filter) ([]*entry.Entry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Source != nil {
		where = append(where, "source = ?")
		args = append(args, filter.Source.String())
	}
	if filter.Type != nil {
		where = append(where, "entry_type = ?")
		args = append(args, filter.Type.String())
	}
	if filter.Category != nil {
		where = append(where, "category = ?")
		args = append(args, filter.Category.String())
	}

	query := `SELECT ` + selectColumns + ` FROM context_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	query, args = d.paginate(query, args, filter.Limit, filter.Offset)

	return d.query(ctx, "list entries", query, args...)
}

// Search returns entries whose content contains query, case-insensitive.
func (d *Driver) Search(ctx context.Context, query string, limit int) ([]*entry.Entry, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	q := `SELECT ` + selectColumns + ` FROM context_entries
		WHERE LOWER(content) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id ASC`
	args := []any{pattern}
	q, args = d.paginate(q, args, limit, 0)

	return d.query(ctx, "search entries", q, args...)
}

// Count returns the number of stored entries.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM context_entries`).Scan(&n); err != nil {
		return 0, unavailable("count entries", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.DB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) query(ctx context.Context, op, query string, args ...any) ([]*entry.Entry, error) {
	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	result := []*entry.Entry{}
	for rows.Next() {
		e, err := d.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}

	return result, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *Driver) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEntry decodes one row. Unknown type, category or source identifiers
// fall back to note, other and manual so a single legacy row cannot make
// the whole table unreadable.
func (d *Driver) scanEntry(row scanner) (*entry.Entry, error) {
	var (
		e                        entry.Entry
		typ, category, source    string
		tags, meta               sql.NullString
		createdAtNs, updatedAtNs int64
	)
	if err := row.Scan(&e.ID, &e.Content, &typ, &category, &source, &e.Confidence,
		&tags, &meta, &createdAtNs, &updatedAtNs); err != nil {
		return nil, err
	}

	var err error
	if e.Type, err = entry.ParseType(typ); err != nil {
		d.logger.Warn("unknown stored entry type, reading as note", "id", e.ID, "value", typ)
	}
	if e.Category, err = entry.ParseCategory(category); err != nil {
		d.logger.Warn("unknown stored entry category, reading as other", "id", e.ID, "value", category)
	}
	if e.Source, err = entry.ParseSource(source); err != nil {
		d.logger.Warn("unknown stored entry source, reading as manual", "id", e.ID, "value", source)
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags for %s: %w", e.ID, err)
		}
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", e.ID, err)
		}
	}
	e.CreatedAt = time.Unix(0, createdAtNs).UTC()
	e.UpdatedAt = time.Unix(0, updatedAtNs).UTC()

	return &e, nil
}

func encodeJSONFields(e *entry.Entry) (string, string, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("encoding tags: %w", err)
	}

	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", "", fmt.Errorf("encoding metadata: %w", err)
	}

	return string(tagsJSON), string(metaJSON), nil
}

func (d *Driver) paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	} else if offset > 0 && d.dialect == SQLite {
		// SQLite requires a LIMIT clause before OFFSET.
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrStoreUnavailable, err)
}
