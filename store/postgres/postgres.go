// Package postgres implements kitabi.Store using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor injection.
// The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/kitabi"
)

// Store implements kitabi.Store backed by PostgreSQL. Audit fields are kept
// in JSONB columns; page text and sections live in their own tables.
type Store struct {
	pool   *pgxpool.Pool
	schema string
}

// Option configures a PostgreSQL Store.
type Option func(*Store)

// WithSchema places the tables in schema instead of the search path default.
// The schema is created by Init.
func WithSchema(schema string) Option {
	return func(s *Store) { s.schema = schema }
}

var _ kitabi.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, o := range opts {
		o(s)
	}
	return s
}

// table returns the quoted, schema-qualified name of a table.
func (s *Store) table(name string) string {
	if s.schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// Init creates all required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	var stmts []string
	if s.schema != "" {
		stmts = append(stmts, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{s.schema}.Sanitize())
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			page_count INTEGER NOT NULL,
			language TEXT NOT NULL,
			is_scanned BOOLEAN NOT NULL,
			method TEXT NOT NULL,
			structure_source TEXT NOT NULL,
			degraded BOOLEAN NOT NULL,
			classification JSONB NOT NULL,
			verdict JSONB NOT NULL,
			route JSONB NOT NULL,
			toc_entries JSONB,
			warnings JSONB,
			created_at BIGINT NOT NULL
		)`, s.table("documents")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			page_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			char_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			PRIMARY KEY (document_id, page_index)
		)`, s.table("pages"), s.table("documents")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			order_index INTEGER NOT NULL,
			title TEXT NOT NULL,
			level INTEGER NOT NULL,
			page_start INTEGER NOT NULL,
			page_end INTEGER NOT NULL,
			PRIMARY KEY (document_id, order_index)
		)`, s.table("sections"), s.table("documents")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS documents_created_idx ON %s (created_at DESC)`, s.table("documents")),
	)
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// SaveRecord upserts rec and replaces its pages and sections in a single
// transaction. Pages are bulk-loaded with COPY.
func (s *Store) SaveRecord(ctx context.Context, rec kitabi.Record) error {
	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, name, page_count, language, is_scanned, method, structure_source, degraded, classification, verdict, route, toc_entries, warnings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb, $12::jsonb, $13::jsonb, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   page_count = EXCLUDED.page_count,
		   language = EXCLUDED.language,
		   is_scanned = EXCLUDED.is_scanned,
		   method = EXCLUDED.method,
		   structure_source = EXCLUDED.structure_source,
		   degraded = EXCLUDED.degraded,
		   classification = EXCLUDED.classification,
		   verdict = EXCLUDED.verdict,
		   route = EXCLUDED.route,
		   toc_entries = EXCLUDED.toc_entries,
		   warnings = EXCLUDED.warnings,
		   created_at = EXCLUDED.created_at`, s.table("documents")),
		rec.ID, rec.Name, rec.PageCount, string(rec.Language), rec.Classification.IsScanned,
		string(rec.Extraction.Method), string(rec.StructureSource), rec.Degraded,
		cols.classification, cols.verdict, cols.route, cols.tocEntries, cols.warnings, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}

	for _, t := range []string{"pages", "sections"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table(t)), rec.ID); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", t, err)
		}
	}

	pages := rec.Extraction.Pages()
	rows := make([][]any, len(pages))
	for i, text := range pages {
		sample := kitabi.NewPageSample(i, text, 0)
		rows[i] = []any{rec.ID, i, text, sample.CharacterCount, sample.WordCount}
	}
	ident := pgx.Identifier{"pages"}
	if s.schema != "" {
		ident = pgx.Identifier{s.schema, "pages"}
	}
	if _, err := tx.CopyFrom(ctx, ident,
		[]string{"document_id", "page_index", "content", "char_count", "word_count"},
		pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("postgres: copy pages: %w", err)
	}

	if len(rec.Sections) > 0 {
		batch := &pgx.Batch{}
		q := fmt.Sprintf(`INSERT INTO %s (document_id, order_index, title, level, page_start, page_end) VALUES ($1, $2, $3, $4, $5, $6)`, s.table("sections"))
		for i, sec := range rec.Sections {
			batch.Queue(q, rec.ID, i, sec.Title, sec.Level, sec.PageStart, sec.PageEnd)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: insert sections: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetRecord loads a record by ID, reassembling its text from the pages table.
func (s *Store) GetRecord(ctx context.Context, id string) (kitabi.Record, error) {
	var (
		rec                      kitabi.Record
		language, method, source string
		cols                     jsonColumns
	)
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT id, name, page_count, language, is_scanned, method, structure_source, degraded, classification, verdict, route, toc_entries, warnings, created_at
		 FROM %s WHERE id = $1`, s.table("documents")), id,
	).Scan(&rec.ID, &rec.Name, &rec.PageCount, &language, &rec.Classification.IsScanned, &method, &source, &rec.Degraded,
		&cols.classification, &cols.verdict, &cols.route, &cols.tocEntries, &cols.warnings, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return kitabi.Record{}, fmt.Errorf("postgres: get record %s: %w", id, kitabi.ErrNotFound)
	}
	if err != nil {
		return kitabi.Record{}, fmt.Errorf("postgres: get record: %w", err)
	}
	if err := cols.decode(&rec); err != nil {
		return kitabi.Record{}, err
	}
	rec.Language = kitabi.Language(language)
	rec.StructureSource = kitabi.StructureSource(source)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT content FROM %s WHERE document_id = $1 ORDER BY page_index`, s.table("pages")), id)
	if err != nil {
		return kitabi.Record{}, fmt.Errorf("postgres: get pages: %w", err)
	}
	pages, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return kitabi.Record{}, fmt.Errorf("postgres: scan pages: %w", err)
	}
	rec.Extraction.FullText, rec.Extraction.PageBoundaries = kitabi.AssembleText(pages)
	rec.Extraction.Method = kitabi.ExtractionMethod(method)
	rec.Extraction.Language = rec.Language
	rec.Extraction.PagesExtracted = len(pages)

	rows, err = s.pool.Query(ctx, fmt.Sprintf(
		`SELECT title, level, page_start, page_end FROM %s WHERE document_id = $1 ORDER BY order_index`, s.table("sections")), id)
	if err != nil {
		return kitabi.Record{}, fmt.Errorf("postgres: get sections: %w", err)
	}
	rec.Sections, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (kitabi.Section, error) {
		var sec kitabi.Section
		err := row.Scan(&sec.Title, &sec.Level, &sec.PageStart, &sec.PageEnd)
		return sec, err
	})
	if err != nil {
		return kitabi.Record{}, fmt.Errorf("postgres: scan sections: %w", err)
	}
	return rec, nil
}

// ListRecords returns record summaries, newest first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]kitabi.RecordSummary, error) {
	query := fmt.Sprintf(`SELECT d.id, d.name, d.page_count, d.language, d.is_scanned, d.method, d.structure_source, d.degraded, d.created_at,
		(SELECT COUNT(*) FROM %s s WHERE s.document_id = d.id)
		FROM %s d ORDER BY d.created_at DESC, d.id DESC`, s.table("sections"), s.table("documents"))
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (kitabi.RecordSummary, error) {
		var (
			r                        kitabi.RecordSummary
			language, method, source string
			sections                 int64
		)
		err := row.Scan(&r.ID, &r.Name, &r.PageCount, &language, &r.IsScanned, &method, &source, &r.Degraded, &r.CreatedAt, &sections)
		r.Language = kitabi.Language(language)
		r.Method = kitabi.ExtractionMethod(method)
		r.StructureSource = kitabi.StructureSource(source)
		r.Sections = int(sections)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan records: %w", err)
	}
	return out, nil
}

// DeleteRecord removes a record; pages and sections follow by cascade.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table("documents")), id)
	if err != nil {
		return fmt.Errorf("postgres: delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete record %s: %w", id, kitabi.ErrNotFound)
	}
	return nil
}

// Close is a no-op. The caller owns the pool.
func (s *Store) Close() error {
	return nil
}

// jsonColumns holds the audit fields as read back from JSONB.
type jsonColumns struct {
	classification, verdict, route []byte
	tocEntries, warnings           []byte
}

// encodedColumns holds the audit fields as JSON text parameters. The
// optional ones are nil when empty so they are stored as NULL.
type encodedColumns struct {
	classification, verdict, route string
	tocEntries, warnings           *string
}

func encodeColumns(rec kitabi.Record) (encodedColumns, error) {
	var c encodedColumns
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&c.classification, rec.Classification},
		{&c.verdict, rec.Verdict},
		{&c.route, rec.Route},
	} {
		b, err := json.Marshal(f.v)
		if err != nil {
			return c, fmt.Errorf("postgres: encode record: %w", err)
		}
		*f.dst = string(b)
	}
	optional := func(n int, v any) (*string, error) {
		if n == 0 {
			return nil, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("postgres: encode record: %w", err)
		}
		str := string(b)
		return &str, nil
	}
	var err error
	if c.tocEntries, err = optional(len(rec.TocEntries), rec.TocEntries); err != nil {
		return c, err
	}
	if c.warnings, err = optional(len(rec.Warnings), rec.Warnings); err != nil {
		return c, err
	}
	return c, nil
}

func (c jsonColumns) decode(rec *kitabi.Record) error {
	for _, f := range []struct {
		src []byte
		dst any
	}{
		{c.classification, &rec.Classification},
		{c.verdict, &rec.Verdict},
		{c.route, &rec.Route},
		{c.tocEntries, &rec.TocEntries},
		{c.warnings, &rec.Warnings},
	} {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return fmt.Errorf("postgres: decode record: %w", err)
		}
	}
	return nil
}
