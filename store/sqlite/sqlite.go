// Package sqlite implements kitabi.Store using pure-Go SQLite. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nevindra/kitabi"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements kitabi.Store backed by a local SQLite file. A record is
// split over three tables: documents (metadata and JSON audit columns),
// pages (one row of text per page) and sections.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ kitabi.Store = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			page_count INTEGER NOT NULL,
			language TEXT NOT NULL,
			is_scanned INTEGER NOT NULL,
			method TEXT NOT NULL,
			structure_source TEXT NOT NULL,
			degraded INTEGER NOT NULL,
			classification TEXT NOT NULL,
			verdict TEXT NOT NULL,
			route TEXT NOT NULL,
			toc_entries TEXT,
			warnings TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			char_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			PRIMARY KEY (document_id, page_index)
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			order_index INTEGER NOT NULL,
			title TEXT NOT NULL,
			level INTEGER NOT NULL,
			page_start INTEGER NOT NULL,
			page_end INTEGER NOT NULL,
			PRIMARY KEY (document_id, order_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// SaveRecord writes rec with its pages and sections in one transaction,
// replacing any record with the same ID.
func (s *Store) SaveRecord(ctx context.Context, rec kitabi.Record) error {
	start := time.Now()
	pages := rec.Extraction.Pages()
	s.logger.Debug("sqlite: save record", "id", rec.ID, "pages", len(pages), "sections", len(rec.Sections))

	cols, err := encodeColumns(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Clear children explicitly; REPLACE does not fire ON DELETE CASCADE
	// unless recursive triggers are on.
	for _, q := range []string{`DELETE FROM pages WHERE document_id = ?`, `DELETE FROM sections WHERE document_id = ?`} {
		if _, err := tx.ExecContext(ctx, q, rec.ID); err != nil {
			return fmt.Errorf("clear record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, name, page_count, language, is_scanned, method, structure_source, degraded, classification, verdict, route, toc_entries, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.PageCount, string(rec.Language), boolToInt(rec.Classification.IsScanned),
		string(rec.Extraction.Method), string(rec.StructureSource), boolToInt(rec.Degraded),
		cols.classification, cols.verdict, cols.route, cols.tocEntries, cols.warnings, rec.CreatedAt)
	if err != nil {
		s.logger.Error("sqlite: save record failed", "id", rec.ID, "error", err)
		return fmt.Errorf("insert document: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pages (document_id, page_index, content, char_count, word_count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pages: %w", err)
	}
	defer pageStmt.Close()
	for i, text := range pages {
		sample := kitabi.NewPageSample(i, text, 0)
		if _, err := pageStmt.ExecContext(ctx, rec.ID, i, text, sample.CharacterCount, sample.WordCount); err != nil {
			return fmt.Errorf("insert page %d: %w", i, err)
		}
	}

	for i, sec := range rec.Sections {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sections (document_id, order_index, title, level, page_start, page_end) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, sec.Title, sec.Level, sec.PageStart, sec.PageEnd)
		if err != nil {
			return fmt.Errorf("insert section %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: save record commit failed", "id", rec.ID, "error", err)
		return err
	}
	s.logger.Debug("sqlite: save record ok", "id", rec.ID, "duration", time.Since(start))
	return nil
}

// GetRecord loads a record by ID, reassembling its text from the pages table.
func (s *Store) GetRecord(ctx context.Context, id string) (kitabi.Record, error) {
	start := time.Now()
	s.logger.Debug("sqlite: get record", "id", id)

	var (
		rec                      kitabi.Record
		language, method, source string
		scanned, degraded        int
		cols                     jsonColumns
		tocEntries, warnings     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, page_count, language, is_scanned, method, structure_source, degraded, classification, verdict, route, toc_entries, warnings, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.PageCount, &language, &scanned, &method, &source, &degraded,
		&cols.classification, &cols.verdict, &cols.route, &tocEntries, &warnings, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return kitabi.Record{}, fmt.Errorf("get record %s: %w", id, kitabi.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("sqlite: get record failed", "id", id, "error", err, "duration", time.Since(start))
		return kitabi.Record{}, fmt.Errorf("get record: %w", err)
	}
	cols.tocEntries, cols.warnings = tocEntries.String, warnings.String
	if err := cols.decode(&rec); err != nil {
		return kitabi.Record{}, err
	}
	rec.Language = kitabi.Language(language)
	rec.StructureSource = kitabi.StructureSource(source)
	rec.Degraded = degraded != 0

	pages, err := s.pageTexts(ctx, id)
	if err != nil {
		return kitabi.Record{}, err
	}
	rec.Extraction.FullText, rec.Extraction.PageBoundaries = kitabi.AssembleText(pages)
	rec.Extraction.Method = kitabi.ExtractionMethod(method)
	rec.Extraction.Language = rec.Language
	rec.Extraction.PagesExtracted = len(pages)

	if rec.Sections, err = s.sections(ctx, id); err != nil {
		return kitabi.Record{}, err
	}
	s.logger.Debug("sqlite: get record ok", "id", id, "pages", len(pages), "duration", time.Since(start))
	return rec, nil
}

func (s *Store) pageTexts(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM pages WHERE document_id = ? ORDER BY page_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, text)
	}
	return pages, rows.Err()
}

func (s *Store) sections(ctx context.Context, id string) ([]kitabi.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, level, page_start, page_end FROM sections WHERE document_id = ? ORDER BY order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get sections: %w", err)
	}
	defer rows.Close()

	var out []kitabi.Section
	for rows.Next() {
		var sec kitabi.Section
		if err := rows.Scan(&sec.Title, &sec.Level, &sec.PageStart, &sec.PageEnd); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// ListRecords returns record summaries, newest first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]kitabi.RecordSummary, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list records", "limit", limit)

	query := `SELECT d.id, d.name, d.page_count, d.language, d.is_scanned, d.method, d.structure_source, d.degraded, d.created_at,
		(SELECT COUNT(*) FROM sections s WHERE s.document_id = d.id)
		FROM documents d ORDER BY d.created_at DESC, d.id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("sqlite: list records failed", "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []kitabi.RecordSummary
	for rows.Next() {
		var (
			r                        kitabi.RecordSummary
			language, method, source string
			scanned, degraded        int
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.PageCount, &language, &scanned, &method, &source, &degraded, &r.CreatedAt, &r.Sections); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Language = kitabi.Language(language)
		r.IsScanned = scanned != 0
		r.Method = kitabi.ExtractionMethod(method)
		r.StructureSource = kitabi.StructureSource(source)
		r.Degraded = degraded != 0
		out = append(out, r)
	}
	s.logger.Debug("sqlite: list records ok", "count", len(out), "duration", time.Since(start))
	return out, rows.Err()
}

// DeleteRecord removes a record with its pages and sections. Deleting an
// unknown ID returns ErrNotFound.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete record", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{`DELETE FROM pages WHERE document_id = ?`, `DELETE FROM sections WHERE document_id = ?`} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete record children: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete record %s: %w", id, kitabi.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete record commit failed", "id", id, "error", err)
		return err
	}
	s.logger.Debug("sqlite: delete record ok", "id", id, "duration", time.Since(start))
	return nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// jsonColumns holds the audit fields stored as JSON text.
type jsonColumns struct {
	classification, verdict, route string
	tocEntries, warnings           string
}

func encodeColumns(rec kitabi.Record) (jsonColumns, error) {
	var c jsonColumns
	for _, f := range []struct {
		dst *string
		v   any
		opt bool
	}{
		{&c.classification, rec.Classification, false},
		{&c.verdict, rec.Verdict, false},
		{&c.route, rec.Route, false},
		{&c.tocEntries, rec.TocEntries, true},
		{&c.warnings, rec.Warnings, true},
	} {
		b, err := json.Marshal(f.v)
		if err != nil {
			return jsonColumns{}, fmt.Errorf("encode record: %w", err)
		}
		if f.opt && string(b) == "null" {
			continue
		}
		*f.dst = string(b)
	}
	return c, nil
}

func (c jsonColumns) decode(rec *kitabi.Record) error {
	for _, f := range []struct {
		src string
		dst any
	}{
		{c.classification, &rec.Classification},
		{c.verdict, &rec.Verdict},
		{c.route, &rec.Route},
		{c.tocEntries, &rec.TocEntries},
		{c.warnings, &rec.Warnings},
	} {
		if strings.TrimSpace(f.src) == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
	}
	return nil
}
