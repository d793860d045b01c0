package kitabi

import "context"

// Store persists processed documents.
type Store interface {
	Init(ctx context.Context) error
	// SaveRecord writes a record with its pages and sections, replacing any
	// record with the same ID.
	SaveRecord(ctx context.Context, rec Record) error
	// GetRecord loads a record by ID. Unknown IDs return ErrNotFound.
	GetRecord(ctx context.Context, id string) (Record, error)
	// ListRecords returns summaries, newest first. limit <= 0 means no limit.
	ListRecords(ctx context.Context, limit int) ([]RecordSummary, error)
	DeleteRecord(ctx context.Context, id string) error
	Close() error
}
