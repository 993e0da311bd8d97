// Package gateway defines the persistence boundary: the Gateway interface a
// replicated document store must provide, the revision gate that all loads
// and saves go through, and SQLite and Postgres implementations.
package gateway

import (
	"context"

	"notarium/internal/note"
)

// View names a stored projection over the corpus.
type View string

const (
	// ViewTOC lists the live documents as stubs for tree display.
	ViewTOC View = "toc"
	// ViewDeleted lists soft-deleted documents for the trash view.
	ViewDeleted View = "deleted"
	// ViewBGImage lists documents carrying a background image.
	ViewBGImage View = "bgimage"
)

// GetOptions controls a single-document fetch.
type GetOptions struct {
	IncludeConflicts bool
}

// ViewOptions controls a view query.
type ViewOptions struct {
	Limit int
}

// BulkResult reports the outcome of one document in a BulkPut.
type BulkResult struct {
	ID  string
	Rev string
	Err error
}

// Gateway is the persistence interface this core consumes. Put and BulkPut
// reject stale revision tokens with note.ErrConflict; they never attempt to
// resolve a conflict.
type Gateway interface {
	Get(ctx context.Context, id string, opts GetOptions) (*note.Document, error)
	GetRaw(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, d *note.Document) (string, error)
	BulkPut(ctx context.Context, docs []*note.Document) []BulkResult
	QueryView(ctx context.Context, view View, opts ViewOptions) ([]*note.Document, error)
	Delete(ctx context.Context, id, rev string) error
	Close() error
}
