package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notarium/internal/note"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the served-replica gateway, identical in semantics to the
// SQLite one but backed by a JSONB column.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, applies pool limits and ensures the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	g := &Postgres{db: db}
	if err := g.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return g, nil
}

// Close closes the connection pool.
func (g *Postgres) Close() error { return g.db.Close() }

func (g *Postgres) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id             TEXT PRIMARY KEY,
		rev            TEXT NOT NULL,
		kind           TEXT NOT NULL,
		parent         TEXT NOT NULL DEFAULT '',
		deleted        BOOLEAN NOT NULL DEFAULT FALSE,
		has_back_image BOOLEAN NOT NULL DEFAULT FALSE,
		conflicts      JSONB NOT NULL DEFAULT '[]',
		body           JSONB NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);
	CREATE INDEX IF NOT EXISTS idx_documents_deleted ON documents(deleted);
	CREATE INDEX IF NOT EXISTS idx_documents_bgimage ON documents(has_back_image);
	`
	_, err := g.db.ExecContext(ctx, schema)
	return err
}

func (g *Postgres) Get(ctx context.Context, id string, opts GetOptions) (*note.Document, error) {
	var body, conflicts []byte
	err := g.db.QueryRowContext(ctx,
		`SELECT body, conflicts FROM documents WHERE id = $1`, id).Scan(&body, &conflicts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, note.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	d, err := note.DecodeWire(body)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if opts.IncludeConflicts && len(conflicts) > 0 && string(conflicts) != "[]" {
		if err := json.Unmarshal(conflicts, &d.Conflicts); err != nil {
			return nil, fmt.Errorf("get %s conflicts: %w", id, err)
		}
	}
	return d, nil
}

func (g *Postgres) GetRaw(ctx context.Context, id string) ([]byte, error) {
	var body []byte
	err := g.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, note.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return body, nil
}

func (g *Postgres) Put(ctx context.Context, d *note.Document) (string, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rev, err := putInTx(ctx, pgExec{tx}, d)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return rev, nil
}

func (g *Postgres) BulkPut(ctx context.Context, docs []*note.Document) []BulkResult {
	results := make([]BulkResult, len(docs))
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		for i, d := range docs {
			results[i] = BulkResult{ID: d.ID, Err: fmt.Errorf("begin: %w", err)}
		}
		return results
	}
	defer tx.Rollback()

	for i, d := range docs {
		rev, err := putInTx(ctx, pgExec{tx}, d)
		results[i] = BulkResult{ID: d.ID, Rev: rev, Err: err}
		if err != nil && !errors.Is(err, note.ErrConflict) {
			// A driver error poisons the transaction; report the rest
			// as not attempted.
			for j := i + 1; j < len(docs); j++ {
				results[j] = BulkResult{ID: docs[j].ID, Err: errors.New("not attempted")}
			}
			return results
		}
	}
	if err := tx.Commit(); err != nil {
		for i := range results {
			if results[i].Err == nil {
				results[i] = BulkResult{ID: results[i].ID, Err: fmt.Errorf("commit: %w", err)}
			}
		}
	}
	return results
}

func (g *Postgres) QueryView(ctx context.Context, view View, opts ViewOptions) ([]*note.Document, error) {
	var where string
	switch view {
	case ViewTOC:
		where = "NOT deleted"
	case ViewDeleted:
		where = "deleted"
	case ViewBGImage:
		where = "has_back_image"
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
	q := `SELECT body, conflicts FROM documents WHERE ` + where + ` ORDER BY id`
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := g.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query view %s: %w", view, err)
	}
	defer rows.Close()

	var docs []*note.Document
	for rows.Next() {
		var body, conflicts []byte
		if err := rows.Scan(&body, &conflicts); err != nil {
			return nil, fmt.Errorf("scan view %s: %w", view, err)
		}
		d, err := note.DecodeWire(body)
		if err != nil {
			return nil, fmt.Errorf("decode view %s row: %w", view, err)
		}
		if len(conflicts) > 0 && string(conflicts) != "[]" {
			if err := json.Unmarshal(conflicts, &d.Conflicts); err != nil {
				return nil, fmt.Errorf("decode view %s conflicts: %w", view, err)
			}
		}
		docs = append(docs, d.StubCopy())
	}
	return docs, rows.Err()
}

func (g *Postgres) Delete(ctx context.Context, id, rev string) error {
	res, err := g.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND rev = $2`, id, rev)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		var cur string
		err := g.db.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = $1`, id).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete %s: %w", id, note.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		return &note.ConflictError{ID: id, Rev: rev}
	}
	return nil
}

type pgExec struct{ tx *sql.Tx }

func (e pgExec) currentRev(ctx context.Context, id string) (string, bool, error) {
	var rev string
	err := e.tx.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = $1`, id).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return rev, err == nil, err
}

func (e pgExec) upsert(ctx context.Context, d *note.Document, rev string, body []byte) error {
	_, err := e.tx.ExecContext(ctx, `
		INSERT INTO documents (id, rev, kind, parent, deleted, has_back_image, body, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			rev = EXCLUDED.rev,
			kind = EXCLUDED.kind,
			parent = EXCLUDED.parent,
			deleted = EXCLUDED.deleted,
			has_back_image = EXCLUDED.has_back_image,
			body = EXCLUDED.body,
			updated_at = now()`,
		d.ID, rev, string(d.Kind), d.Parent, d.Deleted, len(d.BackImage) > 0, body)
	return err
}
