package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notarium/internal/note"

	_ "modernc.org/sqlite"
)

// SQLite is the local single-user gateway: one documents table holding the
// wire JSON, queried in WAL mode so a sync process can read alongside the
// editor.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and initializes the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	g := &SQLite{db: db}
	if err := g.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return g, nil
}

// Close closes the database connection.
func (g *SQLite) Close() error { return g.db.Close() }

func (g *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id             TEXT PRIMARY KEY,
		rev            TEXT NOT NULL,
		kind           TEXT NOT NULL,
		parent         TEXT NOT NULL DEFAULT '',
		deleted        INTEGER NOT NULL DEFAULT 0,
		has_back_image INTEGER NOT NULL DEFAULT 0,
		conflicts      TEXT NOT NULL DEFAULT '[]',
		body           TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);
	CREATE INDEX IF NOT EXISTS idx_documents_deleted ON documents(deleted);
	CREATE INDEX IF NOT EXISTS idx_documents_bgimage ON documents(has_back_image);
	`
	_, err := g.db.Exec(schema)
	return err
}

func (g *SQLite) Get(ctx context.Context, id string, opts GetOptions) (*note.Document, error) {
	var body, conflicts string
	err := g.db.QueryRowContext(ctx,
		`SELECT body, conflicts FROM documents WHERE id = ?`, id).Scan(&body, &conflicts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, note.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	d, err := note.DecodeWire([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if opts.IncludeConflicts && conflicts != "" && conflicts != "[]" {
		if err := json.Unmarshal([]byte(conflicts), &d.Conflicts); err != nil {
			return nil, fmt.Errorf("get %s conflicts: %w", id, err)
		}
	}
	return d, nil
}

func (g *SQLite) GetRaw(ctx context.Context, id string) ([]byte, error) {
	var body string
	err := g.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, note.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return []byte(body), nil
}

func (g *SQLite) Put(ctx context.Context, d *note.Document) (string, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rev, err := putInTx(ctx, sqliteExec{tx}, d)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return rev, nil
}

func (g *SQLite) BulkPut(ctx context.Context, docs []*note.Document) []BulkResult {
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
		rev, err := putInTx(ctx, sqliteExec{tx}, d)
		results[i] = BulkResult{ID: d.ID, Rev: rev, Err: err}
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

func (g *SQLite) QueryView(ctx context.Context, view View, opts ViewOptions) ([]*note.Document, error) {
	var where string
	switch view {
	case ViewTOC:
		where = "deleted = 0"
	case ViewDeleted:
		where = "deleted = 1"
	case ViewBGImage:
		where = "has_back_image = 1"
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
		var body, conflicts string
		if err := rows.Scan(&body, &conflicts); err != nil {
			return nil, fmt.Errorf("scan view %s: %w", view, err)
		}
		d, err := note.DecodeWire([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decode view %s row: %w", view, err)
		}
		if conflicts != "" && conflicts != "[]" {
			if err := json.Unmarshal([]byte(conflicts), &d.Conflicts); err != nil {
				return nil, fmt.Errorf("decode view %s conflicts: %w", view, err)
			}
		}
		docs = append(docs, d.StubCopy())
	}
	return docs, rows.Err()
}

func (g *SQLite) Delete(ctx context.Context, id, rev string) error {
	res, err := g.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND rev = ?`, id, rev)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		var cur string
		err := g.db.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = ?`, id).Scan(&cur)
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

// sqliteExec adapts *sql.Tx to the placeholder-agnostic executor used by
// putInTx. SQLite takes "?" placeholders.
type sqliteExec struct{ tx *sql.Tx }

func (e sqliteExec) currentRev(ctx context.Context, id string) (string, bool, error) {
	var rev string
	err := e.tx.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = ?`, id).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return rev, err == nil, err
}

func (e sqliteExec) upsert(ctx context.Context, d *note.Document, rev string, body []byte) error {
	_, err := e.tx.ExecContext(ctx, `
		INSERT INTO documents (id, rev, kind, parent, deleted, has_back_image, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rev = excluded.rev,
			kind = excluded.kind,
			parent = excluded.parent,
			deleted = excluded.deleted,
			has_back_image = excluded.has_back_image,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		d.ID, rev, string(d.Kind), d.Parent, boolInt(d.Deleted),
		boolInt(len(d.BackImage) > 0), string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}

// putInTx implements the optimistic-concurrency write shared by both
// drivers: a put whose revision does not match the stored one is a conflict.
type putExecutor interface {
	currentRev(ctx context.Context, id string) (string, bool, error)
	upsert(ctx context.Context, d *note.Document, rev string, body []byte) error
}

func putInTx(ctx context.Context, exec putExecutor, d *note.Document) (string, error) {
	if d.ID == "" {
		return "", errors.New("put: document has no id")
	}
	cur, exists, err := exec.currentRev(ctx, d.ID)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", d.ID, err)
	}
	if exists && cur != d.Rev {
		return "", &note.ConflictError{ID: d.ID, Rev: d.Rev}
	}
	if !exists && d.Rev != "" {
		return "", &note.ConflictError{ID: d.ID, Rev: d.Rev}
	}

	rev := nextRev(cur)
	prior := d.Rev
	d.Rev = rev
	body, err := note.EncodeWire(d)
	d.Rev = prior
	if err != nil {
		return "", fmt.Errorf("put %s: %w", d.ID, err)
	}
	if err := exec.upsert(ctx, d, rev, body); err != nil {
		return "", fmt.Errorf("put %s: %w", d.ID, err)
	}
	return rev, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
