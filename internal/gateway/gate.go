package gateway

import (
	"context"
	"fmt"

	"notarium/internal/note"
)

// Gate wraps load and save so that only fully materialized documents reach a
// mutation path, the advisory lock is honored, and stale-revision rejections
// surface as note.ErrConflict for the caller to act on.
type Gate struct {
	store     Gateway
	locks     *note.Registry
	user      string
	afterSave []func(context.Context, *note.Document)
}

// NewGate creates a revision gate for one local user.
func NewGate(store Gateway, locks *note.Registry, user string) *Gate {
	return &Gate{store: store, locks: locks, user: user}
}

// OnSave registers a hook run after every successful save, in registration
// order. Hooks see the document with its new revision token.
func (g *Gate) OnSave(fn func(context.Context, *note.Document)) {
	g.afterSave = append(g.afterSave, fn)
}

// User returns the local user the gate acts for.
func (g *Gate) User() string { return g.user }

// Load fetches the full document, conflicts included.
func (g *Gate) Load(ctx context.Context, id string) (*note.Document, error) {
	d, err := g.store.Get(ctx, id, GetOptions{IncludeConflicts: true})
	if err != nil {
		return nil, err
	}
	d.Stub = false
	return d, nil
}

// TryLock takes the advisory lock on id for the gate's user.
func (g *Gate) TryLock(id string) (*note.Guard, error) {
	return g.locks.TryLock(id, g.user)
}

// Save persists d. It refuses stubs, refuses documents locked by another
// user, and updates d.Rev on success.
func (g *Gate) Save(ctx context.Context, d *note.Document) error {
	if d.Stub {
		return note.ErrNotLoaded
	}
	if holder := g.locks.Holder(d.ID); holder != "" && holder != g.user {
		return fmt.Errorf("save %s held by %s: %w", d.ID, holder, note.ErrAlreadyLocked)
	}
	rev, err := g.store.Put(ctx, d)
	if err != nil {
		return fmt.Errorf("save %s: %w", d.ID, err)
	}
	d.Rev = rev
	for _, fn := range g.afterSave {
		fn(ctx, d)
	}
	return nil
}
