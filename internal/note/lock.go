package note

import (
	"sync"
)

// Registry tracks advisory per-document locks within one process. It is a
// safety net against accidental concurrent local mutation only: a remote
// peer can still write the same document, and the revision token on save is
// what detects that.
type Registry struct {
	mu   sync.Mutex
	held map[string]string // document id -> user id
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{held: make(map[string]string)}
}

// TryLock acquires the advisory lock on id for user. A lock already held by
// the same user is re-entered; one held by a different user yields
// ErrAlreadyLocked. The returned guard releases the lock; releasing twice is
// harmless.
func (r *Registry) TryLock(id, user string) (*Guard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, ok := r.held[id]; ok && holder != user {
		return nil, ErrAlreadyLocked
	}
	r.held[id] = user
	return &Guard{registry: r, id: id}, nil
}

// Holder returns the user currently holding the lock on id, or "".
func (r *Registry) Holder(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[id]
}

// Unlock releases the lock on id regardless of holder. It is a no-op when
// the document is not locked.
func (r *Registry) Unlock(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, id)
}

// Guard represents a held advisory lock.
type Guard struct {
	registry *Registry
	id       string
	once     sync.Once
}

// Release gives the lock back.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.registry.Unlock(g.id)
	})
}
