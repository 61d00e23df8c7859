package memtable

import (
	"sync"

	"github.com/google/uuid"
)

// Registry owns one Store per user session. Upload handlers populate a
// session's store, the orchestrator queries it, and session reset destroys
// it.
type Registry struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[uuid.UUID]*Store)}
}

// Store returns the session's table store, creating it on first use.
func (r *Registry) Store(sessionID uuid.UUID) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[sessionID]
	if !ok {
		store = NewStore()
		r.stores[sessionID] = store
	}
	return store
}

// Reset destroys the session's store and everything in it.
func (r *Registry) Reset(sessionID uuid.UUID) {
	r.mu.Lock()
	delete(r.stores, sessionID)
	r.mu.Unlock()
}

// Sessions returns the number of sessions holding data.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
