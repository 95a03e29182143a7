package server

import (
	"fmt"
	"sync"

	"github.com/rezonia/invoice-builder/internal/invoice"
)

// draftRegistry holds the in-flight invoice drafts of one server
// instance. Drafts live in memory only until explicitly saved.
type draftRegistry struct {
	mu     sync.RWMutex
	drafts map[string]*invoice.Store
	nextID int64
}

func newDraftRegistry() *draftRegistry {
	return &draftRegistry{drafts: make(map[string]*invoice.Store)}
}

func (r *draftRegistry) create() (string, *invoice.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("draft-%d", r.nextID)
	store := invoice.NewStore()
	r.drafts[id] = store
	return id, store
}

func (r *draftRegistry) get(id string) (*invoice.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.drafts[id]
	return store, ok
}
