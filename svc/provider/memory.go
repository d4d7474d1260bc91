package provider

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used in development and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]Provider
}

// NewMemoryRepository creates a repository seeded with the given providers.
func NewMemoryRepository(seed ...Provider) *MemoryRepository {
	r := &MemoryRepository{providers: make(map[uuid.UUID]Provider, len(seed))}
	for _, p := range seed {
		r.providers[p.ID] = p
	}
	return r
}

// Put inserts or replaces a provider.
func (r *MemoryRepository) Put(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = p
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.ManualScore != nil {
		score := *p.ManualScore
		p.ManualScore = &score
	}
	return &p, nil
}

func (r *MemoryRepository) MarkValidated(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrNotFound
	}
	p.Validated = true
	r.providers[id] = p
	return nil
}

func (r *MemoryRepository) SetAutoScore(_ context.Context, id uuid.UUID, score int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrNotFound
	}
	p.AutoScore = score
	r.providers[id] = p
	return nil
}
