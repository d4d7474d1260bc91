package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. It is safe for concurrent use
// and follows the same versioning rules as the PostgreSQL store. Writes that
// leave a row with an inconsistent score fail with ErrInvariantViolation.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]Subscription
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[uuid.UUID]Subscription),
		now:  time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, providerID uuid.UUID) (*Subscription, error) {
	return m.find(func(s Subscription) bool { return s.ProviderID == providerID })
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) FindBySessionRef(_ context.Context, ref string) (*Subscription, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	return m.find(func(s Subscription) bool { return s.ExternalSessionRef == ref })
}

func (m *MemoryStore) FindBySubscriptionRef(_ context.Context, ref string) (*Subscription, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	return m.find(func(s Subscription) bool { return s.ExternalSubscriptionRef == ref })
}

func (m *MemoryStore) Create(_ context.Context, d Draft) (*Subscription, error) {
	if err := checkDraft(d); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.rows {
		if s.ProviderID == d.ProviderID {
			return nil, ErrConflict
		}
	}

	now := m.now()
	s := Subscription{
		ID:                   uuid.New(),
		ProviderID:           d.ProviderID,
		MonthlyAmount:        d.MonthlyAmount,
		PendingMonthlyAmount: d.PendingMonthlyAmount,
		OptionsPoints:        d.OptionsPoints,
		TotalPoints:          d.TotalPoints,
		PaymentStatus:        d.PaymentStatus,
		ExternalSessionRef:   d.ExternalSessionRef,
		Flags:                d.Flags,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	m.rows[s.ID] = s
	return &s, nil
}

func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, p Patch) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.IsEmpty() {
		return &s, nil
	}
	if p.ExpectedVersion != 0 && p.ExpectedVersion != s.Version {
		return nil, ErrStale
	}
	if err := checkPatch(s, p); err != nil {
		return nil, err
	}

	s = p.Apply(s)
	s.Version++
	s.UpdatedAt = m.now()
	m.rows[id] = s
	return &s, nil
}

func (m *MemoryStore) find(match func(Subscription) bool) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.rows {
		if match(s) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}
