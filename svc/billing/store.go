package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store persists one subscription row per provider.
//
// Lookups return ErrNotFound when nothing matches. Create returns ErrConflict
// when the provider already has a row. Update returns ErrNotFound for an
// unknown id and ErrStale when patch.ExpectedVersion is set and no longer
// matches; every successful non-empty update increments the version.
type Store interface {
	Get(ctx context.Context, providerID uuid.UUID) (*Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindBySessionRef(ctx context.Context, ref string) (*Subscription, error)
	FindBySubscriptionRef(ctx context.Context, ref string) (*Subscription, error)
	Create(ctx context.Context, draft Draft) (*Subscription, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Subscription, error)
}
