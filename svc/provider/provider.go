package provider

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the listing entity that owns at most one paid-ranking subscription.
// Only Validated and AutoScore are written by billing; ManualScore belongs to
// the admin workflow and is read-only here.
type Provider struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Validated   bool
	ManualScore *int64
	AutoScore   int64
}

// Score is the ranking score shown on listings: the manual override when set,
// the automatic score otherwise.
func (p Provider) Score() int64 {
	if p.ManualScore != nil {
		return *p.ManualScore
	}
	return p.AutoScore
}

// Repository persists the billing-owned columns of a provider.
type Repository interface {
	// Get returns ErrNotFound when no provider has the given id.
	Get(ctx context.Context, id uuid.UUID) (*Provider, error)

	// MarkValidated sets the validated flag. Validating an already validated
	// provider is a no-op.
	MarkValidated(ctx context.Context, id uuid.UUID) error

	// SetAutoScore overwrites the automatic score. The manual override is never touched.
	SetAutoScore(ctx context.Context, id uuid.UUID, score int64) error
}
