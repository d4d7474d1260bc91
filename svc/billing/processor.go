package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Processor is the payment processor port. Adapters wrap the processor SDK,
// return opaque reference ids and wrap SDK failures with ErrExternalService.
type Processor interface {
	// Name is the processor identifier used in webhook routes and logs.
	Name() string

	// CreateCheckoutSession opens a hosted checkout for a recurring monthly
	// subscription of the given amount.
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error)

	// CreatePrice registers a recurring monthly price and returns its reference.
	CreatePrice(ctx context.Context, amount int64) (string, error)

	// UpdateSubscriptionPrice moves the subscription's single item to priceRef
	// with prorated billing.
	UpdateSubscriptionPrice(ctx context.Context, subscriptionRef, priceRef string) error

	// GetSubscription retrieves the current processor-side subscription.
	GetSubscription(ctx context.Context, subscriptionRef string) (*ProcessorSubscription, error)

	// CancelSubscription cancels the subscription immediately.
	CancelSubscription(ctx context.Context, subscriptionRef string) error

	// ParseEvent verifies the webhook signature carried in header and
	// normalizes the payload. Verification failures wrap ErrSignatureInvalid.
	ParseEvent(ctx context.Context, payload []byte, header http.Header) (*Event, error)
}

// SessionRequest describes a hosted checkout to open.
type SessionRequest struct {
	ProviderID uuid.UUID
	Amount     int64
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a hosted checkout opened on the processor.
type CheckoutSession struct {
	ID  string
	URL string
}

// ProcessorSubscription is the processor view of a recurring subscription.
type ProcessorSubscription struct {
	ID               string
	Status           string
	CurrentPeriodEnd time.Time
}

// RenewalDay is the day of month on which the subscription renews, or 0 when unknown.
func (p *ProcessorSubscription) RenewalDay() int {
	if p == nil || p.CurrentPeriodEnd.IsZero() {
		return 0
	}
	return p.CurrentPeriodEnd.UTC().Day()
}

// MapProcessorStatus maps a processor subscription status to a payment status.
// Healthy statuses map to completed. Unknown statuses report ok=false.
func MapProcessorStatus(status string) (Status, bool) {
	switch strings.ToLower(status) {
	case "active", "trialing":
		return StatusCompleted, true
	case "past_due":
		return StatusPastDue, true
	case "unpaid", "paused":
		return StatusUnpaid, true
	case "canceled", "cancelled":
		return StatusCancelled, true
	case "incomplete":
		return StatusIncomplete, true
	case "incomplete_expired", "expired":
		return StatusExpired, true
	default:
		return "", false
	}
}
