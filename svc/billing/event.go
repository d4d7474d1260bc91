package billing

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the processor-independent webhook event type.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionDeleted  EventType = "subscription_deleted"
	EventInvoicePaymentFailed EventType = "invoice_payment_failed"
	EventInvoicePaid          EventType = "invoice_paid"
	EventIgnored              EventType = "ignored"
)

// Event is a verified, normalized webhook event.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string

	// SessionRef and SessionPaid are set for checkout completions.
	SessionRef  string
	SessionPaid bool
	// ProviderID is the provider the checkout session was opened for, when
	// the session carries it.
	ProviderID uuid.UUID

	SubscriptionRef string

	// Status is the raw processor subscription status, when the event carries one.
	Status string

	OccurredAt time.Time
}
