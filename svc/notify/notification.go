package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened to a provider's subscription.
type Type string

const (
	TypeSubscriptionUpdated   Type = "subscription_updated"
	TypeSubscriptionConfirmed Type = "subscription_confirmed"
	TypeSubscriptionCancelled Type = "subscription_cancelled"
)

// Notification describes the confirmed state of a subscription after a change.
// Flags are flattened so downstream consumers need no knowledge of billing types.
type Notification struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	ProviderID  uuid.UUID `json:"providerId"`
	Amount      int64     `json:"amount"`
	TotalPoints int64     `json:"totalPoints"`
	IsFree      bool      `json:"isFree"`
	Email       string    `json:"email,omitempty"`

	BasicListing    bool `json:"basicListing"`
	Partner         bool `json:"partner"`
	PublishPhone    bool `json:"publishPhone"`
	PublishWebsite  bool `json:"publishWebsite"`
	BacklinkHome    bool `json:"backlinkHome"`
	BacklinkProfile bool `json:"backlinkProfile"`

	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers a notification to one destination.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }
