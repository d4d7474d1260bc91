package billing

import (
	"time"

	"github.com/google/uuid"
)

// Status is the payment status persisted on a subscription row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPastDue    Status = "past_due"
	StatusUnpaid     Status = "unpaid"
	StatusCancelled  Status = "cancelled"
	StatusIncomplete Status = "incomplete"
	StatusExpired    Status = "expired"
)

// IsHealthy reports whether the confirmed amount counts towards the score.
func (s Status) IsHealthy() bool {
	return s == StatusCompleted
}

// IsDegraded reports whether the paid component must be stripped from the score.
func (s Status) IsDegraded() bool {
	return s.severity() > 0
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s.IsDegraded()
}

// severity orders degraded statuses so that concurrent degrade events
// converge on the same row regardless of delivery order.
func (s Status) severity() int {
	switch s {
	case StatusFailed:
		return 1
	case StatusPastDue:
		return 2
	case StatusUnpaid:
		return 3
	case StatusIncomplete:
		return 4
	case StatusExpired:
		return 5
	case StatusCancelled:
		return 6
	default:
		return 0
	}
}

// Flags is the fixed set of listing options a provider can subscribe to.
// Backlink flags are billable, the others only gate display.
type Flags struct {
	BasicListing    bool `json:"basicListing"`
	Partner         bool `json:"partner"`
	PublishPhone    bool `json:"publishPhone"`
	PublishWebsite  bool `json:"publishWebsite"`
	BacklinkHome    bool `json:"backlinkHome"`
	BacklinkProfile bool `json:"backlinkProfile"`
}

// Subscription is the single paid-ranking record of a provider.
// Zero values of the nullable columns (refs, pending amount, renewal day)
// mean "absent" and are stored as NULL.
type Subscription struct {
	ID                      uuid.UUID
	ProviderID              uuid.UUID
	MonthlyAmount           int64
	PendingMonthlyAmount    int64
	OptionsPoints           int64
	TotalPoints             int64
	PaymentStatus           Status
	ExternalSubscriptionRef string
	ExternalSessionRef      string
	RenewalDay              int
	Flags                   Flags
	Version                 int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ConfirmedAmount is the amount actually billed right now.
func (s *Subscription) ConfirmedAmount() int64 {
	if s == nil || !s.PaymentStatus.IsHealthy() {
		return 0
	}
	return s.MonthlyAmount
}

// HasPending reports whether a paid amount is awaiting processor confirmation.
func (s *Subscription) HasPending() bool {
	return s != nil && s.PendingMonthlyAmount > 0
}

// IsFree reports whether nothing is currently billed.
func (s *Subscription) IsFree() bool {
	return s.ConfirmedAmount() == 0
}

// Draft holds the fields of a subscription row about to be created.
type Draft struct {
	ProviderID           uuid.UUID
	MonthlyAmount        int64
	PendingMonthlyAmount int64
	OptionsPoints        int64
	TotalPoints          int64
	PaymentStatus        Status
	ExternalSessionRef   string
	Flags                Flags
}

// Patch is a partial update. Nil fields are left untouched; a pointer to a
// zero value clears a nullable column. A non-zero ExpectedVersion makes the
// update conditional on the row's current version.
type Patch struct {
	MonthlyAmount           *int64
	PendingMonthlyAmount    *int64
	OptionsPoints           *int64
	TotalPoints             *int64
	PaymentStatus           *Status
	ExternalSubscriptionRef *string
	ExternalSessionRef      *string
	RenewalDay              *int
	Flags                   *Flags

	ExpectedVersion int64
}

// IsEmpty reports whether the patch touches no column.
func (p Patch) IsEmpty() bool {
	return p.MonthlyAmount == nil &&
		p.PendingMonthlyAmount == nil &&
		p.OptionsPoints == nil &&
		p.TotalPoints == nil &&
		p.PaymentStatus == nil &&
		p.ExternalSubscriptionRef == nil &&
		p.ExternalSessionRef == nil &&
		p.RenewalDay == nil &&
		p.Flags == nil
}

// Apply returns a copy of s with the patch applied. Version and timestamps
// are maintained by the store, not here.
func (p Patch) Apply(s Subscription) Subscription {
	if p.MonthlyAmount != nil {
		s.MonthlyAmount = *p.MonthlyAmount
	}
	if p.PendingMonthlyAmount != nil {
		s.PendingMonthlyAmount = *p.PendingMonthlyAmount
	}
	if p.OptionsPoints != nil {
		s.OptionsPoints = *p.OptionsPoints
	}
	if p.TotalPoints != nil {
		s.TotalPoints = *p.TotalPoints
	}
	if p.PaymentStatus != nil {
		s.PaymentStatus = *p.PaymentStatus
	}
	if p.ExternalSubscriptionRef != nil {
		s.ExternalSubscriptionRef = *p.ExternalSubscriptionRef
	}
	if p.ExternalSessionRef != nil {
		s.ExternalSessionRef = *p.ExternalSessionRef
	}
	if p.RenewalDay != nil {
		s.RenewalDay = *p.RenewalDay
	}
	if p.Flags != nil {
		s.Flags = *p.Flags
	}
	return s
}

// Diff drops the fields that already hold the patched value in s, so that
// re-applying an outcome to a row that already reflects it is a no-op.
func (p Patch) Diff(s Subscription) Patch {
	out := Patch{ExpectedVersion: p.ExpectedVersion}
	if p.MonthlyAmount != nil && *p.MonthlyAmount != s.MonthlyAmount {
		out.MonthlyAmount = p.MonthlyAmount
	}
	if p.PendingMonthlyAmount != nil && *p.PendingMonthlyAmount != s.PendingMonthlyAmount {
		out.PendingMonthlyAmount = p.PendingMonthlyAmount
	}
	if p.OptionsPoints != nil && *p.OptionsPoints != s.OptionsPoints {
		out.OptionsPoints = p.OptionsPoints
	}
	if p.TotalPoints != nil && *p.TotalPoints != s.TotalPoints {
		out.TotalPoints = p.TotalPoints
	}
	if p.PaymentStatus != nil && *p.PaymentStatus != s.PaymentStatus {
		out.PaymentStatus = p.PaymentStatus
	}
	if p.ExternalSubscriptionRef != nil && *p.ExternalSubscriptionRef != s.ExternalSubscriptionRef {
		out.ExternalSubscriptionRef = p.ExternalSubscriptionRef
	}
	if p.ExternalSessionRef != nil && *p.ExternalSessionRef != s.ExternalSessionRef {
		out.ExternalSessionRef = p.ExternalSessionRef
	}
	if p.RenewalDay != nil && *p.RenewalDay != s.RenewalDay {
		out.RenewalDay = p.RenewalDay
	}
	if p.Flags != nil && *p.Flags != s.Flags {
		out.Flags = p.Flags
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
