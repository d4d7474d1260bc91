package billing

import (
	"fmt"

	"github.com/google/uuid"
)

// Case identifies one row of the checkout transition table.
type Case int

const (
	CaseCreateFree     Case = 1
	CaseCreatePending  Case = 2
	CaseUpdateFree     Case = 4
	CaseChangeAmount   Case = 5
	CaseDowngrade      Case = 6
	CaseUpgradePending Case = 7
)

func (c Case) String() string {
	switch c {
	case CaseCreateFree:
		return "create_free"
	case CaseCreatePending:
		return "create_pending"
	case CaseUpdateFree:
		return "update_free"
	case CaseChangeAmount:
		return "change_amount"
	case CaseDowngrade:
		return "downgrade"
	case CaseUpgradePending:
		return "upgrade_pending"
	default:
		return fmt.Sprintf("case_%d", int(c))
	}
}

// Deferred reports whether completion waits for the processor webhook.
func (c Case) Deferred() bool {
	return c == CaseCreatePending || c == CaseUpgradePending
}

// Notifies reports whether the case changes confirmed state and must notify.
func (c Case) Notifies() bool {
	return !c.Deferred()
}

// Transition is the decided checkout action.
type Transition struct {
	Case      Case
	Requested int64

	// PriceChange is false for a paid-to-paid request of the amount already
	// billed; only flags change then.
	PriceChange bool

	// SupersededRef is a processor subscription still attached to the row that
	// the transition leaves behind and that must be cancelled.
	SupersededRef string
}

// Decide selects the checkout case from the current row (nil when the provider
// has none) and the requested monthly amount. It performs no I/O.
func Decide(current *Subscription, requested int64) (Transition, error) {
	if requested < 0 {
		return Transition{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}

	t := Transition{Requested: requested}
	if current == nil {
		if requested == 0 {
			t.Case = CaseCreateFree
		} else {
			t.Case = CaseCreatePending
		}
		return t, nil
	}

	confirmed := current.ConfirmedAmount()
	switch {
	case confirmed == 0 && requested == 0:
		t.Case = CaseUpdateFree
		t.SupersededRef = current.ExternalSubscriptionRef
	case confirmed == 0:
		t.Case = CaseUpgradePending
	case requested == 0:
		t.Case = CaseDowngrade
		t.SupersededRef = current.ExternalSubscriptionRef
	default:
		if current.ExternalSubscriptionRef == "" {
			return Transition{}, fmt.Errorf("%w: paid subscription %s has no processor reference", ErrInvariantViolation, current.ID)
		}
		t.Case = CaseChangeAmount
		t.PriceChange = requested != confirmed
	}
	return t, nil
}

// Draft builds the row created by cases 1 and 2.
func (t Transition) Draft(providerID uuid.UUID, flags Flags, sessionRef string) Draft {
	options := OptionsPoints(flags)
	d := Draft{
		ProviderID:    providerID,
		OptionsPoints: options,
		TotalPoints:   options,
		PaymentStatus: StatusCompleted,
		Flags:         flags,
	}
	if t.Case == CaseCreatePending {
		d.PaymentStatus = StatusPending
		d.PendingMonthlyAmount = t.Requested
		d.ExternalSessionRef = sessionRef
	}
	return d
}

// Patch builds the update applied to an existing row for cases 4 to 7.
// The patch is conditional on the version of current.
func (t Transition) Patch(current Subscription, flags Flags, sessionRef string) Patch {
	options := OptionsPoints(flags)
	p := Patch{
		Flags:           &flags,
		OptionsPoints:   &options,
		ExpectedVersion: current.Version,
	}

	switch t.Case {
	case CaseUpgradePending:
		p.PendingMonthlyAmount = ptr(t.Requested)
		p.ExternalSessionRef = ptr(sessionRef)
		p.TotalPoints = ptr(TotalPoints(options, current.MonthlyAmount, current.PaymentStatus))
		return p
	case CaseChangeAmount:
		p.MonthlyAmount = ptr(t.Requested)
	default:
		p.MonthlyAmount = ptr(int64(0))
	}

	p.PaymentStatus = ptr(StatusCompleted)
	p.TotalPoints = ptr(TotalPoints(options, *p.MonthlyAmount, StatusCompleted))
	p.PendingMonthlyAmount = ptr(int64(0))
	p.ExternalSessionRef = ptr("")
	if t.Case == CaseDowngrade || t.SupersededRef != "" {
		p.ExternalSubscriptionRef = ptr("")
		p.RenewalDay = ptr(0)
	}
	return p
}
