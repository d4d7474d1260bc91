package billing

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/rankpay/pkg/statemachine"
)

// Phase is the lifecycle position of a provider's subscription derived from its row.
type Phase = statemachine.StringState

const (
	PhaseNone      Phase = "none"
	PhasePending   Phase = "pending"
	PhaseFree      Phase = "free"
	PhasePaid      Phase = "paid"
	PhaseDegraded  Phase = "degraded"
	PhaseCancelled Phase = "cancelled"
)

// LifecycleEvent is a state-changing operation applied to a subscription.
type LifecycleEvent = statemachine.StringEvent

const (
	LifecycleCheckoutFree    LifecycleEvent = "checkout_free"
	LifecycleCheckoutPending LifecycleEvent = "checkout_pending"
	LifecycleChangeAmount    LifecycleEvent = "change_amount"
	LifecycleConfirm         LifecycleEvent = "confirm"
	LifecycleRefresh         LifecycleEvent = "refresh"
	LifecycleRecover         LifecycleEvent = "recover"
	LifecycleDegrade         LifecycleEvent = "degrade"
	LifecycleCancel          LifecycleEvent = "cancel"
)

// CheckoutEvent is the lifecycle event performed by a checkout case.
func CheckoutEvent(c Case) LifecycleEvent {
	switch c {
	case CaseCreatePending, CaseUpgradePending:
		return LifecycleCheckoutPending
	case CaseChangeAmount:
		return LifecycleChangeAmount
	default:
		return LifecycleCheckoutFree
	}
}

// PhaseOf derives the lifecycle phase of a row; nil means no subscription.
func PhaseOf(s *Subscription) Phase {
	switch {
	case s == nil:
		return PhaseNone
	case s.PaymentStatus == StatusPending:
		return PhasePending
	case s.PaymentStatus == StatusCompleted && s.MonthlyAmount > 0:
		return PhasePaid
	case s.PaymentStatus == StatusCompleted:
		return PhaseFree
	case s.PaymentStatus == StatusCancelled && s.ExternalSubscriptionRef == "":
		return PhaseCancelled
	default:
		return PhaseDegraded
	}
}

// hasProcessorSubscription lets recovery and amount changes through only for
// rows still linked to a processor subscription.
func hasProcessorSubscription(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	s, ok := data.(*Subscription)
	return ok && s != nil && s.ExternalSubscriptionRef != ""
}

var lifecycleTransitions = []statemachine.TransitionDef{
	{From: PhaseNone, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhaseNone, Event: LifecycleCheckoutPending, To: PhasePending},

	{From: PhasePending, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhasePending, Event: LifecycleCheckoutPending, To: PhasePending},
	{From: PhasePending, Event: LifecycleConfirm, To: PhasePaid},

	{From: PhaseFree, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhaseFree, Event: LifecycleCheckoutPending, To: PhaseFree},
	{From: PhaseFree, Event: LifecycleConfirm, To: PhasePaid},

	{From: PhasePaid, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhasePaid, Event: LifecycleChangeAmount, To: PhasePaid, Guards: []statemachine.Guard{hasProcessorSubscription}},
	{From: PhasePaid, Event: LifecycleConfirm, To: PhasePaid},
	{From: PhasePaid, Event: LifecycleRefresh, To: PhasePaid},
	{From: PhasePaid, Event: LifecycleDegrade, To: PhaseDegraded},
	{From: PhasePaid, Event: LifecycleCancel, To: PhaseCancelled},

	{From: PhaseDegraded, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhaseDegraded, Event: LifecycleCheckoutPending, To: PhaseDegraded},
	{From: PhaseDegraded, Event: LifecycleConfirm, To: PhasePaid},
	{From: PhaseDegraded, Event: LifecycleRefresh, To: PhaseDegraded},
	{From: PhaseDegraded, Event: LifecycleRecover, To: PhasePaid, Guards: []statemachine.Guard{hasProcessorSubscription}},
	{From: PhaseDegraded, Event: LifecycleDegrade, To: PhaseDegraded},
	{From: PhaseDegraded, Event: LifecycleCancel, To: PhaseCancelled},

	{From: PhaseCancelled, Event: LifecycleCheckoutFree, To: PhaseFree},
	{From: PhaseCancelled, Event: LifecycleCheckoutPending, To: PhaseCancelled},
	{From: PhaseCancelled, Event: LifecycleConfirm, To: PhasePaid},
	{From: PhaseCancelled, Event: LifecycleCancel, To: PhaseCancelled},
}

// Lifecycle validates lifecycle events against the allowed phase transitions.
type Lifecycle struct {
	machine *statemachine.SimpleStateMachine
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		machine: statemachine.MustNew(PhaseNone, statemachine.WithTransitions(lifecycleTransitions)),
	}
}

// Check returns the phase the row moves to under ev, or an error wrapping
// ErrInvariantViolation when the event is not allowed in the row's phase.
func (l *Lifecycle) Check(ctx context.Context, s *Subscription, ev LifecycleEvent) (Phase, error) {
	from := PhaseOf(s)
	to, err := l.machine.At(from).Target(ctx, ev, s)
	if err != nil {
		return from, fmt.Errorf("%w: %s not allowed in phase %s: %w", ErrInvariantViolation, ev, from, err)
	}
	return to.(Phase), nil
}
