package billing

import (
	"github.com/dmitrymomot/rankpay/svc/notify"
)

// EffectKind names a side effect requested by a transition.
type EffectKind string

const (
	EffectNotify                      EffectKind = "notify"
	EffectValidateProvider            EffectKind = "validate_provider"
	EffectSyncScore                   EffectKind = "sync_score"
	EffectCancelProcessorSubscription EffectKind = "cancel_processor_subscription"
)

// Effect is a side effect executed by the Dispatcher after the row is written.
// Notify and score effects read the persisted row, so they carry no values.
type Effect struct {
	Kind            EffectKind
	Notification    notify.Type
	SubscriptionRef string
}

func notifyEffect(t notify.Type) Effect {
	return Effect{Kind: EffectNotify, Notification: t}
}

func cancelEffect(ref string) Effect {
	return Effect{Kind: EffectCancelProcessorSubscription, SubscriptionRef: ref}
}

var (
	validateEffect  = Effect{Kind: EffectValidateProvider}
	syncScoreEffect = Effect{Kind: EffectSyncScore}
)

// Outcome is the result of a pure transition: the row update and the effects
// to run once it is persisted. An empty patch means no write.
type Outcome struct {
	Patch   Patch
	Effects []Effect
}

// IsNoop reports whether the outcome neither writes nor triggers anything.
func (o Outcome) IsNoop() bool {
	return o.Patch.IsEmpty() && len(o.Effects) == 0
}

// Confirmation is a paid checkout reported by the processor.
type Confirmation struct {
	SessionRef      string
	SubscriptionRef string
	RenewalDay      int
}

// ConfirmCheckout moves the pending amount of the row opened by c.SessionRef
// into the confirmed amount. It is the only transition that produces a
// completed row with a non-zero amount, and the only one that validates the
// provider. A row already confirmed for c.SubscriptionRef only re-validates.
func ConfirmCheckout(s Subscription, c Confirmation) Outcome {
	if c.SessionRef != "" && s.ExternalSessionRef == c.SessionRef && s.PendingMonthlyAmount > 0 {
		amount := s.PendingMonthlyAmount
		p := Patch{
			MonthlyAmount:           ptr(amount),
			TotalPoints:             ptr(TotalPoints(s.OptionsPoints, amount, StatusCompleted)),
			PaymentStatus:           ptr(StatusCompleted),
			ExternalSubscriptionRef: ptr(c.SubscriptionRef),
			ExternalSessionRef:      ptr(""),
			PendingMonthlyAmount:    ptr(int64(0)),
			RenewalDay:              ptr(c.RenewalDay),
			ExpectedVersion:         s.Version,
		}
		effects := []Effect{validateEffect, syncScoreEffect, notifyEffect(notify.TypeSubscriptionConfirmed)}
		if old := s.ExternalSubscriptionRef; old != "" && old != c.SubscriptionRef {
			effects = append(effects, cancelEffect(old))
		}
		return Outcome{Patch: p, Effects: effects}
	}

	if c.SubscriptionRef != "" && s.ExternalSubscriptionRef == c.SubscriptionRef && s.PaymentStatus.IsHealthy() && s.MonthlyAmount > 0 {
		return Outcome{Effects: []Effect{validateEffect}}
	}
	return Outcome{}
}

// Refresh re-announces the confirmed values of a healthy processor subscription.
func Refresh(Subscription) Outcome {
	return Outcome{Effects: []Effect{notifyEffect(notify.TypeSubscriptionUpdated)}}
}

// Recover restores the paid component of a degraded row whose processor
// subscription is healthy again.
func Recover(s Subscription) Outcome {
	if !s.PaymentStatus.IsDegraded() {
		return Refresh(s)
	}
	return Outcome{
		Patch: Patch{
			PaymentStatus:   ptr(StatusCompleted),
			TotalPoints:     ptr(TotalPoints(s.OptionsPoints, s.MonthlyAmount, StatusCompleted)),
			ExpectedVersion: s.Version,
		},
		Effects: []Effect{syncScoreEffect, notifyEffect(notify.TypeSubscriptionUpdated)},
	}
}

// Degrade strips the paid component from the score. The confirmed amount is
// kept. When the row is already degraded the more severe status wins, so any
// delivery order of degrade events converges on the same row.
func Degrade(s Subscription, status Status) Outcome {
	if !status.IsDegraded() {
		return Outcome{}
	}
	target := status
	if s.PaymentStatus.severity() > target.severity() {
		target = s.PaymentStatus
	}
	return Outcome{
		Patch: Patch{
			PaymentStatus:   ptr(target),
			TotalPoints:     ptr(s.OptionsPoints),
			ExpectedVersion: s.Version,
		},
		Effects: []Effect{syncScoreEffect},
	}
}

// FailPayment degrades the row after a failed invoice. The processor's own
// dunning decides whether the subscription is eventually cancelled.
func FailPayment(s Subscription) Outcome {
	return Degrade(s, StatusFailed)
}

// CancelSubscription terminates the paid subscription after the processor
// deleted it. A checkout opened for a new subscription stays in flight.
func CancelSubscription(s Subscription) Outcome {
	p := Patch{
		MonthlyAmount:           ptr(int64(0)),
		PaymentStatus:           ptr(StatusCancelled),
		TotalPoints:             ptr(s.OptionsPoints),
		ExternalSubscriptionRef: ptr(""),
		RenewalDay:              ptr(0),
		ExpectedVersion:         s.Version,
	}
	if !s.HasPending() {
		p.ExternalSessionRef = ptr("")
	}
	return Outcome{
		Patch:   p,
		Effects: []Effect{syncScoreEffect, notifyEffect(notify.TypeSubscriptionCancelled)},
	}
}
