package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rankpay/svc/billing"
	"github.com/dmitrymomot/rankpay/svc/notify"
)

func paidSubscription() billing.Subscription {
	return billing.Subscription{
		MonthlyAmount:           30,
		OptionsPoints:           5,
		TotalPoints:             35,
		PaymentStatus:           billing.StatusCompleted,
		ExternalSubscriptionRef: "sub_1",
		RenewalDay:              12,
		Flags:                   billing.Flags{BacklinkHome: true},
		Version:                 1,
	}
}

func effectKinds(out billing.Outcome) []billing.EffectKind {
	kinds := make([]billing.EffectKind, 0, len(out.Effects))
	for _, e := range out.Effects {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestConfirmCheckout(t *testing.T) {
	t.Parallel()

	pending := billing.Subscription{
		PendingMonthlyAmount: 20,
		OptionsPoints:        5,
		TotalPoints:          5,
		PaymentStatus:        billing.StatusPending,
		ExternalSessionRef:   "cs_1",
		Version:              2,
	}
	c := billing.Confirmation{SessionRef: "cs_1", SubscriptionRef: "sub_9", RenewalDay: 14}

	t.Run("confirms the pending amount", func(t *testing.T) {
		t.Parallel()

		out := billing.ConfirmCheckout(pending, c)
		got := out.Patch.Apply(pending)

		assert.Equal(t, int64(20), got.MonthlyAmount)
		assert.Equal(t, int64(25), got.TotalPoints)
		assert.Equal(t, billing.StatusCompleted, got.PaymentStatus)
		assert.Equal(t, "sub_9", got.ExternalSubscriptionRef)
		assert.Equal(t, 14, got.RenewalDay)
		assert.Empty(t, got.ExternalSessionRef)
		assert.Zero(t, got.PendingMonthlyAmount)
		assert.Equal(t, int64(2), out.Patch.ExpectedVersion)
		assert.Equal(t, []billing.EffectKind{billing.EffectValidateProvider, billing.EffectSyncScore, billing.EffectNotify}, effectKinds(out))
		assert.Equal(t, notify.TypeSubscriptionConfirmed, out.Effects[2].Notification)
	})

	t.Run("replacing a processor subscription cancels the old one", func(t *testing.T) {
		t.Parallel()

		degraded := pending
		degraded.PaymentStatus = billing.StatusFailed
		degraded.ExternalSubscriptionRef = "sub_old"

		out := billing.ConfirmCheckout(degraded, c)
		last := out.Effects[len(out.Effects)-1]
		assert.Equal(t, billing.EffectCancelProcessorSubscription, last.Kind)
		assert.Equal(t, "sub_old", last.SubscriptionRef)
	})

	t.Run("redelivery only revalidates", func(t *testing.T) {
		t.Parallel()

		confirmed := billing.ConfirmCheckout(pending, c).Patch.Apply(pending)
		out := billing.ConfirmCheckout(confirmed, c)

		assert.True(t, out.Patch.IsEmpty())
		assert.Equal(t, []billing.EffectKind{billing.EffectValidateProvider}, effectKinds(out))
	})

	t.Run("unknown session is ignored", func(t *testing.T) {
		t.Parallel()

		out := billing.ConfirmCheckout(pending, billing.Confirmation{SessionRef: "cs_other", SubscriptionRef: "sub_other"})
		assert.True(t, out.IsNoop())
	})
}

// Scenario D.
func TestFailPayment_KeepsConfirmedAmount(t *testing.T) {
	t.Parallel()

	s := paidSubscription()
	got := billing.FailPayment(s).Patch.Apply(s)

	assert.Equal(t, billing.StatusFailed, got.PaymentStatus)
	assert.Equal(t, int64(5), got.TotalPoints)
	assert.Equal(t, int64(30), got.MonthlyAmount)
	assert.Equal(t, "sub_1", got.ExternalSubscriptionRef)
	assert.True(t, billing.CheckInvariant(got))
}

func TestFailPayment_Idempotent(t *testing.T) {
	t.Parallel()

	s := paidSubscription()
	once := billing.FailPayment(s).Patch.Apply(s)
	twice := billing.FailPayment(once).Patch.Apply(once)

	assert.Equal(t, once, twice)
	assert.True(t, billing.FailPayment(once).Patch.Diff(once).IsEmpty())
}

func TestDegrade_OrderIndependent(t *testing.T) {
	t.Parallel()

	statuses := []billing.Status{
		billing.StatusPastDue,
		billing.StatusUnpaid,
		billing.StatusIncomplete,
		billing.StatusExpired,
		billing.StatusCancelled,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			s := paidSubscription()

			a := billing.Degrade(s, status).Patch.Apply(s)
			a = billing.FailPayment(a).Patch.Apply(a)

			b := billing.FailPayment(s).Patch.Apply(s)
			b = billing.Degrade(b, status).Patch.Apply(b)

			assert.Equal(t, a, b)
			assert.Equal(t, status, a.PaymentStatus)
			assert.Equal(t, a.OptionsPoints, a.TotalPoints)
		})
	}
}

func TestDegrade_IgnoresHealthyStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, billing.Degrade(paidSubscription(), billing.StatusCompleted).IsNoop())
}

func TestRecover(t *testing.T) {
	t.Parallel()

	s := paidSubscription()
	failed := billing.FailPayment(s).Patch.Apply(s)

	out := billing.Recover(failed)
	got := out.Patch.Apply(failed)
	assert.Equal(t, billing.StatusCompleted, got.PaymentStatus)
	assert.Equal(t, int64(35), got.TotalPoints)
	assert.Contains(t, effectKinds(out), billing.EffectSyncScore)

	healthy := billing.Recover(s)
	assert.True(t, healthy.Patch.IsEmpty())
	assert.Equal(t, []billing.EffectKind{billing.EffectNotify}, effectKinds(healthy))
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()

	t.Run("clears processor state", func(t *testing.T) {
		t.Parallel()

		s := paidSubscription()
		out := billing.CancelSubscription(s)
		got := out.Patch.Apply(s)

		assert.Equal(t, billing.StatusCancelled, got.PaymentStatus)
		assert.Zero(t, got.MonthlyAmount)
		assert.Equal(t, int64(5), got.TotalPoints)
		assert.Empty(t, got.ExternalSubscriptionRef)
		assert.Empty(t, got.ExternalSessionRef)
		assert.Zero(t, got.RenewalDay)
		assert.Equal(t, notify.TypeSubscriptionCancelled, out.Effects[len(out.Effects)-1].Notification)
		assert.True(t, billing.CancelSubscription(got).Patch.Diff(got).IsEmpty())
	})

	t.Run("keeps a checkout in flight", func(t *testing.T) {
		t.Parallel()

		s := paidSubscription()
		s.PaymentStatus = billing.StatusFailed
		s.PendingMonthlyAmount = 40
		s.ExternalSessionRef = "cs_2"

		got := billing.CancelSubscription(s).Patch.Apply(s)
		assert.Equal(t, int64(40), got.PendingMonthlyAmount)
		assert.Equal(t, "cs_2", got.ExternalSessionRef)
	})
}
