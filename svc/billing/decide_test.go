package billing_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	free := &billing.Subscription{PaymentStatus: billing.StatusCompleted}
	paid := &billing.Subscription{PaymentStatus: billing.StatusCompleted, MonthlyAmount: 30, ExternalSubscriptionRef: "sub_1"}
	failed := &billing.Subscription{PaymentStatus: billing.StatusFailed, MonthlyAmount: 30, ExternalSubscriptionRef: "sub_1"}
	pending := &billing.Subscription{PaymentStatus: billing.StatusPending, PendingMonthlyAmount: 20, ExternalSessionRef: "cs_1"}

	tests := []struct {
		name       string
		current    *billing.Subscription
		requested  int64
		want       billing.Case
		price      bool
		superseded string
	}{
		{"no row, free", nil, 0, billing.CaseCreateFree, false, ""},
		{"no row, paid", nil, 20, billing.CaseCreatePending, false, ""},
		{"free to free", free, 0, billing.CaseUpdateFree, false, ""},
		{"free to paid", free, 20, billing.CaseUpgradePending, false, ""},
		{"paid to other amount", paid, 50, billing.CaseChangeAmount, true, ""},
		{"paid to same amount", paid, 30, billing.CaseChangeAmount, false, ""},
		{"paid to free", paid, 0, billing.CaseDowngrade, false, "sub_1"},
		{"degraded counts as unconfirmed", failed, 30, billing.CaseUpgradePending, false, ""},
		{"degraded to free drops processor subscription", failed, 0, billing.CaseUpdateFree, false, "sub_1"},
		{"pending to new amount", pending, 40, billing.CaseUpgradePending, false, ""},
		{"pending abandoned for free", pending, 0, billing.CaseUpdateFree, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := billing.Decide(tt.current, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Case)
			assert.Equal(t, tt.requested, got.Requested)
			assert.Equal(t, tt.price, got.PriceChange)
			assert.Equal(t, tt.superseded, got.SupersededRef)
		})
	}
}

func TestDecide_Errors(t *testing.T) {
	t.Parallel()

	t.Run("negative amount", func(t *testing.T) {
		t.Parallel()
		_, err := billing.Decide(nil, -1)
		assert.ErrorIs(t, err, billing.ErrInvalidRequest)
	})

	t.Run("paid to paid without processor reference", func(t *testing.T) {
		t.Parallel()
		current := &billing.Subscription{ID: uuid.New(), PaymentStatus: billing.StatusCompleted, MonthlyAmount: 30}
		_, err := billing.Decide(current, 50)
		assert.ErrorIs(t, err, billing.ErrInvariantViolation)
	})
}

func TestCase_Deferred(t *testing.T) {
	t.Parallel()

	deferred := map[billing.Case]bool{
		billing.CaseCreateFree:     false,
		billing.CaseCreatePending:  true,
		billing.CaseUpdateFree:     false,
		billing.CaseChangeAmount:   false,
		billing.CaseDowngrade:      false,
		billing.CaseUpgradePending: true,
	}
	for c, want := range deferred {
		assert.Equal(t, want, c.Deferred(), c.String())
		assert.Equal(t, !want, c.Notifies(), c.String())
	}
}

func TestTransition_Draft(t *testing.T) {
	t.Parallel()

	providerID := uuid.New()
	flags := billing.Flags{BacklinkHome: true}

	free := billing.Transition{Case: billing.CaseCreateFree}.Draft(providerID, flags, "")
	assert.Equal(t, billing.StatusCompleted, free.PaymentStatus)
	assert.Equal(t, int64(5), free.OptionsPoints)
	assert.Equal(t, int64(5), free.TotalPoints)
	assert.Empty(t, free.ExternalSessionRef)

	pending := billing.Transition{Case: billing.CaseCreatePending, Requested: 20}.Draft(providerID, flags, "cs_1")
	assert.Equal(t, billing.StatusPending, pending.PaymentStatus)
	assert.Equal(t, int64(0), pending.MonthlyAmount)
	assert.Equal(t, int64(20), pending.PendingMonthlyAmount)
	assert.Equal(t, int64(5), pending.TotalPoints)
	assert.Equal(t, "cs_1", pending.ExternalSessionRef)
}

func TestTransition_Patch(t *testing.T) {
	t.Parallel()

	flags := billing.Flags{BacklinkHome: true, BacklinkProfile: true}

	t.Run("upgrade keeps the confirmed score", func(t *testing.T) {
		t.Parallel()
		current := billing.Subscription{PaymentStatus: billing.StatusCompleted, OptionsPoints: 5, TotalPoints: 5, Version: 3}
		p := billing.Transition{Case: billing.CaseUpgradePending, Requested: 20}.Patch(current, flags, "cs_2")

		got := p.Apply(current)
		assert.Equal(t, billing.StatusCompleted, got.PaymentStatus)
		assert.Equal(t, int64(0), got.MonthlyAmount)
		assert.Equal(t, int64(20), got.PendingMonthlyAmount)
		assert.Equal(t, int64(10), got.TotalPoints)
		assert.Equal(t, "cs_2", got.ExternalSessionRef)
		assert.Equal(t, int64(3), p.ExpectedVersion)
		assert.True(t, billing.CheckInvariant(got))
	})

	t.Run("amount change confirms directly", func(t *testing.T) {
		t.Parallel()
		current := billing.Subscription{PaymentStatus: billing.StatusCompleted, MonthlyAmount: 30, OptionsPoints: 0, TotalPoints: 30, ExternalSubscriptionRef: "sub_1"}
		got := billing.Transition{Case: billing.CaseChangeAmount, Requested: 50, PriceChange: true}.Patch(current, flags, "").Apply(current)

		assert.Equal(t, int64(50), got.MonthlyAmount)
		assert.Equal(t, int64(60), got.TotalPoints)
		assert.Equal(t, "sub_1", got.ExternalSubscriptionRef)
		assert.True(t, billing.CheckInvariant(got))
	})

	t.Run("downgrade clears processor references", func(t *testing.T) {
		t.Parallel()
		current := billing.Subscription{PaymentStatus: billing.StatusCompleted, MonthlyAmount: 30, TotalPoints: 30, ExternalSubscriptionRef: "sub_1", RenewalDay: 4}
		got := billing.Transition{Case: billing.CaseDowngrade, SupersededRef: "sub_1"}.Patch(current, flags, "").Apply(current)

		assert.Equal(t, int64(0), got.MonthlyAmount)
		assert.Equal(t, int64(10), got.TotalPoints)
		assert.Empty(t, got.ExternalSubscriptionRef)
		assert.Empty(t, got.ExternalSessionRef)
		assert.Zero(t, got.RenewalDay)
		assert.True(t, billing.CheckInvariant(got))
	})
}
