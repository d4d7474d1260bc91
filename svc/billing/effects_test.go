package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/svc/billing"
	"github.com/dmitrymomot/rankpay/svc/notify"
	"github.com/dmitrymomot/rankpay/svc/provider"
)

func TestNotificationFor(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s := billing.Subscription{
		ProviderID:    uuid.New(),
		MonthlyAmount: 30,
		OptionsPoints: 5,
		TotalPoints:   5,
		PaymentStatus: billing.StatusPastDue,
		Flags:         billing.Flags{BacklinkHome: true, Partner: true},
	}

	n := billing.NotificationFor(s, notify.TypeSubscriptionUpdated, at)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, s.ProviderID, n.ProviderID)
	assert.Zero(t, n.Amount, "degraded rows report no billed amount")
	assert.True(t, n.IsFree)
	assert.Equal(t, int64(5), n.TotalPoints)
	assert.True(t, n.BacklinkHome)
	assert.True(t, n.Partner)
	assert.False(t, n.BacklinkProfile)
	assert.Equal(t, at, n.Timestamp)

	s.PaymentStatus = billing.StatusCompleted
	n = billing.NotificationFor(s, notify.TypeSubscriptionConfirmed, at)
	assert.Equal(t, int64(30), n.Amount)
	assert.False(t, n.IsFree)
}

func TestDispatcher(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("validation of an unknown provider is skipped", func(t *testing.T) {
		t.Parallel()
		d := billing.NewDispatcher(provider.NewMemoryRepository(), nil, nil)

		err := d.Dispatch(ctx, billing.Subscription{ProviderID: uuid.New()}, []billing.Effect{{Kind: billing.EffectValidateProvider}})
		assert.NoError(t, err)
	})

	t.Run("best effort failures are counted", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		metrics := billing.NewMetrics(reg)

		processor := &mockProcessor{}
		processor.On("CancelSubscription", mock.Anything, "sub_1").Return(errors.New("boom")).Once()

		d := billing.NewDispatcher(provider.NewMemoryRepository(), nil, processor, billing.WithMetrics(metrics))
		err := d.Dispatch(ctx, billing.Subscription{ProviderID: uuid.New()}, []billing.Effect{
			{Kind: billing.EffectCancelProcessorSubscription, SubscriptionRef: "sub_1"},
			{Kind: billing.EffectSyncScore},
		})
		require.NoError(t, err)

		count, err := testutil.GatherAndCount(reg, "rankpay_billing_effect_failures_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		processor.AssertExpectations(t)
	})

	t.Run("notification failures never surface", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		providers := provider.NewMemoryRepository(provider.Provider{ID: id, Email: "owner@acme.test"})

		delivered := make(chan notify.Notification, 1)
		notifier := notify.NotifierFunc(func(_ context.Context, n notify.Notification) error {
			delivered <- n
			return errors.New("endpoint down")
		})

		d := billing.NewDispatcher(providers, notifier, nil)
		err := d.Dispatch(ctx, billing.Subscription{ProviderID: id}, []billing.Effect{
			{Kind: billing.EffectNotify, Notification: notify.TypeSubscriptionUpdated},
		})
		require.NoError(t, err)
		d.Wait()

		n := <-delivered
		assert.Equal(t, "owner@acme.test", n.Email)
	})
}
