package billing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/svc/billing"
	"github.com/dmitrymomot/rankpay/svc/notify"
)

// Scenario A.
func TestCheckout_CreateFree(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	res, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     0,
		Flags:      billing.Flags{BacklinkHome: true},
	})
	require.NoError(t, err)
	assert.Equal(t, successURL, res.URL)
	assert.Equal(t, billing.CaseCreateFree, res.Case)
	assert.False(t, res.Deferred)

	row := h.row(t)
	assert.Zero(t, row.MonthlyAmount)
	assert.Equal(t, int64(5), row.OptionsPoints)
	assert.Equal(t, int64(5), row.TotalPoints)
	assert.Equal(t, billing.StatusCompleted, row.PaymentStatus)
	assert.Empty(t, row.ExternalSubscriptionRef)
	assert.Empty(t, row.ExternalSessionRef)

	h.dispatcher.Wait()
	assert.Equal(t, []notify.Type{notify.TypeSubscriptionUpdated}, h.outbox.types())
	assert.Equal(t, int64(5), h.provider(t).AutoScore)
	assert.False(t, h.provider(t).Validated, "free subscriptions never validate")
	h.processor.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

// Scenario B.
func TestCheckout_CreatePending(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.processor.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req billing.SessionRequest) bool {
		return req.ProviderID == h.providerID &&
			req.Amount == 20 &&
			req.Email == "owner@acme.test" &&
			req.SuccessURL == successURL &&
			req.CancelURL == "https://rankpay.test/pricing"
	})).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil).Once()

	res, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     20,
		CancelURL:  "https://rankpay.test/pricing",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", res.URL)
	assert.True(t, res.Deferred)

	row := h.row(t)
	assert.Equal(t, billing.StatusPending, row.PaymentStatus)
	assert.Equal(t, int64(20), row.PendingMonthlyAmount)
	assert.Zero(t, row.MonthlyAmount)
	assert.Equal(t, "cs_1", row.ExternalSessionRef)
	assert.True(t, billing.CheckInvariant(*row))

	h.dispatcher.Wait()
	assert.Empty(t, h.outbox.types(), "deferred checkouts do not notify")
	assert.False(t, h.provider(t).Validated)
	h.processor.AssertExpectations(t)
}

func TestCheckout_ProcessorFailureLeavesNoPendingRow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.processor.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: h.providerID, Amount: 20})
	require.ErrorIs(t, err, billing.ErrExternalService)

	_, err = h.store.Get(context.Background(), h.providerID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestCheckout_UpgradeFromFree(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	flags := billing.Flags{BacklinkHome: true}
	h.seed(t, billing.Patch{OptionsPoints: ptr(int64(5)), TotalPoints: ptr(int64(5)), Flags: &flags})

	h.processor.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&billing.CheckoutSession{ID: "cs_7", URL: "https://pay.test/cs_7"}, nil).Once()

	res, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     40,
		Flags:      billing.Flags{BacklinkHome: true, BacklinkProfile: true},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.CaseUpgradePending, res.Case)

	row := h.row(t)
	assert.Equal(t, billing.StatusCompleted, row.PaymentStatus)
	assert.Zero(t, row.MonthlyAmount)
	assert.Equal(t, int64(40), row.PendingMonthlyAmount)
	assert.Equal(t, int64(10), row.TotalPoints)
	assert.Equal(t, "cs_7", row.ExternalSessionRef)

	h.dispatcher.Wait()
	assert.Empty(t, h.outbox.types())
	assert.False(t, h.provider(t).Validated)
}

func TestCheckout_ChangeAmount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.paidRow(t, 30, "sub_1")

	h.processor.On("CreatePrice", mock.Anything, int64(50)).Return("price_50", nil).Once()
	h.processor.On("UpdateSubscriptionPrice", mock.Anything, "sub_1", "price_50").Return(nil).Once()

	res, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     50,
		Flags:      billing.Flags{BacklinkHome: true},
	})
	require.NoError(t, err)
	assert.Equal(t, successURL, res.URL)
	assert.Equal(t, billing.CaseChangeAmount, res.Case)

	row := h.row(t)
	assert.Equal(t, int64(50), row.MonthlyAmount)
	assert.Equal(t, int64(55), row.TotalPoints)
	assert.Equal(t, billing.StatusCompleted, row.PaymentStatus)
	assert.Equal(t, "sub_1", row.ExternalSubscriptionRef)

	h.dispatcher.Wait()
	assert.Equal(t, []notify.Type{notify.TypeSubscriptionUpdated}, h.outbox.types())
	h.processor.AssertExpectations(t)
}

func TestCheckout_SameAmountOnlyUpdatesFlags(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.paidRow(t, 30, "sub_1")

	_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     30,
		Flags:      billing.Flags{BacklinkHome: true, BacklinkProfile: true},
	})
	require.NoError(t, err)

	row := h.row(t)
	assert.Equal(t, int64(30), row.MonthlyAmount)
	assert.Equal(t, int64(40), row.TotalPoints)
	h.processor.AssertNotCalled(t, "CreatePrice", mock.Anything, mock.Anything)
}

// flakyStore fails the first n updates with a persistence error.
type flakyStore struct {
	*billing.MemoryStore
	failures atomic.Int32
}

func (s *flakyStore) Update(ctx context.Context, id uuid.UUID, p billing.Patch) (*billing.Subscription, error) {
	if s.failures.Add(-1) >= 0 {
		return nil, billing.ErrPersistence
	}
	return s.MemoryStore.Update(ctx, id, p)
}

func TestCheckout_ChangeAmountRetriesStoreWrite(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.paidRow(t, 30, "sub_1")

	store := &flakyStore{MemoryStore: h.store}
	store.failures.Store(2)
	orchestrator := billing.NewOrchestrator(store, h.providers, h.processor, h.dispatcher,
		billing.WithConfig(billing.Config{
			SuccessURL:         successURL,
			StoreRetryAttempts: 3,
			StoreRetryInterval: time.Millisecond,
		}),
	)

	h.processor.On("CreatePrice", mock.Anything, int64(45)).Return("price_45", nil).Once()
	h.processor.On("UpdateSubscriptionPrice", mock.Anything, "sub_1", "price_45").Return(nil).Once()

	_, err := orchestrator.Checkout(context.Background(), billing.CheckoutRequest{
		ProviderID: h.providerID,
		Amount:     45,
		Flags:      billing.Flags{BacklinkHome: true},
	})
	require.NoError(t, err)

	row := h.row(t)
	assert.Equal(t, int64(45), row.MonthlyAmount)
	assert.Equal(t, int64(50), row.TotalPoints)
	h.processor.AssertExpectations(t)
	h.processor.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
}

func TestCheckout_ChangeAmountProcessorFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	before := h.paidRow(t, 30, "sub_1")

	h.processor.On("CreatePrice", mock.Anything, int64(50)).Return("", errors.New("rate limited")).Once()

	_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: h.providerID, Amount: 50})
	require.ErrorIs(t, err, billing.ErrExternalService)

	after := h.row(t)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, int64(30), after.MonthlyAmount)
}

// Scenario E.
func TestCheckout_Downgrade(t *testing.T) {
	t.Parallel()

	for _, cancelErr := range []error{nil, errors.New("processor unavailable")} {
		h := newHarness(t)
		h.paidRow(t, 30, "sub_1")
		h.processor.On("CancelSubscription", mock.Anything, "sub_1").Return(cancelErr).Once()

		res, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{
			ProviderID: h.providerID,
			Amount:     0,
			Flags:      billing.Flags{BacklinkHome: true},
		})
		require.NoError(t, err)
		assert.Equal(t, billing.CaseDowngrade, res.Case)

		row := h.row(t)
		assert.Zero(t, row.MonthlyAmount)
		assert.Equal(t, billing.StatusCompleted, row.PaymentStatus)
		assert.Equal(t, row.OptionsPoints, row.TotalPoints)
		assert.Empty(t, row.ExternalSubscriptionRef)
		assert.Empty(t, row.ExternalSessionRef)
		assert.Zero(t, row.RenewalDay)

		h.dispatcher.Wait()
		assert.Equal(t, []notify.Type{notify.TypeSubscriptionUpdated}, h.outbox.types())
		h.processor.AssertExpectations(t)
	}
}

func TestCheckout_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: uuid.New()})
		assert.ErrorIs(t, err, billing.ErrProviderNotFound)
	})

	t.Run("missing provider id", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{})
		assert.ErrorIs(t, err, billing.ErrInvalidRequest)
	})

	t.Run("paid row without processor reference", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.paidRow(t, 30, "")

		_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: h.providerID, Amount: 50})
		assert.ErrorIs(t, err, billing.ErrInvariantViolation)
	})

	t.Run("session without url", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.processor.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&billing.CheckoutSession{ID: "cs_1"}, nil).Once()

		_, err := h.checkout.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: h.providerID, Amount: 20})
		assert.ErrorIs(t, err, billing.ErrNoCheckoutURL)

		_, err = h.store.Get(context.Background(), h.providerID)
		assert.ErrorIs(t, err, billing.ErrNotFound)
	})
}

// racingStore lets a processor event land between the checkout's read and its
// first write, then reports the write as stale.
type racingStore struct {
	*billing.MemoryStore
	race  func(ctx context.Context) error
	raced atomic.Bool
}

func (s *racingStore) Update(ctx context.Context, id uuid.UUID, p billing.Patch) (*billing.Subscription, error) {
	if s.raced.CompareAndSwap(false, true) {
		if err := s.race(ctx); err != nil {
			return nil, err
		}
		return nil, billing.ErrStale
	}
	return s.MemoryStore.Update(ctx, id, p)
}

func (h *harness) racingOrchestrator(race func(ctx context.Context) error) *billing.Orchestrator {
	store := &racingStore{MemoryStore: h.store, race: race}
	return billing.NewOrchestrator(store, h.providers, h.processor, h.dispatcher,
		billing.WithConfig(billing.Config{
			SuccessURL:         successURL,
			StoreRetryAttempts: 3,
			StoreRetryInterval: time.Millisecond,
		}),
	)
}

func TestCheckout_ChangeAmountAbandonedAfterConcurrentEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  billing.Event
		status billing.Status
		amount int64
		ref    string
	}{
		{
			name:   "subscription deleted",
			event:  billing.Event{ID: "evt_del", Type: billing.EventSubscriptionDeleted, SubscriptionRef: "sub_1"},
			status: billing.StatusCancelled,
			amount: 0,
			ref:    "",
		},
		{
			name:   "payment failed",
			event:  billing.Event{ID: "evt_fail", Type: billing.EventInvoicePaymentFailed, SubscriptionRef: "sub_1"},
			status: billing.StatusFailed,
			amount: 30,
			ref:    "sub_1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.paidRow(t, 30, "sub_1")

			h.processor.On("CreatePrice", mock.Anything, int64(50)).Return("price_50", nil).Once()
			h.processor.On("UpdateSubscriptionPrice", mock.Anything, "sub_1", "price_50").Return(nil).Once()

			ev := tt.event
			orchestrator := h.racingOrchestrator(func(ctx context.Context) error {
				return h.reconciler.Handle(ctx, &ev)
			})

			_, err := orchestrator.Checkout(context.Background(), billing.CheckoutRequest{
				ProviderID: h.providerID,
				Amount:     50,
				Flags:      billing.Flags{BacklinkHome: true},
			})
			require.ErrorIs(t, err, billing.ErrStale)
			assert.ErrorIs(t, err, billing.ErrInvariantViolation)

			row := h.row(t)
			assert.Equal(t, tt.status, row.PaymentStatus)
			assert.Equal(t, tt.amount, row.MonthlyAmount)
			assert.Equal(t, tt.ref, row.ExternalSubscriptionRef)
			assert.Equal(t, int64(5), row.TotalPoints, "the concurrent event's score is kept")
			assert.True(t, billing.CheckInvariant(*row))

			h.dispatcher.Wait()
			h.processor.AssertExpectations(t)
		})
	}
}

func TestCheckout_UpdateFreeAbandonedAfterConfirmation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seed(t, billing.Patch{
		PaymentStatus:        ptr(billing.StatusPending),
		PendingMonthlyAmount: ptr(int64(20)),
		ExternalSessionRef:   ptr("cs_1"),
	})
	h.processor.On("GetSubscription", mock.Anything, "sub_1").
		Return(&billing.ProcessorSubscription{ID: "sub_1", Status: "active"}, nil).Once()

	orchestrator := h.racingOrchestrator(func(ctx context.Context) error {
		return h.reconciler.Handle(ctx, &billing.Event{
			ID:              "evt_1",
			Type:            billing.EventCheckoutCompleted,
			SessionRef:      "cs_1",
			SessionPaid:     true,
			SubscriptionRef: "sub_1",
		})
	})

	_, err := orchestrator.Checkout(context.Background(), billing.CheckoutRequest{ProviderID: h.providerID, Amount: 0})
	require.ErrorIs(t, err, billing.ErrStale)

	row := h.row(t)
	assert.Equal(t, billing.StatusCompleted, row.PaymentStatus)
	assert.Equal(t, int64(20), row.MonthlyAmount)
	assert.Equal(t, "sub_1", row.ExternalSubscriptionRef, "the confirmed subscription is not detached without cancelling it")

	h.dispatcher.Wait()
	h.processor.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
}
