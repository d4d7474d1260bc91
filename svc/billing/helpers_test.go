package billing_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/svc/billing"
	"github.com/dmitrymomot/rankpay/svc/notify"
	"github.com/dmitrymomot/rankpay/svc/provider"
)

const successURL = "https://rankpay.test/billing/success"

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Name() string { return "mock" }

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, req billing.SessionRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProcessor) CreatePrice(ctx context.Context, amount int64) (string, error) {
	args := m.Called(ctx, amount)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) UpdateSubscriptionPrice(ctx context.Context, subscriptionRef, priceRef string) error {
	args := m.Called(ctx, subscriptionRef, priceRef)
	return args.Error(0)
}

func (m *mockProcessor) GetSubscription(ctx context.Context, subscriptionRef string) (*billing.ProcessorSubscription, error) {
	args := m.Called(ctx, subscriptionRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProcessorSubscription), args.Error(1)
}

func (m *mockProcessor) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	args := m.Called(ctx, subscriptionRef)
	return args.Error(0)
}

func (m *mockProcessor) ParseEvent(ctx context.Context, payload []byte, header http.Header) (*billing.Event, error) {
	args := m.Called(ctx, payload, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

// outbox records delivered notifications.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (o *outbox) Notify(_ context.Context, n notify.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) types() []notify.Type {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]notify.Type, 0, len(o.sent))
	for _, n := range o.sent {
		out = append(out, n.Type)
	}
	return out
}

type harness struct {
	providerID uuid.UUID
	store      *billing.MemoryStore
	providers  *provider.MemoryRepository
	processor  *mockProcessor
	outbox     *outbox
	dispatcher *billing.Dispatcher
	checkout   *billing.Orchestrator
	reconciler *billing.Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		providerID: uuid.New(),
		store:      billing.NewMemoryStore(),
		processor:  &mockProcessor{},
		outbox:     &outbox{},
	}
	h.providers = provider.NewMemoryRepository(provider.Provider{
		ID:    h.providerID,
		Name:  "Acme Plumbing",
		Email: "owner@acme.test",
	})

	opts := []billing.Option{
		billing.WithConfig(billing.Config{
			SuccessURL:         successURL,
			StoreRetryAttempts: 3,
			StoreRetryInterval: time.Millisecond,
		}),
	}
	h.dispatcher = billing.NewDispatcher(h.providers, h.outbox, h.processor, opts...)
	h.checkout = billing.NewOrchestrator(h.store, h.providers, h.processor, h.dispatcher, opts...)
	h.reconciler = billing.NewReconciler(h.store, h.processor, h.dispatcher, nil, opts...)
	return h
}

// seed creates the provider's row and moves it into the state described by p.
func (h *harness) seed(t *testing.T, p billing.Patch) *billing.Subscription {
	t.Helper()
	ctx := context.Background()

	s, err := h.store.Create(ctx, billing.Draft{
		ProviderID:    h.providerID,
		PaymentStatus: billing.StatusCompleted,
	})
	require.NoError(t, err)

	s, err = h.store.Update(ctx, s.ID, p)
	require.NoError(t, err)
	return s
}

// paidRow seeds a confirmed paid subscription with one backlink option.
func (h *harness) paidRow(t *testing.T, amount int64, ref string) *billing.Subscription {
	t.Helper()
	flags := billing.Flags{BacklinkHome: true}
	return h.seed(t, billing.Patch{
		MonthlyAmount:           ptr(amount),
		OptionsPoints:           ptr(int64(5)),
		TotalPoints:             ptr(5 + amount),
		PaymentStatus:           ptr(billing.StatusCompleted),
		ExternalSubscriptionRef: ptr(ref),
		RenewalDay:              ptr(12),
		Flags:                   &flags,
	})
}

func (h *harness) row(t *testing.T) *billing.Subscription {
	t.Helper()
	s, err := h.store.Get(context.Background(), h.providerID)
	require.NoError(t, err)
	return s
}

func (h *harness) provider(t *testing.T) *provider.Provider {
	t.Helper()
	p, err := h.providers.Get(context.Background(), h.providerID)
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T {
	return &v
}
