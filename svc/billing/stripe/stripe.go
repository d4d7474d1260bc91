package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

// Name is the processor identifier used in webhook routes.
const Name = "stripe"

// Processor implements billing.Processor on top of the Stripe API.
type Processor struct {
	api    *client.API
	config Config
}

// Option configures the Stripe processor.
type Option func(*options)

type options struct {
	backends *stripeapi.Backends
}

// WithBackends routes API calls through custom backends, for tests.
func WithBackends(b *stripeapi.Backends) Option {
	return func(o *options) {
		o.backends = b
	}
}

// New creates a Stripe processor.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Paid ranking"
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Processor{
		api:    client.New(cfg.SecretKey, o.backends),
		config: cfg,
	}, nil
}

func (p *Processor) Name() string { return Name }

// CreateCheckoutSession opens a subscription-mode Checkout Session with an
// inline monthly price. The provider id travels as client reference and
// metadata on both the session and the subscription.
func (p *Processor) CreateCheckoutSession(ctx context.Context, req billing.SessionRequest) (*billing.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: checkout amount must be positive", billing.ErrInvalidRequest)
	}

	priceData := &stripeapi.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripeapi.String(p.config.Currency),
		UnitAmount: stripeapi.Int64(minorUnits(req.Amount)),
		Recurring: &stripeapi.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripeapi.String(string(stripeapi.PriceRecurringIntervalMonth)),
		},
	}
	if p.config.ProductID != "" {
		priceData.Product = stripeapi.String(p.config.ProductID)
	} else {
		priceData.ProductData = &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(p.config.ProductName),
		}
	}

	providerID := req.ProviderID.String()
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		SuccessURL:        stripeapi.String(req.SuccessURL),
		CancelURL:         stripeapi.String(req.CancelURL),
		ClientReferenceID: stripeapi.String(providerID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			PriceData: priceData,
			Quantity:  stripeapi.Int64(1),
		}},
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"provider_id": providerID},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripeapi.String(req.Email)
	}
	params.AddMetadata("provider_id", providerID)
	params.Context = ctx

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, external("create checkout session", err)
	}
	return &billing.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (p *Processor) CreatePrice(ctx context.Context, amount int64) (string, error) {
	params := &stripeapi.PriceParams{
		Currency:   stripeapi.String(p.config.Currency),
		UnitAmount: stripeapi.Int64(minorUnits(amount)),
		Recurring: &stripeapi.PriceRecurringParams{
			Interval: stripeapi.String(string(stripeapi.PriceRecurringIntervalMonth)),
		},
	}
	if p.config.ProductID != "" {
		params.Product = stripeapi.String(p.config.ProductID)
	} else {
		params.ProductData = &stripeapi.PriceProductDataParams{
			Name: stripeapi.String(p.config.ProductName),
		}
	}
	params.Context = ctx

	price, err := p.api.Prices.New(params)
	if err != nil {
		return "", external("create price", err)
	}
	return price.ID, nil
}

// UpdateSubscriptionPrice swaps the price of the subscription's first item
// and lets Stripe prorate the difference.
func (p *Processor) UpdateSubscriptionPrice(ctx context.Context, subscriptionRef, priceRef string) error {
	sub, err := p.get(ctx, subscriptionRef)
	if err != nil {
		return err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return external("update subscription", fmt.Errorf("subscription %s has no items", subscriptionRef))
	}

	params := &stripeapi.SubscriptionParams{
		Items: []*stripeapi.SubscriptionItemsParams{{
			ID:    stripeapi.String(sub.Items.Data[0].ID),
			Price: stripeapi.String(priceRef),
		}},
		ProrationBehavior: stripeapi.String("create_prorations"),
	}
	params.Context = ctx

	if _, err := p.api.Subscriptions.Update(subscriptionRef, params); err != nil {
		return external("update subscription", err)
	}
	return nil
}

func (p *Processor) GetSubscription(ctx context.Context, subscriptionRef string) (*billing.ProcessorSubscription, error) {
	sub, err := p.get(ctx, subscriptionRef)
	if err != nil {
		return nil, err
	}

	out := &billing.ProcessorSubscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.CurrentPeriodEnd > 0 {
				out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
				break
			}
		}
	}
	return out, nil
}

func (p *Processor) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	params := &stripeapi.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := p.api.Subscriptions.Cancel(subscriptionRef, params); err != nil {
		var serr *stripeapi.Error
		if errors.As(err, &serr) && serr.Code == stripeapi.ErrorCodeResourceMissing {
			return nil
		}
		return external("cancel subscription", err)
	}
	return nil
}

func (p *Processor) get(ctx context.Context, subscriptionRef string) (*stripeapi.Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Get(subscriptionRef, params)
	if err != nil {
		return nil, external("retrieve subscription", err)
	}
	return sub, nil
}

// minorUnits converts whole currency units to the smallest currency unit.
func minorUnits(amount int64) int64 {
	return amount * 100
}

func external(op string, err error) error {
	return errors.Join(billing.ErrExternalService, fmt.Errorf("stripe %s: %w", op, err))
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}
