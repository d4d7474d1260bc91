package paddle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

// Name is the processor identifier used in webhook routes.
const Name = "paddle"

// Processor implements billing.Processor for Paddle Billing.
type Processor struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   Config
}

// New creates a Paddle processor. Extra SDK options (for example a custom
// base URL) are passed to the client.
func New(config Config, opts ...paddle.Option) (*Processor, error) {
	if config.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if config.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}
	if config.ProductID == "" {
		return nil, errors.New("paddle product ID is required")
	}
	if config.Currency == "" {
		config.Currency = "EUR"
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey, opts...)
	case "production", "":
		client, err = paddle.New(config.APIKey, opts...)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Processor{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

func (p *Processor) Name() string { return Name }

// CreateCheckoutSession creates a monthly price for the amount and a draft
// transaction for it. The transaction id is the session reference; Paddle
// reports it back on transaction.completed.
func (p *Processor) CreateCheckoutSession(ctx context.Context, req billing.SessionRequest) (*billing.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: checkout amount must be positive", billing.ErrInvalidRequest)
	}

	priceID, err := p.CreatePrice(ctx, req.Amount)
	if err != nil {
		return nil, err
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"provider_id": req.ProviderID.String(),
		},
	}
	if req.Email != "" {
		transactionReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, external("create transaction", err)
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, billing.ErrNoCheckoutURL
	}

	return &billing.CheckoutSession{ID: transaction.ID, URL: *transaction.Checkout.URL}, nil
}

func (p *Processor) CreatePrice(ctx context.Context, amount int64) (string, error) {
	price, err := p.client.PricesClient.CreatePrice(ctx, &paddle.CreatePriceRequest{
		Description: fmt.Sprintf("Paid ranking %d %s/month", amount, p.config.Currency),
		ProductID:   p.config.ProductID,
		UnitPrice: paddle.Money{
			Amount:       strconv.FormatInt(amount*100, 10),
			CurrencyCode: paddle.CurrencyCode(strings.ToUpper(p.config.Currency)),
		},
		BillingCycle: &paddle.Duration{
			Interval:  paddle.IntervalMonth,
			Frequency: 1,
		},
	})
	if err != nil {
		return "", external("create price", err)
	}
	return price.ID, nil
}

// UpdateSubscriptionPrice replaces the subscription items with the new price
// and bills the prorated difference immediately.
func (p *Processor) UpdateSubscriptionPrice(ctx context.Context, subscriptionRef, priceRef string) error {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  priceRef,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       subscriptionRef,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(paddle.ProrationBillingModeProratedImmediately),
	})
	if err != nil {
		return external("update subscription", err)
	}
	return nil
}

func (p *Processor) GetSubscription(ctx context.Context, subscriptionRef string) (*billing.ProcessorSubscription, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: subscriptionRef,
	})
	if err != nil {
		return nil, external("get subscription", err)
	}

	out := &billing.ProcessorSubscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.CurrentBillingPeriod != nil {
		if end, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			out.CurrentPeriodEnd = end.UTC()
		}
	}
	return out, nil
}

func (p *Processor) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionRef,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		return external("cancel subscription", err)
	}
	return nil
}

func external(op string, err error) error {
	return errors.Join(billing.ErrExternalService, fmt.Errorf("paddle %s: %w", op, err))
}
