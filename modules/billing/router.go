package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/rankpay/handler"
	"github.com/dmitrymomot/rankpay/pkg/binder"
	"github.com/dmitrymomot/rankpay/pkg/requestid"
	svc "github.com/dmitrymomot/rankpay/svc/billing"
)

// Checkouter starts or changes a provider's paid ranking.
type Checkouter interface {
	Checkout(ctx context.Context, req svc.CheckoutRequest) (*svc.CheckoutResult, error)
}

// WebhookRouter verifies and handles one processor delivery.
type WebhookRouter interface {
	Route(ctx context.Context, processor string, payload []byte, header http.Header) error
}

// RouterOptions configures the billing HTTP module. Checkout and Webhooks
// are mounted only when set.
type RouterOptions struct {
	Checkout Checkouter
	Webhooks WebhookRouter

	Logger *slog.Logger
	// Report receives 5xx failures, typically errtrack.Report.
	Report handler.Reporter
	// MaxWebhookSize bounds webhook bodies; defaults to 1MB.
	MaxWebhookSize int64
	// RequestIDHeaders are read after X-Request-ID to pick up a request ID
	// assigned upstream.
	RequestIDHeaders []string
}

// Router creates the billing module router.
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//		Checkout: orchestrator,
//		Webhooks: webhookRouter,
//		Logger:   log,
//		Report:   errtrack.Report,
//	}))
//
// Routes:
//
//	POST /checkout             {amount, providerId, subscriptionFlags, cancelUrl} -> {url}
//	POST /webhooks/{processor} raw processor payload -> {received: true}
func Router(opts RouterOptions) chi.Router {
	if opts.MaxWebhookSize <= 0 {
		opts.MaxWebhookSize = binder.DefaultMaxJSONSize
	}
	errHandler := handler.NewErrorHandler(opts.Logger, opts.Report)

	r := chi.NewRouter()
	r.Use(requestid.Middleware(opts.RequestIDHeaders...))
	r.Use(middleware.NoCache)

	if opts.Checkout != nil {
		r.Post("/checkout", handler.Wrap(checkoutHandler(opts.Checkout),
			handler.WithBinders[handler.Context, svc.CheckoutRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, svc.CheckoutRequest](classified(errHandler)),
		))
	}
	if opts.Webhooks != nil {
		r.Post("/webhooks/{processor}", handler.Wrap(webhookHandler(opts.Webhooks),
			handler.WithBinders[handler.Context, webhookRequest](bindWebhook(opts.MaxWebhookSize)),
			handler.WithErrorHandler[handler.Context, webhookRequest](classified(errHandler)),
		))
	}
	return r
}
