package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/rankpay/pkg/logger"
	"github.com/dmitrymomot/rankpay/pkg/webhook"
)

// WebhookNotifier posts notifications as signed JSON to a single endpoint.
type WebhookNotifier struct {
	sender  *webhook.Sender
	url     string
	secret  string
	timeout time.Duration
	retries int
	breaker *webhook.CircuitBreaker
	log     *slog.Logger
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithSender replaces the default sender, mostly for tests.
func WithSender(s *webhook.Sender) WebhookOption {
	return func(n *WebhookNotifier) {
		if s != nil {
			n.sender = s
		}
	}
}

func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(n *WebhookNotifier) {
		if l != nil {
			n.log = l
		}
	}
}

// NewWebhookNotifier creates a notifier for cfg.WebhookURL.
func NewWebhookNotifier(cfg Config, opts ...WebhookOption) (*WebhookNotifier, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrMissingURL
	}
	n := &WebhookNotifier{
		sender:  webhook.NewSender(),
		url:     cfg.WebhookURL,
		secret:  cfg.WebhookSecret,
		timeout: cfg.WebhookTimeout,
		retries: cfg.WebhookRetries,
		breaker: webhook.NewCircuitBreaker(5, 2, time.Minute),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg Notification) error {
	opts := []webhook.SendOption{
		webhook.WithTimeout(n.timeout),
		webhook.WithExponentialRetry(n.retries, 200*time.Millisecond, 5*time.Second),
		webhook.WithCircuitBreaker(n.breaker),
		webhook.WithHeader("X-Notification-Type", string(msg.Type)),
		webhook.WithOnDelivery(func(r webhook.DeliveryResult) {
			if !r.Success {
				n.log.DebugContext(ctx, "notification delivery attempt failed",
					logger.Component("notify.webhook"),
					logger.RetryCount(r.Attempt),
					logger.Error(r.Error),
				)
			}
		}),
	}
	if n.secret != "" {
		opts = append(opts, webhook.WithSignature(n.secret))
	}

	if err := n.sender.Send(ctx, n.url, msg, opts...); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}
