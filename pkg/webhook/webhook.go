package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const userAgent = "rankpay-webhook/1.0"

// Sender delivers JSON payloads to HTTP endpoints with retries.
// Use NewSender; the zero value is not usable.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewSenderWithClient creates a sender over client, typically from httptest.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client}
}

// Send marshals data to JSON and POSTs it to webhookURL.
//
// Network errors, 5xx and 408/425/429 responses are retried with jittered
// exponential backoff. Other 4xx responses fail immediately with
// ErrPermanentFailure. An open circuit breaker short-circuits with
// ErrCircuitOpen.
func (s *Sender) Send(ctx context.Context, webhookURL string, data any, opts ...SendOption) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate(webhookURL, payload); err != nil {
		return err
	}

	o := defaultSendOptions()
	for _, opt := range opts {
		opt(o)
	}

	client := s.client
	if o.httpClient != nil {
		client = o.httpClient
	}

	backoff := retry.NewExponential(o.initialInterval)
	backoff = retry.WithCappedDuration(o.maxInterval, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(o.maxRetries, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if o.circuitBreaker != nil && !o.circuitBreaker.Allow() {
			return ErrCircuitOpen
		}
		attempt++

		result, err := deliver(ctx, client, webhookURL, payload, o)
		result.Attempt = attempt
		if o.onDelivery != nil {
			o.onDelivery(result)
		}
		if o.circuitBreaker != nil {
			if err == nil {
				o.circuitBreaker.RecordSuccess()
			} else {
				o.circuitBreaker.RecordFailure()
			}
		}

		switch {
		case err == nil:
			return nil
		case isPermanent(result.StatusCode):
			return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		default:
			return retry.RetryableError(err)
		}
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermanentFailure), errors.Is(err, ErrCircuitOpen):
		return err
	case ctx.Err() != nil && attempt == 0:
		return ctx.Err()
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrWebhookDeliveryFailed, attempt, err)
	}
}

func validate(webhookURL string, payload []byte) error {
	if webhookURL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	return nil
}

func deliver(ctx context.Context, client *http.Client, webhookURL string, payload []byte, o *sendOptions) (DeliveryResult, error) {
	start := time.Now()
	var result DeliveryResult

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		result.Error = err
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range o.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if o.signatureSecret != "" {
		sig, err := SignPayload(o.signatureSecret, payload)
		if err != nil {
			result.Error = err
			return result, err
		}
		sig.Apply(req.Header)
	}

	resp, err := client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return result, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if result.Success {
		return result, nil
	}

	// Keep a short single-line excerpt of the body for logs.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := fmt.Sprintf("webhook returned status %d", resp.StatusCode)
	if excerpt := strings.Join(strings.Fields(string(body)), " "); excerpt != "" {
		if len(excerpt) > 200 {
			excerpt = excerpt[:200] + "..."
		}
		msg += ": " + excerpt
	}
	result.Error = errors.New(msg)
	return result, result.Error
}

// isPermanent reports whether a status code will not change on retry.
func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}
