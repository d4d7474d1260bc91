package webhook

import (
	"net/http"
	"time"
)

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Attempt    int
	Duration   time.Duration
	Error      error
}

// DeliveryHook is called after each delivery attempt.
type DeliveryHook func(result DeliveryResult)

type sendOptions struct {
	timeout    time.Duration
	headers    http.Header
	httpClient *http.Client

	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration

	signatureSecret string
	circuitBreaker  *CircuitBreaker
	onDelivery      DeliveryHook
}

func defaultSendOptions() *sendOptions {
	return &sendOptions{
		timeout:         10 * time.Second,
		headers:         make(http.Header),
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     30 * time.Second,
	}
}

// SendOption configures a single Send call.
type SendOption func(*sendOptions)

// WithTimeout bounds each attempt. Default is 10 seconds.
func WithTimeout(timeout time.Duration) SendOption {
	return func(o *sendOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHeader adds a request header. Content-Type and the signature headers
// are managed by the sender.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		if key != "" && value != "" {
			o.headers.Set(key, value)
		}
	}
}

// WithSignature signs every attempt with secret. See SignPayload.
func WithSignature(secret string) SendOption {
	return func(o *sendOptions) {
		o.signatureSecret = secret
	}
}

func WithHTTPClient(client *http.Client) SendOption {
	return func(o *sendOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithCircuitBreaker guards the endpoint with cb.
func WithCircuitBreaker(cb *CircuitBreaker) SendOption {
	return func(o *sendOptions) {
		o.circuitBreaker = cb
	}
}

// WithOnDelivery registers a hook invoked after every attempt.
func WithOnDelivery(hook DeliveryHook) SendOption {
	return func(o *sendOptions) {
		o.onDelivery = hook
	}
}

// WithExponentialRetry retries up to attempts times with jittered
// exponential backoff starting at initial and capped at max.
func WithExponentialRetry(attempts int, initial, max time.Duration) SendOption {
	return func(o *sendOptions) {
		if attempts < 0 {
			attempts = 0
		}
		o.maxRetries = uint64(attempts)
		if initial > 0 {
			o.initialInterval = initial
		}
		if max > 0 {
			o.maxInterval = max
		}
	}
}

// WithNoRetry makes a single attempt.
func WithNoRetry() SendOption {
	return func(o *sendOptions) {
		o.maxRetries = 0
	}
}
