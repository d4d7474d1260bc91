// Package webhook delivers signed JSON payloads to HTTP endpoints.
//
// A Sender POSTs any JSON-serializable value, retrying transient failures
// (network errors, 5xx, 408, 425, 429) with jittered exponential backoff
// from github.com/sethvargo/go-retry. Other 4xx responses are permanent.
// A shared CircuitBreaker stops hammering an endpoint that keeps failing.
//
//	sender := webhook.NewSender()
//	err := sender.Send(ctx, url, event,
//		webhook.WithSignature(secret),
//		webhook.WithExponentialRetry(3, 200*time.Millisecond, 5*time.Second),
//		webhook.WithCircuitBreaker(breaker),
//	)
//
// # Signatures
//
// With WithSignature every attempt carries X-Rankpay-Signature,
// X-Rankpay-Timestamp and X-Rankpay-Delivery headers. The signature is
// hex(HMAC-SHA256(secret, timestamp + "." + body)). Receivers verify it with:
//
//	sig, err := webhook.SignatureFromHeader(r.Header)
//	if err == nil {
//		err = webhook.VerifySignature(secret, body, sig, 5*time.Minute)
//	}
package webhook
