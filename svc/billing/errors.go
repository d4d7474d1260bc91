package billing

import "errors"

var (
	ErrNotFound           = errors.New("billing: subscription not found")
	ErrConflict           = errors.New("billing: subscription already exists for provider")
	ErrStale              = errors.New("billing: subscription was modified concurrently")
	ErrPersistence        = errors.New("billing: subscription store failure")
	ErrInvariantViolation = errors.New("billing: invariant violation")
	ErrExternalService    = errors.New("billing: payment processor failure")
	ErrSignatureInvalid   = errors.New("billing: webhook signature verification failed")
	ErrInvalidRequest     = errors.New("billing: invalid checkout request")
	ErrProviderNotFound   = errors.New("billing: provider not found")

	ErrUnknownProcessor = errors.New("billing: unknown payment processor")
	ErrNoCheckoutURL    = errors.New("billing: no checkout URL returned from processor")
)
