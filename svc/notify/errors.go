package notify

import "errors"

var (
	ErrDeliveryFailed = errors.New("notify: delivery failed")
	ErrMissingEmail   = errors.New("notify: recipient email is missing")
	ErrMissingURL     = errors.New("notify: webhook URL is required")
)
