package provider

import "errors"

var (
	ErrNotFound    = errors.New("provider: not found")
	ErrPersistence = errors.New("provider: store failure")
)
