package errtrack

import "errors"

var ErrInitFailed = errors.New("errtrack: failed to initialize sentry")
