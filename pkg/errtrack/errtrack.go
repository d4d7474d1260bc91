package errtrack

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the global Sentry client. With an empty DSN it does
// nothing and Report becomes a no-op. The returned flush must run before
// the process exits.
func Init(cfg Config) (flush func(), err error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
	}); err != nil {
		return func() {}, errors.Join(ErrInitFailed, err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Middleware gives every request its own hub so that tags set while
// handling it do not leak into other requests, and reports panics before
// re-raising them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(r)
		ctx := sentry.SetHubOnContext(r.Context(), hub)

		defer func() {
			if rec := recover(); rec != nil {
				if rec != http.ErrAbortHandler {
					hub.RecoverWithContext(ctx, rec)
				}
				panic(rec)
			}
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Report sends err to Sentry using the request hub when ctx carries one.
func Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.CaptureException(err)
}

// SetTag tags the events reported for the current request.
func SetTag(ctx context.Context, key, value string) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTag(key, value)
	}
}
