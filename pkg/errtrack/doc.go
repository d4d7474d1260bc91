// Package errtrack reports unexpected server errors to Sentry
// (github.com/getsentry/sentry-go). It is inert until Init is called with a
// DSN, so development and tests need no configuration.
//
//	flush, err := errtrack.Init(cfg)
//	defer flush()
//
//	r.Use(errtrack.Middleware)
//	errHandler := handler.NewErrorHandler(log, errtrack.Report)
package errtrack
