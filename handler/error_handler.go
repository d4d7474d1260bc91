package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/rankpay/pkg/logger"
)

// Reporter receives server-side failures, for example to forward them to
// an error tracker.
type Reporter func(ctx context.Context, err error)

// NewErrorHandler logs the failure and writes a JSON error. 4xx are logged at
// warn level; 5xx at error level and passed to report when it is not nil.
func NewErrorHandler(log *slog.Logger, report Reporter) ErrorHandler[Context] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(ctx Context, err error) {
		he := StatusOf(err)
		r := ctx.Request()

		level := slog.LevelWarn
		if he.Code >= http.StatusInternalServerError {
			level = slog.LevelError
			if report != nil {
				report(ctx, err)
			}
		}
		log.LogAttrs(ctx, level, "request failed",
			logger.Error(err),
			slog.Int("status_code", he.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		_ = JSONError(err).Render(ctx.ResponseWriter(), r)
	}
}
