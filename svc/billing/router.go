package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/rankpay/pkg/logger"
)

// EventHandler handles one verified, normalized event.
type EventHandler interface {
	Handle(ctx context.Context, ev *Event) error
}

// Router is the webhook entry point: it verifies the processor signature
// before anything else and hands the normalized event to the handler.
// Unknown event types arrive as EventIgnored and are acknowledged.
type Router struct {
	processor Processor
	handler   EventHandler
	settings
}

func NewRouter(processor Processor, handler EventHandler, opts ...Option) *Router {
	if processor == nil {
		panic("billing: processor is required")
	}
	if handler == nil {
		panic("billing: event handler is required")
	}
	return &Router{processor: processor, handler: handler, settings: newSettings(opts)}
}

// Route processes a raw webhook delivery addressed to the named processor.
// It returns ErrUnknownProcessor for a foreign processor name, an error
// wrapping ErrSignatureInvalid when verification fails, and the handler's
// error otherwise.
func (r *Router) Route(ctx context.Context, processorName string, payload []byte, header http.Header) error {
	if processorName != r.processor.Name() {
		return ErrUnknownProcessor
	}

	ev, err := r.processor.ParseEvent(ctx, payload, header)
	if err != nil {
		if errors.Is(err, ErrSignatureInvalid) {
			r.log.WarnContext(ctx, "webhook signature rejected",
				logger.Component("billing.router"),
				logger.Processor(processorName),
				logger.Error(err),
			)
			r.metrics.event("unverified", "rejected")
		}
		return err
	}

	ctx = logger.WithAttrs(ctx,
		logger.Processor(processorName),
		logger.EventType(ev.ProviderEvent),
		logger.EventID(ev.ID),
	)
	r.log.DebugContext(ctx, "webhook received", logger.Component("billing.router"))
	return r.handler.Handle(ctx, ev)
}
