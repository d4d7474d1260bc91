package billing

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/rankpay/handler"
	"github.com/dmitrymomot/rankpay/pkg/binder"
	"github.com/dmitrymomot/rankpay/pkg/errtrack"
	svc "github.com/dmitrymomot/rankpay/svc/billing"
)

type checkoutResponse struct {
	URL string `json:"url"`
}

func checkoutHandler(c Checkouter) handler.HandlerFunc[handler.Context, svc.CheckoutRequest] {
	return func(ctx handler.Context, req svc.CheckoutRequest) handler.Response {
		res, err := c.Checkout(ctx, req)
		if err != nil {
			return handler.Error(err)
		}
		return handler.JSON(checkoutResponse{URL: res.URL})
	}
}

type webhookRequest struct {
	Processor string
	Payload   []byte
	Header    http.Header
}

type webhookResponse struct {
	Received bool `json:"received"`
}

func webhookHandler(wr WebhookRouter) handler.HandlerFunc[handler.Context, webhookRequest] {
	return func(ctx handler.Context, req webhookRequest) handler.Response {
		errtrack.SetTag(ctx, "processor", req.Processor)
		if err := wr.Route(ctx, req.Processor, req.Payload, req.Header); err != nil {
			return handler.Error(err)
		}
		return handler.JSON(webhookResponse{Received: true})
	}
}

// bindWebhook keeps the body byte-for-byte: signatures are computed over
// the exact payload.
func bindWebhook(maxSize int64) handler.Bind {
	return func(r *http.Request, v any) error {
		req, ok := v.(*webhookRequest)
		if !ok {
			return fmt.Errorf("bindWebhook: unexpected target %T", v)
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
		if err != nil {
			return errors.Join(binder.ErrFailedToParseJSON, err)
		}
		if int64(len(body)) > maxSize {
			return fmt.Errorf("%w: max %d bytes", binder.ErrBodyTooLarge, maxSize)
		}
		req.Processor = chi.URLParam(r, "processor")
		req.Payload = body
		req.Header = r.Header.Clone()
		return nil
	}
}
