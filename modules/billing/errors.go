package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/rankpay/handler"
	svc "github.com/dmitrymomot/rankpay/svc/billing"
)

var (
	errInvalidRequest   = handler.NewHTTPError(http.StatusBadRequest, "invalid_request")
	errInvalidSignature = handler.NewHTTPError(http.StatusBadRequest, "invalid_signature")
	errProviderNotFound = handler.NewHTTPError(http.StatusNotFound, "provider_not_found")
	errUnknownProcessor = handler.NewHTTPError(http.StatusNotFound, "unknown_processor")
	errConflict         = handler.NewHTTPError(http.StatusConflict, "conflict")
	errProcessor        = handler.NewHTTPError(http.StatusBadGateway, "payment_processor_error")
)

// httpError attaches the HTTP classification of a billing error, keeping the
// original in the chain for logs and error reporting.
func httpError(err error) error {
	var status error
	switch {
	case errors.Is(err, svc.ErrSignatureInvalid):
		status = errInvalidSignature
	case errors.Is(err, svc.ErrInvalidRequest):
		status = errInvalidRequest
	case errors.Is(err, svc.ErrProviderNotFound):
		status = errProviderNotFound
	case errors.Is(err, svc.ErrUnknownProcessor):
		status = errUnknownProcessor
	case errors.Is(err, svc.ErrConflict), errors.Is(err, svc.ErrStale):
		status = errConflict
	case errors.Is(err, svc.ErrExternalService), errors.Is(err, svc.ErrNoCheckoutURL):
		status = errProcessor
	default:
		return err
	}
	return errors.Join(status, err)
}

func classified(next handler.ErrorHandler[handler.Context]) handler.ErrorHandler[handler.Context] {
	return func(ctx handler.Context, err error) {
		next(ctx, httpError(err))
	}
}
