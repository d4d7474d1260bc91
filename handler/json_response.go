package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/rankpay/pkg/binder"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON renders v as the response body with status 200, or status if given.
func JSON(v any, status ...int) Response {
	code := http.StatusOK
	if len(status) > 0 {
		code = status[0]
	}
	return jsonResponse{status: code, body: v}
}

// JSONError renders err as an ErrorBody. The status comes from StatusOf.
func JSONError(err error) Response {
	he := StatusOf(err)
	msg := he.Key
	if he.Code < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	return jsonResponse{
		status: he.Code,
		body:   ErrorBody{Error: ErrorDetail{Code: he.Key, Message: msg}},
	}
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	return e.err
}

// Error hands err to the ErrorHandler configured on Wrap, which logs it and
// writes the error body.
func Error(err error) Response {
	if err == nil {
		err = ErrInternalServerError
	}
	return errorResponse{err: err}
}

// StatusOf classifies err: an HTTPError anywhere in the chain wins, binding
// failures are client errors, everything else is a 500.
func StatusOf(err error) HTTPError {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrBodyTooLarge):
		return ErrBadRequest
	default:
		return ErrInternalServerError
	}
}
