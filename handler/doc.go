// Package handler turns typed request handlers into http.HandlerFunc.
//
// Wrap binds the request into R with the configured binders, calls the
// handler and renders the returned Response. Failures go to the
// ErrorHandler, by default a JSON error body whose status comes from
// StatusOf.
//
//	r.Post("/checkout", handler.Wrap(checkout,
//		handler.WithBinders[handler.Context, billing.CheckoutRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, billing.CheckoutRequest](handler.NewErrorHandler(log, nil)),
//	))
package handler
