// Package requestid attaches a correlation ID to every HTTP request.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware())
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//
// Handlers read the ID with FromContext; log records written with the
// request context carry it as request_id.
package requestid
