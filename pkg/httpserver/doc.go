// Package httpserver runs the service's HTTP listener.
//
// Run mounts the application handler on a chi router next to two probes:
// GET /livez always answers 200 and GET /readyz runs every registered
// HealthCheck. The server stops gracefully on context cancellation, SIGINT
// or SIGTERM.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithHealthCheck("postgres", pg.Healthcheck(pool)),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
package httpserver
