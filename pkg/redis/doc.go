// Package redis connects to Redis with retries and exposes a health check
// suitable for the HTTP server's readiness probe.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	srv := httpserver.New(httpserver.WithHealthCheck("redis", redis.Healthcheck(client)))
//
// Config is populated from REDIS_* environment variables. An empty REDIS_URL
// disables Redis; see Config.Enabled.
package redis
