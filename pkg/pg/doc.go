// Package pg bootstraps PostgreSQL access over the pgx/v5 driver: a
// retrying pool constructor, goose migrations from an embedded filesystem,
// a health check for the HTTP server and error classifiers.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, logger); err != nil {
//		return err
//	}
//
// Connect retries with exponential backoff (PG_RETRY_ATTEMPTS and
// PG_RETRY_INTERVAL) so the service can start before the database accepts
// connections.
//
// # Error Handling
//
// [IsNotFoundError], [IsDuplicateKeyError] and [IsForeignKeyViolationError]
// classify pgx errors so repositories can translate them into their own
// domain errors.
package pg
