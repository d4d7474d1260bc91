// Package logger builds *slog.Logger instances with functional options and
// keeps attribute names consistent across packages.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "rankpay"),
//	    logger.FromConfig(logCfg),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// Attributes attached with WithAttrs travel with the context, so every record
// logged further down the call chain carries them:
//
//	ctx = logger.WithAttrs(ctx, logger.Processor("stripe"), logger.EventID(ev.ID))
//	log.InfoContext(ctx, "subscription confirmed", logger.ProviderID(id))
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
