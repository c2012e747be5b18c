// Package logger builds configured slog.Logger instances for the billing
// service.
//
// It supports JSON output for log aggregation in production and text output
// for local development, static service attributes attached to every record,
// and environment-driven defaults:
//
//	log := logger.New(
//	    logger.WithProduction("billingd"),
//	    logger.WithAttr(slog.String("version", version)),
//	)
//	logger.SetAsDefault(log)
package logger
