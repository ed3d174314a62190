// Package logging builds the process logger from configuration.
//
// Output is log/slog, JSON or text. The handler returned by New enriches
// every record logged with a context: the request ID attached by the server
// and, when tracing is on, the trace and span IDs.
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
//	...
//	logger.InfoContext(ctx, "upload stored") // carries request_id
package logging
