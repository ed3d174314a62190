// Package tracing configures OpenTelemetry for webserv.
//
// New installs a global TracerProvider exporting over OTLP/gRPC when
// tracing is enabled; packages obtain tracers with otel.Tracer and never
// hold a *Tracer. When tracing is disabled the global provider is left as
// the no-op default.
//
// Every request produces a server span named "webserv.request". A request
// carrying a W3C traceparent header continues the caller's trace, and CGI
// scripts receive the active context in the TRACEPARENT environment
// variable.
package tracing
