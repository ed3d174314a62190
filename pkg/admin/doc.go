// Package admin serves the side listener that exposes metrics, health
// probes and read-only access log queries. It runs on net/http, separate
// from the event loop, and is never reachable through a site listener.
//
// Routes:
//
//	GET <metrics path>   Prometheus scrape endpoint, when metrics are enabled
//	GET <liveness path>  liveness probe
//	GET <readiness path> readiness probe
//	GET /version         build information
//	GET /accesslog       recent access records as JSON, when the access log is enabled
//
// When admin.auth_tokens is set, /accesslog requires
// "Authorization: Bearer <token>". Probes, /version and metrics stay open.
package admin
