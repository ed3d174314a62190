// Package metrics exposes Prometheus metrics for the server.
//
// A Collector plugs into the rest of the process through small observer
// interfaces: it is a server.RequestObserver, a server.ConnectionObserver and
// a cgi.Observer, and sitewatch reports reload outcomes to it. Nothing in the
// event loop imports Prometheus directly.
//
// Metric names, with the default namespace "webserv":
//
//	webserv_http_requests_total{method,status,server}
//	webserv_http_request_duration_seconds{method}
//	webserv_http_response_size_bytes
//	webserv_http_request_size_bytes
//	webserv_connections_active
//	webserv_connections_total
//	webserv_accept_errors_total
//	webserv_cgi_executions_total{extension,status}
//	webserv_cgi_duration_seconds{extension}
//	webserv_site_reloads_total{result}
//	webserv_site_last_reload_timestamp_seconds
//
// Label values are bounded: unknown methods are reported as "OTHER" and a
// CardinalityLimiter folds excess server names into "other".
package metrics
