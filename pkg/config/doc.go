// Package config loads webserv.yaml, the process configuration.
//
// The site itself (virtual servers, locations, error pages) is described by
// the nginx-style site file handled in package site. This package covers the
// runtime around it: event loop tuning, CGI limits, the access log, logging,
// metrics, tracing, the admin listener and hot reload.
//
// Values are applied in this order, later overriding earlier:
//
//  1. Defaults (defaults.go)
//  2. The YAML file
//  3. WEBSERV_SECTION_FIELD environment variables
//  4. Validation, which reports every problem at once
//
// For example WEBSERV_SERVER_SITE_FILE overrides server.site_file and
// WEBSERV_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level.
//
// A missing file is not an error for LoadConfigWithEnvOverrides; the server
// runs on defaults.
package config
