// Webserv is a single-process HTTP/1.1 server for static files, directory
// listings, uploads and CGI scripts, configured with an nginx-style site file.
//
// Usage:
//
//	# Serve the site file named in webserv.yaml (default webserv.conf)
//	webserv run
//
//	# Serve an explicit site file
//	webserv run conf/site.conf
//
//	# Check the site file and process configuration without serving
//	webserv validate
//
//	# Inspect and prune the access log
//	webserv accesslog query --min-status 500
//	webserv accesslog prune --days 7
package main

import "os"

func main() {
	os.Exit(Execute())
}
