// Package site holds the virtual-server model of webserv: the parsed,
// validated form of the nginx-style site file.
//
// A site file declares one or more server blocks, each with nested location
// blocks:
//
//	server {
//	    listen 127.0.0.1:8080;
//	    server_name localhost;
//	    root ./www;
//	    index index.html;
//	    client_max_body_size 1m;
//	    error_page 404 /error/404.html;
//
//	    location /cgi-bin {
//	        allow_methods GET POST;
//	        cgi_extension .py;
//	        cgi_path /usr/bin/python3;
//	    }
//	}
//
// Parsing is line based: blank lines and lines starting with '#' are skipped,
// and a line may carry several semicolon-terminated directives. Structural
// mistakes (unclosed blocks, directives outside a server block, nested server
// blocks) are reported as *ParseError with the offending line number.
//
// # Immutability
//
// A *Config returned by Parse, Load or Default is never mutated afterwards.
// The server swaps whole snapshots on reload, so a Config may be shared
// freely between goroutines.
//
// # Fallback
//
// LoadOrDefault never fails: when the file cannot be read, parsed or
// validated it returns Default() together with the error so the caller can
// log a warning. Default() is a single server on 127.0.0.1:8080 with a 1 MiB
// body limit.
package site
