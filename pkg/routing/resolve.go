// Package routing maps an incoming request onto the site model: it picks the
// virtual server, the most specific location and the policy that applies.
//
// All functions are pure; they read an immutable *site.Config and hand back
// values, never pointers into the snapshot.
package routing

import (
	"net"
	"path"
	"path/filepath"
	"strings"

	"mercator-hq/webserv/pkg/site"
)

// ResolveServer selects the server block for a connection accepted on
// host:port. When serverName is non-empty, a block matching host, port and
// server_name wins; otherwise the first block on host and port. Then the
// first block on the port, then the first block overall.
func ResolveServer(cfg *site.Config, host string, port int, serverName string) site.ServerBlock {
	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		if srv.Host == host && srv.Port == port {
			if serverName == "" || srv.ServerName == serverName {
				return *srv
			}
		}
	}
	for i := range cfg.Servers {
		if cfg.Servers[i].Port == port {
			return cfg.Servers[i]
		}
	}
	return cfg.Servers[0]
}

// ResolveLocation returns the most specific location for requestPath.
// An exact path match wins immediately. Otherwise the longest rule path that
// is a prefix ending at a '/' boundary is chosen, first declared on ties.
func ResolveLocation(srv *site.ServerBlock, requestPath string) (site.LocationRule, bool) {
	best := -1
	bestLen := 0
	for i := range srv.Locations {
		locPath := srv.Locations[i].Path
		if requestPath == locPath {
			return srv.Locations[i], true
		}
		if !boundaryPrefix(requestPath, locPath) {
			continue
		}
		if best < 0 || len(locPath) > bestLen {
			best = i
			bestLen = len(locPath)
		}
	}
	if best < 0 {
		return site.LocationRule{}, false
	}
	return srv.Locations[best], true
}

// boundaryPrefix reports whether rule is a prefix of p ending at a path
// segment boundary.
func boundaryPrefix(p, rule string) bool {
	if !strings.HasPrefix(p, rule) {
		return false
	}
	if rule == "/" || len(p) == len(rule) {
		return true
	}
	return p[len(rule)] == '/'
}

// IsMethodAllowed reports whether method may be used on loc. A nil location
// or an empty method list is unrestricted.
func IsMethodAllowed(method string, loc *site.LocationRule) bool {
	if loc == nil || len(loc.AllowedMethods) == 0 {
		return true
	}
	for _, m := range loc.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Decision is everything the handlers need to serve one request.
type Decision struct {
	Server      site.ServerBlock
	Location    site.LocationRule
	HasLocation bool

	// Path is the cleaned request path without the query string.
	Path  string
	Query string

	Root  string
	Index string

	// FilePath is Root joined with Path.
	FilePath string

	MethodAllowed bool
	Redirect      string

	// CGI is set when a path segment's extension matches the location's
	// cgi_extension. Interpreter is the location's cgi_path, possibly empty.
	CGI         bool
	Interpreter string

	// ScriptName is the URL path of the script and PathInfo whatever
	// follows it: /cgi-bin/a.py/x/y gives /cgi-bin/a.py and /x/y. Without
	// CGI, ScriptName is Path.
	ScriptName string
	PathInfo   string

	UploadDir string
}

// Request is the subset of a parsed request routing looks at.
type Request struct {
	Method string
	URI    string
	Host   string
}

// Resolve runs server selection, location matching and policy checks for a
// request accepted on listenHost:listenPort.
func Resolve(cfg *site.Config, req Request, listenHost string, listenPort int) Decision {
	rawPath, query := SplitURI(req.URI)
	cleaned := CleanPath(rawPath)

	srv := ResolveServer(cfg, listenHost, listenPort, HostName(req.Host))
	loc, ok := ResolveLocation(&srv, cleaned)

	d := Decision{
		Server:      srv,
		HasLocation: ok,
		Path:        cleaned,
		Query:       query,
	}
	var locp *site.LocationRule
	if ok {
		d.Location = loc
		locp = &d.Location
	}

	d.Root = locp.EffectiveRoot(&d.Server)
	d.Index = locp.EffectiveIndex(&d.Server)
	d.FilePath = filepath.Join(d.Root, filepath.FromSlash(cleaned))
	d.MethodAllowed = IsMethodAllowed(req.Method, locp)

	if ok {
		d.Redirect = loc.Redirect
		d.UploadDir = loc.UploadPath
		if loc.HasCGI() && loc.CGIExtension != "" {
			if script, info, found := splitScript(cleaned, loc.CGIExtension); found {
				d.CGI = true
				d.Interpreter = loc.CGIPath
				d.ScriptName, d.PathInfo = script, info
				d.FilePath = filepath.Join(d.Root, filepath.FromSlash(script))
			}
		}
	}
	if d.ScriptName == "" {
		d.ScriptName = cleaned
	}
	return d
}

// splitScript finds the first segment of p ending in ext and splits p after
// it.
func splitScript(p, ext string) (script, pathInfo string, ok bool) {
	for i := 1; i <= len(p); i++ {
		if i < len(p) && p[i] != '/' {
			continue
		}
		if seg := p[:i]; !strings.HasSuffix(seg, "/") && path.Ext(seg) == ext {
			return seg, p[i:], true
		}
	}
	return "", "", false
}

// SplitURI separates the path and the raw query string.
func SplitURI(uri string) (string, string) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}

// CleanPath normalizes a request path so it can never climb above the root.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	// keep the trailing slash, it selects directory handling
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// HostName strips the port from a Host header value.
func HostName(h string) string {
	if h == "" {
		return ""
	}
	if name, _, err := net.SplitHostPort(h); err == nil {
		return name
	}
	return h
}
