package routing

import (
	"path/filepath"
	"testing"

	"mercator-hq/webserv/pkg/site"
)

func locations(paths ...string) *site.ServerBlock {
	srv := &site.ServerBlock{Root: "/srv", Index: "index.html"}
	for _, p := range paths {
		srv.Locations = append(srv.Locations, site.LocationRule{Path: p})
	}
	return srv
}

func TestResolveLocation_LongestPrefix(t *testing.T) {
	srv := locations("/", "/api", "/api/v2")

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/api/v2/items", "/api/v2", true},
		{"/api/v2", "/api/v2", true},
		{"/api/v1/items", "/api", true},
		{"/api", "/api", true},
		{"/apix", "/", true},
		{"/api/v2x", "/api", true},
		{"/", "/", true},
		{"/other/page", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, ok := ResolveLocation(srv, tt.path)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if loc.Path != tt.want {
				t.Errorf("expected location %q, got %q", tt.want, loc.Path)
			}
		})
	}
}

func TestResolveLocation_NoMatch(t *testing.T) {
	srv := locations("/api", "/static")
	if loc, ok := ResolveLocation(srv, "/apix"); ok {
		t.Errorf("expected no match, got %q", loc.Path)
	}
	if _, ok := ResolveLocation(&site.ServerBlock{}, "/"); ok {
		t.Error("expected no match without locations")
	}
}

func TestResolveLocation_TiesKeepDeclarationOrder(t *testing.T) {
	srv := &site.ServerBlock{Locations: []site.LocationRule{
		{Path: "/dup", Root: "first"},
		{Path: "/dup", Root: "second"},
	}}
	loc, _ := ResolveLocation(srv, "/dup/file")
	if loc.Root != "first" {
		t.Errorf("expected first declared rule, got %q", loc.Root)
	}
	loc, _ = ResolveLocation(srv, "/dup")
	if loc.Root != "first" {
		t.Errorf("expected first declared rule on exact match, got %q", loc.Root)
	}
}

func TestResolveServer(t *testing.T) {
	cfg := &site.Config{Servers: []site.ServerBlock{
		{Host: "127.0.0.1", Port: 8080, ServerName: "a.local", Root: "a"},
		{Host: "127.0.0.1", Port: 8080, ServerName: "b.local", Root: "b"},
		{Host: "0.0.0.0", Port: 9090, ServerName: "c.local", Root: "c"},
	}}

	tests := []struct {
		name string
		host string
		port int
		hint string
		want string
	}{
		{"exact name match", "127.0.0.1", 8080, "b.local", "b"},
		{"no hint takes first on host and port", "127.0.0.1", 8080, "", "a"},
		{"unknown name falls back to port", "127.0.0.1", 8080, "zzz", "a"},
		{"port only", "10.0.0.1", 9090, "", "c"},
		{"nothing matches", "10.0.0.1", 1234, "c.local", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveServer(cfg, tt.host, tt.port, tt.hint)
			if got.Root != tt.want {
				t.Errorf("expected server %q, got %q", tt.want, got.Root)
			}
		})
	}
}

func TestIsMethodAllowed(t *testing.T) {
	getOnly := &site.LocationRule{AllowedMethods: []string{"GET"}}
	if !IsMethodAllowed("GET", getOnly) {
		t.Error("GET should be allowed")
	}
	if IsMethodAllowed("POST", getOnly) {
		t.Error("POST should be rejected")
	}
	if !IsMethodAllowed("DELETE", &site.LocationRule{}) {
		t.Error("empty method list is unrestricted")
	}
	if !IsMethodAllowed("POST", nil) {
		t.Error("no location is unrestricted")
	}
}

func TestResolve_PathInfo(t *testing.T) {
	cfg := &site.Config{Servers: []site.ServerBlock{{
		Host: "127.0.0.1", Port: 8080, Root: "/srv/www", MaxBodySize: 1024,
		Locations: []site.LocationRule{
			{Path: "/cgi-bin", CGIExtension: ".py"},
		},
	}}}

	tests := []struct {
		uri        string
		cgi        bool
		scriptName string
		pathInfo   string
	}{
		{"/cgi-bin/app.py", true, "/cgi-bin/app.py", ""},
		{"/cgi-bin/app.py/users/42", true, "/cgi-bin/app.py", "/users/42"},
		{"/cgi-bin/app.py/?q=1", true, "/cgi-bin/app.py", "/"},
		{"/cgi-bin/app.pyc/x", false, "/cgi-bin/app.pyc/x", ""},
		{"/cgi-bin/readme.txt", false, "/cgi-bin/readme.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			d := Resolve(cfg, Request{Method: "GET", URI: tt.uri}, "127.0.0.1", 8080)
			if d.CGI != tt.cgi || d.ScriptName != tt.scriptName || d.PathInfo != tt.pathInfo {
				t.Errorf("got cgi=%v script=%q info=%q", d.CGI, d.ScriptName, d.PathInfo)
			}
			if tt.cgi && d.FilePath != filepath.Join("/srv/www", "cgi-bin", "app.py") {
				t.Errorf("file path %q must point at the script", d.FilePath)
			}
		})
	}
}

func TestResolve_Decision(t *testing.T) {
	cfg := &site.Config{Servers: []site.ServerBlock{{
		Host: "127.0.0.1", Port: 8080, ServerName: "localhost",
		Root: "/srv/www", Index: "index.html", MaxBodySize: 1024,
		Locations: []site.LocationRule{
			{Path: "/", AllowedMethods: []string{"GET"}},
			{Path: "/cgi-bin", CGIExtension: ".py", CGIPath: "/usr/bin/python3", AllowedMethods: []string{"GET", "POST"}},
			{Path: "/old", Redirect: "/new"},
			{Path: "/files", Root: "/data", UploadPath: "/data/in"},
		},
	}}}

	d := Resolve(cfg, Request{Method: "POST", URI: "/cgi-bin/hello.py?x=1&y=2", Host: "localhost:8080"}, "127.0.0.1", 8080)
	if !d.CGI || d.Interpreter != "/usr/bin/python3" {
		t.Errorf("expected CGI decision, got %+v", d)
	}
	if d.Query != "x=1&y=2" {
		t.Errorf("expected query string, got %q", d.Query)
	}
	if d.FilePath != filepath.Join("/srv/www", "cgi-bin", "hello.py") {
		t.Errorf("unexpected file path %q", d.FilePath)
	}
	if !d.MethodAllowed {
		t.Error("POST should be allowed on /cgi-bin")
	}
	if d.ScriptName != "/cgi-bin/hello.py" || d.PathInfo != "" {
		t.Errorf("script name %q, path info %q", d.ScriptName, d.PathInfo)
	}

	d = Resolve(cfg, Request{Method: "POST", URI: "/index.html"}, "127.0.0.1", 8080)
	if d.MethodAllowed {
		t.Error("POST should be rejected on /")
	}
	if d.CGI {
		t.Error("static path must not be CGI")
	}

	d = Resolve(cfg, Request{Method: "GET", URI: "/cgi-bin/readme.txt"}, "127.0.0.1", 8080)
	if d.CGI {
		t.Error("non-matching extension must not be CGI")
	}

	d = Resolve(cfg, Request{Method: "GET", URI: "/old/page"}, "127.0.0.1", 8080)
	if d.Redirect != "/new" {
		t.Errorf("expected redirect, got %q", d.Redirect)
	}

	d = Resolve(cfg, Request{Method: "GET", URI: "/files/../../etc/passwd"}, "127.0.0.1", 8080)
	if d.FilePath != filepath.Join("/srv/www", "etc", "passwd") {
		t.Errorf("path traversal not contained: %q", d.FilePath)
	}

	d = Resolve(cfg, Request{Method: "POST", URI: "/files/"}, "127.0.0.1", 8080)
	if d.Root != "/data" || d.UploadDir != "/data/in" {
		t.Errorf("expected location root and upload dir, got root=%q upload=%q", d.Root, d.UploadDir)
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":             "/",
		"a/b":          "/a/b",
		"/a/../../b":   "/b",
		"/dir/":        "/dir/",
		"/dir/./x/../": "/dir/",
	}
	for in, want := range tests {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
