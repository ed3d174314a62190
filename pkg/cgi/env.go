package cgi

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/webserv/pkg/httpwire"
)

// Request carries what a CGI child sees of the HTTP request.
type Request struct {
	Method string
	URI    string
	Query  string

	// ScriptName is the URL path of the script, PathInfo anything after it.
	ScriptName string
	PathInfo   string

	ServerName string
	ServerPort int
	Protocol   string
	RemoteAddr string

	ContentType string
	Headers     map[string]string
	Body        []byte

	// Interpreter overrides the extension table when set.
	Interpreter string
}

// FromHTTP builds a Request from a parsed HTTP request.
func FromHTTP(req *httpwire.Request, scriptName, serverName string, serverPort int, remoteAddr string) *Request {
	return &Request{
		Method:      req.RawMethod,
		URI:         req.URI,
		Query:       req.Query(),
		ScriptName:  scriptName,
		ServerName:  serverName,
		ServerPort:  serverPort,
		Protocol:    req.Version,
		RemoteAddr:  remoteAddr,
		ContentType: req.ContentType(),
		Headers:     req.Headers,
		Body:        req.Body,
	}
}

// Environ returns the child environment for req, sorted by name. PATH is
// inherited so scripts using /usr/bin/env keep working.
func Environ(req *Request, scriptPath string) []string {
	env := map[string]string{
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_SOFTWARE":   httpwire.ServerSoftware,
		"REDIRECT_STATUS":   "200",
		"REQUEST_METHOD":    req.Method,
		"REQUEST_URI":       req.URI,
		"QUERY_STRING":      req.Query,
		"SCRIPT_NAME":       req.ScriptName,
		"SCRIPT_FILENAME":   scriptPath,
		"PATH_INFO":         req.PathInfo,
		"SERVER_NAME":       req.ServerName,
		"SERVER_PORT":       strconv.Itoa(req.ServerPort),
		"SERVER_PROTOCOL":   req.Protocol,
		"REMOTE_ADDR":       req.RemoteAddr,
		"CONTENT_LENGTH":    strconv.Itoa(len(req.Body)),
	}
	if env["SERVER_PROTOCOL"] == "" {
		env["SERVER_PROTOCOL"] = "HTTP/1.1"
	}

	contentType := req.ContentType
	if contentType == "" && req.Method == "POST" {
		contentType = "application/x-www-form-urlencoded"
	}
	env["CONTENT_TYPE"] = contentType

	for name, value := range req.Headers {
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if key == "CONTENT_TYPE" || key == "CONTENT_LENGTH" || key == "" {
			continue
		}
		env["HTTP_"+key] = value
	}

	if p, ok := os.LookupEnv("PATH"); ok {
		env["PATH"] = p
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
