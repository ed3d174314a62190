package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/webserv/pkg/httpwire"
)

// Attribute keys set on webserv spans.
const (
	AttrRequestID   = attribute.Key("request.id")
	AttrPeerIP      = attribute.Key("net.peer.ip")
	AttrListen      = attribute.Key("server.listen")
	AttrHTTPMethod  = attribute.Key("http.method")
	AttrHTTPTarget  = attribute.Key("http.target")
	AttrHTTPStatus  = attribute.Key("http.status_code")
	AttrServerName  = attribute.Key("webserv.server_name")
	AttrLocation    = attribute.Key("webserv.location")
	AttrCGI         = attribute.Key("webserv.cgi")
	AttrCGIScript   = attribute.Key("cgi.script")
	AttrInterpreter = attribute.Key("cgi.interpreter")
)

// ConnectionAttributes describe where a request came from.
func ConnectionAttributes(requestID, peer, listen string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRequestID.String(requestID),
		AttrPeerIP.String(peer),
		AttrListen.String(listen),
	}
}

// SetRouteAttributes records the routing outcome of a request.
func SetRouteAttributes(span trace.Span, method, target, serverName, location string, cgi bool) {
	span.SetAttributes(
		AttrHTTPMethod.String(method),
		AttrHTTPTarget.String(target),
		AttrServerName.String(serverName),
		AttrLocation.String(location),
		AttrCGI.Bool(cgi),
	)
}

// SetHTTPStatus records status and marks 5xx responses as errors.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(AttrHTTPStatus.Int(status))
	if status >= 500 {
		span.SetStatus(codes.Error, httpwire.StatusText(status))
	}
}
