package httpwire

import "strconv"

const (
	StatusOK                   = 200
	StatusCreated              = 201
	StatusNoContent            = 204
	StatusMovedPermanently     = 301
	StatusFound                = 302
	StatusBadRequest           = 400
	StatusForbidden            = 403
	StatusNotFound             = 404
	StatusMethodNotAllowed     = 405
	StatusPayloadTooLarge      = 413
	StatusHeaderFieldsTooLarge = 431
	StatusInternalServerError  = 500
	StatusNotImplemented       = 501
	StatusBadGateway           = 502
	StatusServiceUnavailable   = 503
	StatusGatewayTimeout       = 504
	StatusVersionNotSupported  = 505
)

var statusText = map[int]string{
	StatusOK:                   "OK",
	StatusCreated:              "Created",
	StatusNoContent:            "No Content",
	StatusMovedPermanently:     "Moved Permanently",
	StatusFound:                "Found",
	StatusBadRequest:           "Bad Request",
	StatusForbidden:            "Forbidden",
	StatusNotFound:             "Not Found",
	StatusMethodNotAllowed:     "Method Not Allowed",
	StatusPayloadTooLarge:      "Payload Too Large",
	StatusHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusInternalServerError:  "Internal Server Error",
	StatusNotImplemented:       "Not Implemented",
	StatusBadGateway:           "Bad Gateway",
	StatusServiceUnavailable:   "Service Unavailable",
	StatusGatewayTimeout:       "Gateway Timeout",
	StatusVersionNotSupported:  "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for code. Unlisted codes get a
// generic phrase for their class.
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	switch {
	case code >= 500:
		return "Server Error"
	case code >= 400:
		return "Client Error"
	case code >= 300:
		return "Redirect"
	case code >= 200:
		return "Success"
	}
	return "Status " + strconv.Itoa(code)
}
