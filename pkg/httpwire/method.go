package httpwire

// Method is the enumerated request method. Anything the server does not
// handle is MethodUnknown; the raw token is kept on the Request.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGET
	MethodPOST
	MethodHEAD
	MethodDELETE
)

// ParseMethod maps a request-line token to a Method. Matching is case
// sensitive, as method tokens are.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return MethodGET
	case "POST":
		return MethodPOST
	case "HEAD":
		return MethodHEAD
	case "DELETE":
		return MethodDELETE
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodGET:
		return "GET"
	case MethodPOST:
		return "POST"
	case MethodHEAD:
		return "HEAD"
	case MethodDELETE:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// KnownMethods lists the methods the server implements, in Allow-header
// order.
var KnownMethods = []Method{MethodGET, MethodPOST, MethodHEAD, MethodDELETE}
