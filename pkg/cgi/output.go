package cgi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mercator-hq/webserv/pkg/httpwire"
)

// ErrBadStatus is returned for a Status header that does not start with a
// three-digit code.
var ErrBadStatus = errors.New("cgi: invalid Status header")

// ParseOutput turns a script's stdout into a response. Without a blank-line
// terminator the whole output is the body.
func ParseOutput(out []byte) (*httpwire.Response, error) {
	head, body, ok := httpwire.SplitHead(out)
	resp := &httpwire.Response{Status: httpwire.StatusOK, Body: body}
	if !ok {
		return resp, nil
	}

	hasStatus := false
	for len(head) > 0 {
		var line []byte
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			line, head = head[:i], head[i+1:]
		} else {
			line, head = head, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		name := string(line[:colon])
		value := strings.TrimSpace(string(line[colon+1:]))

		if strings.EqualFold(name, "Status") {
			code, reason, err := parseStatus(value)
			if err != nil {
				return nil, err
			}
			resp.Status, resp.Reason = code, reason
			hasStatus = true
			continue
		}
		resp.Add(name, value)
	}

	if !hasStatus && resp.Get("Location") != "" {
		resp.Status = httpwire.StatusFound
	}
	return resp, nil
}

// parseStatus reads "404 Not Found" or "404".
func parseStatus(v string) (int, string, error) {
	codeText, reason, _ := strings.Cut(v, " ")
	if len(codeText) != 3 {
		return 0, "", fmt.Errorf("%w: %q", ErrBadStatus, v)
	}
	code, err := strconv.Atoi(codeText)
	if err != nil || code < 100 {
		return 0, "", fmt.Errorf("%w: %q", ErrBadStatus, v)
	}
	return code, strings.TrimSpace(reason), nil
}
