package site

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
)

// ParseError reports a structural or directive error in a site file.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("site: line %d: %s", e.Line, e.Msg)
}

type parseState int

const (
	stateTop parseState = iota
	stateServer
	stateLocation
)

type parser struct {
	cfg   *Config
	state parseState
	srv   ServerBlock
	loc   LocationRule

	line      int
	blockLine int

	// words collected since the last ';', '{' or '}'
	pending     []string
	pendingLine int
}

// Parse reads a site file from r. The result is not validated; use Validate
// or Load for that.
func Parse(r io.Reader) (*Config, error) {
	p := &parser{cfg: &Config{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		p.line++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("site: read: %w", err)
	}

	if len(p.pending) > 0 {
		return nil, p.errorf(p.pendingLine, "unterminated statement %q", strings.Join(p.pending, " "))
	}
	switch p.state {
	case stateServer:
		return nil, p.errorf(p.blockLine, "unclosed server block")
	case stateLocation:
		return nil, p.errorf(p.blockLine, "unclosed location block")
	}
	return p.cfg, nil
}

// ParseBytes is Parse over an in-memory file.
func ParseBytes(data []byte) (*Config, error) {
	return Parse(bytes.NewReader(data))
}

func (p *parser) errorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// parseLine splits a line into words and the structural tokens ';', '{', '}'.
func (p *parser) parseLine(line string) error {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			if len(p.pending) == 0 {
				p.pendingLine = p.line
			}
			p.pending = append(p.pending, word.String())
			word.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '#':
			// trailing comment
			i = len(line)
		case c == ' ' || c == '\t':
			flush()
		case c == ';':
			flush()
			if err := p.endStatement(); err != nil {
				return err
			}
		case c == '{':
			flush()
			if err := p.openBlock(); err != nil {
				return err
			}
		case c == '}':
			flush()
			if len(p.pending) > 0 {
				// last directive of a block may omit its ';'
				if err := p.endStatement(); err != nil {
					return err
				}
			}
			if err := p.closeBlock(); err != nil {
				return err
			}
		default:
			word.WriteByte(c)
		}
	}
	flush()

	// "server" or "location /x" may be followed by '{' on the next line.
	if len(p.pending) > 0 && !p.awaitingBrace() {
		return p.endStatement()
	}
	return nil
}

func (p *parser) awaitingBrace() bool {
	if len(p.pending) == 1 && p.pending[0] == "server" {
		return true
	}
	return len(p.pending) == 2 && p.pending[0] == "location"
}

func (p *parser) endStatement() error {
	words := p.pending
	line := p.pendingLine
	p.pending = nil
	if len(words) == 0 {
		return nil
	}

	switch p.state {
	case stateTop:
		return p.errorf(line, "directive %q outside server block", words[0])
	case stateServer:
		return applyServerDirective(&p.srv, words, line)
	default:
		return applyLocationDirective(&p.loc, words, line)
	}
}

func (p *parser) openBlock() error {
	words := p.pending
	line := p.pendingLine
	p.pending = nil
	if len(words) == 0 {
		return p.errorf(p.line, "unexpected '{'")
	}

	switch words[0] {
	case "server":
		if len(words) != 1 {
			return p.errorf(line, "server block takes no arguments")
		}
		if p.state != stateTop {
			return p.errorf(line, "nested server blocks not allowed")
		}
		p.state = stateServer
		p.srv = defaultServerBlock()
		p.blockLine = line
		return nil

	case "location":
		if p.state == stateTop {
			return p.errorf(line, "location block outside server block")
		}
		if p.state == stateLocation {
			return p.errorf(line, "nested location blocks not allowed")
		}
		if len(words) != 2 {
			return p.errorf(line, "location requires exactly one path")
		}
		if !strings.HasPrefix(words[1], "/") {
			return p.errorf(line, "location path %q must start with '/'", words[1])
		}
		p.state = stateLocation
		p.loc = LocationRule{Path: words[1]}
		p.blockLine = line
		return nil
	}
	return p.errorf(line, "unknown block %q", words[0])
}

func (p *parser) closeBlock() error {
	switch p.state {
	case stateLocation:
		p.srv.Locations = append(p.srv.Locations, p.loc)
		p.loc = LocationRule{}
		p.state = stateServer
	case stateServer:
		p.cfg.Servers = append(p.cfg.Servers, p.srv)
		p.srv = ServerBlock{}
		p.state = stateTop
	default:
		return p.errorf(p.line, "unexpected '}' outside server block")
	}
	return nil
}

func applyServerDirective(srv *ServerBlock, words []string, line int) error {
	name, args := words[0], words[1:]
	switch name {
	case "listen":
		if len(args) != 1 {
			return &ParseError{Line: line, Msg: "listen takes one argument"}
		}
		host, port, err := parseListen(args[0])
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		if host != "" {
			srv.Host = host
		}
		srv.Port = port
	case "server_name":
		if len(args) < 1 {
			return &ParseError{Line: line, Msg: "server_name requires a name"}
		}
		srv.ServerName = args[0]
	case "root":
		if len(args) != 1 {
			return &ParseError{Line: line, Msg: "root takes one argument"}
		}
		srv.Root = args[0]
	case "index":
		if len(args) < 1 {
			return &ParseError{Line: line, Msg: "index requires a file name"}
		}
		srv.Index = args[0]
	case "client_max_body_size":
		if len(args) != 1 {
			return &ParseError{Line: line, Msg: "client_max_body_size takes one argument"}
		}
		n, err := ParseSize(args[0])
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		srv.MaxBodySize = n
	case "error_page":
		if srv.ErrorPages == nil {
			srv.ErrorPages = make(map[int]string)
		}
		if err := parseErrorPage(args, srv.ErrorPages); err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
	default:
		return &ParseError{Line: line, Msg: fmt.Sprintf("unknown server directive %q", name)}
	}
	return nil
}

func applyLocationDirective(loc *LocationRule, words []string, line int) error {
	name, args := words[0], words[1:]
	need := func(n int) error {
		if len(args) != n {
			return &ParseError{Line: line, Msg: fmt.Sprintf("%s takes %d argument(s)", name, n)}
		}
		return nil
	}

	switch name {
	case "root":
		if err := need(1); err != nil {
			return err
		}
		loc.Root = args[0]
	case "index":
		if len(args) < 1 {
			return &ParseError{Line: line, Msg: "index requires a file name"}
		}
		loc.Index = args[0]
	case "autoindex":
		if err := need(1); err != nil {
			return err
		}
		switch args[0] {
		case "on":
			loc.Autoindex = true
		case "off":
			loc.Autoindex = false
		default:
			return &ParseError{Line: line, Msg: fmt.Sprintf("autoindex expects on|off, got %q", args[0])}
		}
	case "allow_methods", "methods":
		loc.AllowedMethods = parseAllowedMethods(args)
	case "cgi_extension":
		if err := need(1); err != nil {
			return err
		}
		ext := args[0]
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		loc.CGIExtension = ext
	case "cgi_path":
		if err := need(1); err != nil {
			return err
		}
		loc.CGIPath = args[0]
	case "upload_path":
		if err := need(1); err != nil {
			return err
		}
		loc.UploadPath = args[0]
	case "return":
		if len(args) < 1 {
			return &ParseError{Line: line, Msg: "return requires a target"}
		}
		// "return 301 /new" and "return /new" are both accepted
		loc.Redirect = args[len(args)-1]
	case "error_page":
		if loc.ErrorPages == nil {
			loc.ErrorPages = make(map[int]string)
		}
		if err := parseErrorPage(args, loc.ErrorPages); err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
	default:
		return &ParseError{Line: line, Msg: fmt.Sprintf("unknown location directive %q", name)}
	}
	return nil
}

// parseListen accepts "host:port" or a bare port.
func parseListen(v string) (string, int, error) {
	host := ""
	portStr := v
	if strings.Contains(v, ":") {
		h, p, err := net.SplitHostPort(v)
		if err != nil {
			return "", 0, fmt.Errorf("invalid listen address %q: %w", v, err)
		}
		host, portStr = h, p
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	return host, port, nil
}

// ParseSize parses a byte count with an optional k, m or g suffix.
func ParseSize(v string) (int64, error) {
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch v[len(v)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	}
	num := v
	if mult != 1 {
		num = v[:len(v)-1]
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("size %q out of range", v)
	}
	return n * mult, nil
}

// parseErrorPage handles "error_page <code>... <path>".
func parseErrorPage(args []string, pages map[int]string) error {
	if len(args) < 2 {
		return fmt.Errorf("error_page requires at least one code and a path")
	}
	path := args[len(args)-1]
	for _, c := range args[:len(args)-1] {
		code, err := strconv.Atoi(c)
		if err != nil || code < 300 || code > 599 {
			return fmt.Errorf("invalid error_page status %q", c)
		}
		pages[code] = path
	}
	return nil
}

// parseAllowedMethods keeps the methods the server knows about. An empty
// result collapses to GET so a typo never opens a location to everything.
func parseAllowedMethods(args []string) []string {
	methods := make([]string, 0, len(args))
	for _, m := range args {
		switch m {
		case "GET", "POST", "DELETE", "HEAD":
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		methods = append(methods, "GET")
	}
	return methods
}
