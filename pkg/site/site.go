package site

import (
	"net"
	"strconv"
)

// Config is the process-wide collection of server blocks.
type Config struct {
	// Servers in declaration order. Never empty for a validated Config.
	Servers []ServerBlock

	// Source is the file the config was loaded from, or "default".
	Source string
}

// ServerBlock is one virtual server definition.
type ServerBlock struct {
	Host        string
	Port        int
	ServerName  string
	Root        string
	Index       string
	MaxBodySize int64

	// ErrorPages maps a status code to a page path relative to Root.
	ErrorPages map[int]string

	// Locations in declaration order; the order breaks resolution ties.
	Locations []LocationRule
}

// LocationRule is a path-scoped override inside a server block. Empty string
// fields inherit the server-level value.
type LocationRule struct {
	Path      string
	Root      string
	Index     string
	Autoindex bool

	// AllowedMethods holds upper-case method names. Empty means unrestricted.
	AllowedMethods []string

	CGIExtension string
	CGIPath      string
	UploadPath   string
	Redirect     string
	ErrorPages   map[int]string
}

// ListenAddr is a unique host/port pair the server must bind.
type ListenAddr struct {
	Host string
	Port int
}

// String returns host:port.
func (a ListenAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Address returns the block's listen address.
func (b *ServerBlock) Address() ListenAddr {
	return ListenAddr{Host: b.Host, Port: b.Port}
}

// Listeners returns the distinct listen addresses in declaration order.
func (c *Config) Listeners() []ListenAddr {
	seen := make(map[ListenAddr]bool, len(c.Servers))
	addrs := make([]ListenAddr, 0, len(c.Servers))
	for i := range c.Servers {
		addr := c.Servers[i].Address()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs
}

// EffectiveRoot returns the location root, or the server root if unset.
func (l *LocationRule) EffectiveRoot(b *ServerBlock) string {
	if l != nil && l.Root != "" {
		return l.Root
	}
	return b.Root
}

// EffectiveIndex returns the location index, or the server index if unset.
func (l *LocationRule) EffectiveIndex(b *ServerBlock) string {
	if l != nil && l.Index != "" {
		return l.Index
	}
	return b.Index
}

// HasCGI reports whether the location routes matching files to CGI.
func (l *LocationRule) HasCGI() bool {
	return l != nil && (l.CGIExtension != "" || l.CGIPath != "")
}

// ErrorPage looks up a custom page for status, location pages first.
func (b *ServerBlock) ErrorPage(loc *LocationRule, status int) (string, bool) {
	if loc != nil {
		if p, ok := loc.ErrorPages[status]; ok {
			return p, true
		}
	}
	p, ok := b.ErrorPages[status]
	return p, ok
}
