package site

// Default values for server blocks.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
	DefaultServerName  = "localhost"
	DefaultRoot        = "./www"
	DefaultIndex       = "index.html"
	DefaultMaxBodySize = int64(1 << 20) // 1 MiB
)

// defaultServerBlock is the starting point for every parsed server block.
func defaultServerBlock() ServerBlock {
	return ServerBlock{
		Host:        DefaultHost,
		Port:        DefaultPort,
		ServerName:  DefaultServerName,
		Root:        DefaultRoot,
		Index:       DefaultIndex,
		MaxBodySize: DefaultMaxBodySize,
		ErrorPages: map[int]string{
			404: "/error/404.html",
			500: "/error/500.html",
		},
	}
}

// Default returns the built-in single-server configuration used when the
// site file is missing or malformed.
func Default() *Config {
	srv := defaultServerBlock()
	srv.Locations = []LocationRule{
		{
			Path:           "/",
			Root:           DefaultRoot,
			Index:          DefaultIndex,
			AllowedMethods: []string{"GET", "POST", "DELETE"},
		},
		{
			Path:           "/cgi-bin",
			Root:           DefaultRoot,
			CGIExtension:   ".py",
			CGIPath:        "/usr/bin/python3",
			AllowedMethods: []string{"GET", "POST"},
		},
	}
	return &Config{
		Servers: []ServerBlock{srv},
		Source:  "default",
	}
}
