package site

import (
	"fmt"
	"strings"
)

// FieldError is a validation failure for one field of one server block.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a Config.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "site validation failed: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "site validation failed with %d errors:\n", len(e.Errors))
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", fe.Error())
	}
	return sb.String()
}

// Validate checks a parsed Config.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Servers) == 0 {
		return ValidationError{Errors: []FieldError{{Field: "servers", Message: "no server blocks configured"}}}
	}

	var errs []FieldError
	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		prefix := fmt.Sprintf("server[%d]", i)

		if srv.Port < 0 || srv.Port > 65535 {
			errs = append(errs, FieldError{Field: prefix + ".listen", Message: fmt.Sprintf("port %d out of range", srv.Port)})
		}
		if srv.Root == "" {
			errs = append(errs, FieldError{Field: prefix + ".root", Message: "root is required"})
		}
		if srv.MaxBodySize <= 0 {
			errs = append(errs, FieldError{Field: prefix + ".client_max_body_size", Message: "must be greater than zero"})
		}

		for j := range srv.Locations {
			loc := &srv.Locations[j]
			lp := fmt.Sprintf("%s.location[%s]", prefix, loc.Path)
			if loc.Path == "" || loc.Path[0] != '/' {
				errs = append(errs, FieldError{Field: lp, Message: "path must start with '/'"})
			}
			if loc.CGIPath != "" && loc.CGIExtension == "" {
				errs = append(errs, FieldError{Field: lp + ".cgi_path", Message: "cgi_path requires cgi_extension"})
			}
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
