package admin

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mercator-hq/webserv/pkg/accesslog"
)

// accessLogHandler answers GET /accesslog with the matching records.
//
// Query parameters: since, until (RFC 3339), method, status, min_status,
// path (prefix), server, limit, offset and format (json, csv, text).
func accessLogHandler(store accesslog.Storage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format := r.URL.Query().Get("format")
		if format == "" {
			format = accesslog.FormatJSON
		}

		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, "access log query failed", http.StatusInternalServerError)
			return
		}

		switch format {
		case accesslog.FormatJSON:
			w.Header().Set("Content-Type", "application/json")
		case accesslog.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		case accesslog.FormatText:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		default:
			http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
			return
		}
		_ = accesslog.Export(w, format, records)
	})
}

func parseQuery(v url.Values) (*accesslog.Query, error) {
	q := &accesslog.Query{
		Method:     v.Get("method"),
		PathPrefix: v.Get("path"),
		ServerName: v.Get("server"),
	}

	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"since", &q.Since}, {"until", &q.Until}} {
		if s := v.Get(f.name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", f.name, err)
			}
			*f.dst = t
		}
	}

	for _, f := range []struct {
		name string
		dst  *int
	}{{"status", &q.Status}, {"min_status", &q.MinStatus}, {"limit", &q.Limit}, {"offset", &q.Offset}} {
		if s := v.Get(f.name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid %s %q", f.name, s)
			}
			*f.dst = n
		}
	}
	return q, nil
}
