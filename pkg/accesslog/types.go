package accesslog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/webserv/pkg/server"
)

// Record is one access log entry.
type Record struct {
	ID        string
	RequestID string
	Time      time.Time
	Duration  time.Duration

	Remote string
	Listen string
	Method string
	URI    string
	Host   string

	Status   int
	BytesIn  int64
	BytesOut int64

	ServerName string
	Location   string
	CGI        bool
}

// NewRecord converts a server event into a record with a fresh ID.
func NewRecord(ev *server.RequestEvent) *Record {
	return &Record{
		ID:         uuid.New().String(),
		RequestID:  ev.ID,
		Time:       ev.Time.UTC(),
		Duration:   ev.Duration,
		Remote:     ev.Remote,
		Listen:     ev.Listen,
		Method:     ev.Method,
		URI:        ev.URI,
		Host:       ev.Host,
		Status:     ev.Status,
		BytesIn:    int64(ev.BytesIn),
		BytesOut:   int64(ev.BytesOut),
		ServerName: ev.ServerName,
		Location:   ev.Location,
		CGI:        ev.CGI,
	}
}

// Query filters records. Zero fields do not filter.
type Query struct {
	Since time.Time
	Until time.Time

	Method     string
	Status     int
	MinStatus  int
	PathPrefix string
	ServerName string

	// Limit defaults to DefaultQueryLimit when zero.
	Limit  int
	Offset int
}

// DefaultQueryLimit caps queries that do not set Limit.
const DefaultQueryLimit = 100

// Matches reports whether r passes every filter of q.
func (q *Query) Matches(r *Record) bool {
	if !q.Since.IsZero() && r.Time.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !r.Time.Before(q.Until) {
		return false
	}
	if q.Method != "" && r.Method != q.Method {
		return false
	}
	if q.Status != 0 && r.Status != q.Status {
		return false
	}
	if q.MinStatus != 0 && r.Status < q.MinStatus {
		return false
	}
	if q.PathPrefix != "" && !strings.HasPrefix(r.URI, q.PathPrefix) {
		return false
	}
	if q.ServerName != "" && r.ServerName != q.ServerName {
		return false
	}
	return true
}

// EffectiveLimit returns Limit or the default.
func (q *Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// Storage is implemented by every backend. Query returns newest first.
type Storage interface {
	Store(ctx context.Context, r *Record) error
	Query(ctx context.Context, q *Query) ([]*Record, error)
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteBefore removes records older than cutoff and returns how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
