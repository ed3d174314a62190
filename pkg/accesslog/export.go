package accesslog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export formats accepted by Export.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{
	"id", "request_id", "time", "duration_ms", "remote", "listen", "method", "uri",
	"host", "status", "bytes_in", "bytes_out", "server_name", "location", "cgi",
}

type jsonRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Time       time.Time `json:"time"`
	DurationMs int64     `json:"duration_ms"`
	Remote     string    `json:"remote"`
	Listen     string    `json:"listen"`
	Method     string    `json:"method"`
	URI        string    `json:"uri"`
	Host       string    `json:"host,omitempty"`
	Status     int       `json:"status"`
	BytesIn    int64     `json:"bytes_in"`
	BytesOut   int64     `json:"bytes_out"`
	ServerName string    `json:"server_name,omitempty"`
	Location   string    `json:"location,omitempty"`
	CGI        bool      `json:"cgi"`
}

// Export writes records to w in format.
func Export(w io.Writer, format string, records []*Record) error {
	switch format {
	case FormatText, "":
		return writeText(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// writeText renders one line per record in the common log style:
// remote - - [time] "METHOD URI" status bytes duration
func writeText(w io.Writer, records []*Record) error {
	for _, r := range records {
		_, err := fmt.Fprintf(w, "%s - - [%s] \"%s %s\" %d %d %dms\n",
			r.Remote, r.Time.Format("02/Jan/2006:15:04:05 -0700"),
			r.Method, r.URI, r.Status, r.BytesOut, r.Duration.Milliseconds())
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, records []*Record) error {
	out := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		out = append(out, jsonRecord{
			ID:         r.ID,
			RequestID:  r.RequestID,
			Time:       r.Time,
			DurationMs: r.Duration.Milliseconds(),
			Remote:     r.Remote,
			Listen:     r.Listen,
			Method:     r.Method,
			URI:        r.URI,
			Host:       r.Host,
			Status:     r.Status,
			BytesIn:    r.BytesIn,
			BytesOut:   r.BytesOut,
			ServerName: r.ServerName,
			Location:   r.Location,
			CGI:        r.CGI,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCSV(w io.Writer, records []*Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.RequestID,
			r.Time.Format(time.RFC3339Nano),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.Remote,
			r.Listen,
			r.Method,
			r.URI,
			r.Host,
			strconv.Itoa(r.Status),
			strconv.FormatInt(r.BytesIn, 10),
			strconv.FormatInt(r.BytesOut, 10),
			r.ServerName,
			r.Location,
			strconv.FormatBool(r.CGI),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
