// Package webhook implements a report.Observer that pushes each completed
// sweep to an HTTP endpoint as a URL-encoded GET, the same shape as the
// teacher's metOfficeWOW push in reporting.go: build a small tagged
// struct, encode it with go-querystring, append it to a base URL, and GET
// it with a bounded client timeout.
package webhook

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/gr-butler/ivtracer/internal/report"
)

// RequestTimeout bounds a single push, mirroring reporting.go's
// client := http.Client{Timeout: time.Second * 30}.
const RequestTimeout = 30 * time.Second

// digest is the URL-encoded shape a push sends, tagged the way
// reporting.go's weatherData struct is.
type digest struct {
	Isc          uint16 `url:"isc"`
	Voc          uint16 `url:"voc"`
	Points       int    `url:"points"`
	Measurements int     `url:"measurements"`
	ElapsedUsecs int64   `url:"elapsed_usec"`
}

// Sink pushes a GET to baseURL + "?" + encoded digest for every report.
type Sink struct {
	baseURL string
	client  http.Client
}

// NewSink builds a Sink posting to baseURL.
func NewSink(baseURL string) *Sink {
	return &Sink{
		baseURL: baseURL,
		client:  http.Client{Timeout: RequestTimeout},
	}
}

// Observe satisfies report.Observer.
func (s *Sink) Observe(r report.SweepReport) error {
	d := digest{
		Isc:          r.Isc,
		Voc:          r.Voc,
		Points:       len(r.Points),
		Measurements: r.NumMeas,
		ElapsedUsecs: r.ElapsedUsecs,
	}
	vals, err := query.Values(d)
	if err != nil {
		return fmt.Errorf("webhook: encoding report: %w", err)
	}

	resp, err := s.client.Get(s.baseURL + "?" + vals.Encode())
	if err != nil {
		return fmt.Errorf("webhook: GET %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook: unexpected status %s", resp.Status)
	}
	return nil
}
