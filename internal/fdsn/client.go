// Package fdsn is a small client for the FDSN station and dataselect web
// services.
package fdsn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

// TimeFormat is the timestamp layout used in queries and selections.
const TimeFormat = "2006-01-02T15:04:05.000000"

var (
	// ErrEmptyResult is returned when a service has no data for a request.
	ErrEmptyResult = errors.New("empty result")
	// ErrUnknownSite is returned for a data center name with no configured URL.
	ErrUnknownSite = errors.New("unknown FDSN site")
)

// Client talks to one FDSN data center.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new FDSN client. A zero timeout means 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SiteURL resolves a data center name (case-insensitive) against the
// configured sites.
func SiteURL(sites map[string]string, site string) (string, error) {
	u, ok := sites[strings.ToLower(site)]
	if !ok || u == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownSite, site)
	}
	return u, nil
}

// StationQuery selects stations around an origin.
type StationQuery struct {
	Lat         float64
	Lon         float64
	MinRadius   float64 // degrees
	MaxRadius   float64 // degrees
	StartBefore time.Time
	EndAfter    time.Time
	Channel     string
	// MatchTimeseries restricts results to channels with data (IRIS only).
	MatchTimeseries bool
}

func (q StationQuery) values() url.Values {
	v := url.Values{}
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
	v.Set("latitude", f(q.Lat))
	v.Set("longitude", f(q.Lon))
	v.Set("minradius", f(q.MinRadius))
	v.Set("maxradius", f(q.MaxRadius))
	if !q.StartBefore.IsZero() {
		v.Set("startbefore", q.StartBefore.UTC().Format(TimeFormat))
	}
	if !q.EndAfter.IsZero() {
		v.Set("endafter", q.EndAfter.UTC().Format(TimeFormat))
	}
	if q.Channel != "" {
		v.Set("channel", q.Channel)
	}
	v.Set("format", "text")
	v.Set("level", "channel")
	v.Set("includerestricted", "false")
	if q.MatchTimeseries {
		v.Set("matchtimeseries", "true")
	}
	return v
}

// Stations runs a channel-level station query and returns the matching
// stations in the order the service lists them.
func (c *Client) Stations(ctx context.Context, q StationQuery) ([]core.Station, error) {
	u := c.baseURL + "/fdsnws/station/1/query?" + q.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("station query failed: %w", err)
	}
	defer body.Close()

	stations, err := ParseStationText(body)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, ErrEmptyResult
	}
	return stations, nil
}

// Dataselect requests waveform data for the selection and returns the raw
// miniSEED payload.
func (c *Client) Dataselect(ctx context.Context, selection []Selection) ([]byte, error) {
	if len(selection) == 0 {
		return nil, ErrEmptyResult
	}

	var sb strings.Builder
	for _, s := range selection {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/fdsnws/dataselect/1/query", strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("dataselect failed: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataselect response: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResult
	}
	return data, nil
}

// do sends the request and maps the FDSN "no data" statuses to ErrEmptyResult.
func (c *Client) do(req *http.Request) (io.ReadCloser, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNoContent, http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrEmptyResult
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
