// Package wakatime fetches today's coding time from the WakaTime summaries
// API (or a compatible server) for the {wakatime.*} presence variables.
//
// [Client.Today] never leaves the caller without a value: failures yield the
// last summary cached on disk for the same day, or [DefaultSummary].
package wakatime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.trai.ch/zerr"

	"tools.zach/dev/trackpad/internal/atomicfile"
)

// maxResponseBytes caps the summaries body.
const maxResponseBytes = 1 << 20

// ErrStatus is returned when the API answers with a non-2xx status.
var ErrStatus = errors.New("unexpected wakatime status")

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Summary is the cumulative coding time for a range, as reported by the
// summaries endpoint.
type Summary struct {
	// Decimal is hours as a decimal string ("1.50").
	Decimal string `json:"decimal"`
	// Digital is hours and minutes ("1:30").
	Digital string `json:"digital"`
	// Seconds is the total in seconds.
	Seconds float64 `json:"seconds"`
	// Text is the human-readable total ("1 hr 30 mins").
	Text string `json:"text"`
}

// DefaultSummary is used when no data is available.
func DefaultSummary() Summary {
	return Summary{Decimal: "0", Digital: "0:00", Seconds: 0, Text: "0s"}
}

// summariesResponse is the subset of the summaries payload that is read.
type summariesResponse struct {
	CumulativeTotal *Summary `json:"cumulative_total"`
}

// cacheEntry is the on-disk fallback record.
type cacheEntry struct {
	Date    string  `json:"date"`
	Summary Summary `json:"summary"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Option configures a [Client].
type Option func(*Client)

// WithCache stores the last good summary at path and serves it on failures
// during the same calendar day.
func WithCache(path string) Option {
	return func(c *Client) { c.cachePath = path }
}

// WithClock replaces time.Now for date selection.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRetryWait sets the retry backoff bounds.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// Client queries the summaries endpoint for the current user.
type Client struct {
	// apiKey is the secret key; empty disables fetching.
	apiKey string
	// baseURL is the API root without a trailing slash.
	baseURL string
	// http retries transient failures twice.
	http *retryablehttp.Client
	// cachePath is the fallback file; empty disables the cache.
	cachePath string
	// now returns the current time.
	now func() time.Time
}

// New returns a client for the API at baseURL. timeout bounds each attempt.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.HTTPClient.Timeout = timeout
	hc.Logger = slog.Default().With("component", "wakatime")
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Today returns the cumulative coding time for the current local day.
//
// Without an API key it returns [DefaultSummary] and no error. A fetch
// failure returns an error for logging together with the best available
// summary: today's cached value if there is one, otherwise the default.
func (c *Client) Today(ctx context.Context) (Summary, error) {
	if !c.Enabled() {
		return DefaultSummary(), nil
	}

	day := dayString(c.now())
	sum, err := c.fetch(ctx, day)
	if err == nil {
		c.storeCache(day, sum)
		return sum, nil
	}

	if cached, ok := c.loadCache(day); ok {
		return cached, zerr.Wrap(err, "using cached wakatime summary")
	}
	return DefaultSummary(), err
}

// fetch performs the summaries request for day.
func (c *Client) fetch(ctx context.Context, day string) (Summary, error) {
	q := url.Values{}
	q.Set("start", day)
	q.Set("end", day)
	endpoint := c.baseURL + "/users/current/summaries?" + q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Summary{}, zerr.With(zerr.Wrap(err, "failed to build wakatime request"), "url", c.baseURL)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey)))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Summary{}, zerr.With(zerr.Wrap(err, "wakatime request failed"), "url", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Summary{}, zerr.With(zerr.With(ErrStatus, "status", resp.StatusCode), "url", c.baseURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Summary{}, zerr.Wrap(err, "failed to read wakatime response")
	}

	var parsed summariesResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.CumulativeTotal == nil {
		slog.Debug("wakatime response has no cumulative_total", "error", err)
		return DefaultSummary(), nil
	}
	return *parsed.CumulativeTotal, nil
}

// ///////////////////////////////////////////////
// Cache
// ///////////////////////////////////////////////

// storeCache records sum as the latest value for day. Failures are logged.
func (c *Client) storeCache(day string, sum Summary) {
	if c.cachePath == "" {
		return
	}
	if err := atomicfile.WriteJSON(c.cachePath, cacheEntry{Date: day, Summary: sum}, 0o644); err != nil {
		slog.Warn("failed to write wakatime cache", "error", err)
	}
}

// loadCache returns the cached summary if it was recorded for day.
func (c *Client) loadCache(day string) (Summary, bool) {
	if c.cachePath == "" {
		return Summary{}, false
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return Summary{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Debug("ignoring corrupt wakatime cache", "path", c.cachePath, "error", err)
		return Summary{}, false
	}
	if entry.Date != day {
		return Summary{}, false
	}
	return entry.Summary, true
}

// dayString formats t as YYYY-M-D without zero padding.
func dayString(t time.Time) string {
	y, m, d := t.Date()
	return strconv.Itoa(y) + "-" + strconv.Itoa(int(m)) + "-" + strconv.Itoa(d)
}
