// Package aviationwx fetches weather products from the aviationweather.gov
// data API. All fetches go through a shared TTL cache, a circuit breaker
// around the transport, and a linear-backoff retry loop. A 400 response
// means "no data for these parameters" upstream and is surfaced as an
// empty collection, never as an error.
package aviationwx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/skybrief/avwx-risk/internal/cache"
	"github.com/skybrief/avwx-risk/internal/domain"
	"github.com/skybrief/avwx-risk/internal/observability"
)

const (
	defaultBaseURL       = "https://aviationweather.gov/api/data"
	defaultTimeout       = 15 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 1 * time.Second
)

// errNoData marks an upstream 400: the provider has no records for the
// requested parameters. Callers get an empty collection.
var errNoData = errors.New("no data for requested parameters")

// errTransient marks failures worth retrying: network errors, timeouts,
// and 5xx responses.
var errTransient = errors.New("transient upstream failure")

// Config carries the tunable knobs for the upstream client. Zero values
// fall back to production defaults.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Client talks to the aviation weather API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	cache          *cache.Cache
	breaker        *gobreaker.CircuitBreaker
	clock          clockwork.Clock
	metrics        *observability.Metrics
	logger         *slog.Logger
	retryAttempts  int
	retryBaseDelay time.Duration
}

// NewClient creates an upstream client. The cache may be shared with other
// components; pass nil for clock to use the wall clock.
func NewClient(cfg Config, c *cache.Cache, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL, clock)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "aviationwx",
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		cache:          c,
		breaker:        breaker,
		clock:          clock,
		metrics:        metrics,
		logger:         logger,
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// fetch returns the raw response body for one data kind, consulting the
// cache first. Transient failures are retried with a linear backoff
// (attempt number times the base delay). A no-data response short-circuits
// to an empty JSON array and is not cached.
func (c *Client) fetch(ctx context.Context, kind Kind, params url.Values) ([]byte, error) {
	key := cacheKey(kind, params)
	if body, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return body.([]byte), nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	var lastErr error
	attempts := c.retryAttempts + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		start := c.clock.Now()
		body, err := c.doAttempt(ctx, kind, params)
		c.metrics.UpstreamDuration.WithLabelValues(string(kind)).Observe(c.clock.Since(start).Seconds())

		if err == nil {
			c.metrics.UpstreamRequests.WithLabelValues(string(kind), "success").Inc()
			c.cache.Set(key, body, 0)
			return body, nil
		}
		if errors.Is(err, errNoData) {
			c.metrics.UpstreamRequests.WithLabelValues(string(kind), "no_data").Inc()
			c.logger.Info("no upstream data for parameters", "kind", kind)
			return []byte("[]"), nil
		}
		if !errors.Is(err, errTransient) {
			c.metrics.UpstreamRequests.WithLabelValues(string(kind), "error").Inc()
			return nil, err
		}

		lastErr = err
		if attempt < attempts {
			delay := time.Duration(attempt) * c.retryBaseDelay
			c.metrics.UpstreamRetries.WithLabelValues(string(kind)).Inc()
			c.logger.Warn("retrying upstream fetch",
				"kind", kind, "attempt", attempt, "max_attempts", attempts,
				"delay", delay, "error", err)
			select {
			case <-c.clock.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	c.metrics.UpstreamRequests.WithLabelValues(string(kind), "error").Inc()
	return nil, fmt.Errorf("%s fetch failed after %d attempts: %w", kind, attempts, lastErr)
}

func (c *Client) doAttempt(ctx context.Context, kind Kind, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, string(kind), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "avwx-risk/1.0")

	// The breaker wraps only the transport call so that no-data responses
	// and upstream rejections don't count toward tripping it.
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// An open breaker means the upstream is already known-bad; retrying
		// immediately would only hammer it further.
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s request: %w: %w", kind, errTransient, err)
	}
	resp := result.(*http.Response)
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		io.Copy(io.Discard, resp.Body)
		return nil, errNoData
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s upstream status %d: %s: %w", kind, resp.StatusCode, body, errTransient)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s upstream status %d: %s", kind, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w: %w", kind, errTransient, err)
	}
	return body, nil
}

// decodeList fetches one kind and decodes the response collection.
func decodeList[T any](ctx context.Context, c *Client, kind Kind, stations []string, hours int) ([]T, error) {
	body, err := c.fetch(ctx, kind, buildParams(kind, stations, hours))
	if err != nil {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", kind, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// FetchMETAR returns current observations for the given stations.
func (c *Client) FetchMETAR(ctx context.Context, stations []string, hours int) ([]domain.RawMETAR, error) {
	return decodeList[domain.RawMETAR](ctx, c, KindMETAR, stations, hours)
}

// FetchTAF returns terminal forecasts for the given stations.
func (c *Client) FetchTAF(ctx context.Context, stations []string, hours int) ([]domain.RawTAF, error) {
	return decodeList[domain.RawTAF](ctx, c, KindTAF, stations, hours)
}

// FetchPIREPs returns recent pilot reports. PIREPs are positional, not
// station-scoped, so there is no identifier filter.
func (c *Client) FetchPIREPs(ctx context.Context, hours int) ([]domain.RawPIREP, error) {
	return decodeList[domain.RawPIREP](ctx, c, KindPIREP, nil, hours)
}

// FetchSIGMETs returns active significant weather advisories.
func (c *Client) FetchSIGMETs(ctx context.Context, hours int) ([]domain.RawSIGMET, error) {
	return decodeList[domain.RawSIGMET](ctx, c, KindSIGMET, nil, hours)
}

// FetchAFD returns area forecast discussions for the given stations.
func (c *Client) FetchAFD(ctx context.Context, stations []string, hours int) ([]domain.RawAFD, error) {
	return decodeList[domain.RawAFD](ctx, c, KindAFD, stations, hours)
}

// FetchStationInfo returns station metadata for the given identifiers.
func (c *Client) FetchStationInfo(ctx context.Context, stations []string) ([]domain.RawStation, error) {
	return decodeList[domain.RawStation](ctx, c, KindStationInfo, stations, 0)
}

// ComprehensiveOptions tunes the lookback window per data kind for a
// comprehensive fetch. Zero values mean 2h of observations and 6h of
// forecasts, pilot reports, and advisories.
type ComprehensiveOptions struct {
	METARHours  int
	TAFHours    int
	PIREPHours  int
	SIGMETHours int
}

func (o ComprehensiveOptions) withDefaults() ComprehensiveOptions {
	if o.METARHours <= 0 {
		o.METARHours = 2
	}
	if o.TAFHours <= 0 {
		o.TAFHours = 6
	}
	if o.PIREPHours <= 0 {
		o.PIREPHours = 6
	}
	if o.SIGMETHours <= 0 {
		o.SIGMETHours = 6
	}
	return o
}

// ComprehensiveData bundles every data kind for a set of stations.
type ComprehensiveData struct {
	Stations  []string           `json:"stations"`
	METAR     []domain.RawMETAR  `json:"metar"`
	TAF       []domain.RawTAF    `json:"taf"`
	PIREP     []domain.RawPIREP  `json:"pirep"`
	SIGMET    []domain.RawSIGMET `json:"sigmet"`
	Timestamp time.Time          `json:"timestamp"`
}

// FetchComprehensive gathers observations, forecasts, pilot reports, and
// advisories concurrently. A failed kind degrades to an empty collection
// so one flaky endpoint never sinks the whole bundle.
func (c *Client) FetchComprehensive(ctx context.Context, stations []string, opts ComprehensiveOptions) ComprehensiveData {
	opts = opts.withDefaults()
	data := ComprehensiveData{
		Stations:  stations,
		METAR:     []domain.RawMETAR{},
		TAF:       []domain.RawTAF{},
		PIREP:     []domain.RawPIREP{},
		SIGMET:    []domain.RawSIGMET{},
		Timestamp: c.clock.Now().UTC(),
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		records, err := c.FetchMETAR(ctx, stations, opts.METARHours)
		if err != nil {
			c.logger.Warn("comprehensive fetch: metar failed", "error", err)
			return
		}
		data.METAR = records
	}()
	go func() {
		defer wg.Done()
		records, err := c.FetchTAF(ctx, stations, opts.TAFHours)
		if err != nil {
			c.logger.Warn("comprehensive fetch: taf failed", "error", err)
			return
		}
		data.TAF = records
	}()
	go func() {
		defer wg.Done()
		records, err := c.FetchPIREPs(ctx, opts.PIREPHours)
		if err != nil {
			c.logger.Warn("comprehensive fetch: pirep failed", "error", err)
			return
		}
		data.PIREP = records
	}()
	go func() {
		defer wg.Done()
		records, err := c.FetchSIGMETs(ctx, opts.SIGMETHours)
		if err != nil {
			c.logger.Warn("comprehensive fetch: sigmet failed", "error", err)
			return
		}
		data.SIGMET = records
	}()

	wg.Wait()
	return data
}

// StationLookup is one station's metadata, or the reason it could not
// be resolved.
type StationLookup struct {
	Info  *domain.RawStation `json:"info,omitempty"`
	Error string             `json:"error,omitempty"`
}

// MultiStationData maps each requested identifier to its lookup result.
type MultiStationData struct {
	Route     []string                 `json:"route"`
	Stations  map[string]StationLookup `json:"stations"`
	Timestamp time.Time                `json:"timestamp"`
}

// FetchMultipleStations resolves metadata for each station concurrently.
// Every requested identifier gets an entry: either its record or the
// failure reason.
func (c *Client) FetchMultipleStations(ctx context.Context, stations []string) MultiStationData {
	data := MultiStationData{
		Route:     stations,
		Stations:  make(map[string]StationLookup, len(stations)),
		Timestamp: c.clock.Now().UTC(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range stations {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			records, err := c.FetchStationInfo(ctx, []string{id})

			var lookup StationLookup
			switch {
			case err != nil:
				lookup.Error = err.Error()
			case len(records) == 0:
				lookup.Error = "station not found"
			default:
				lookup.Info = &records[0]
			}

			mu.Lock()
			data.Stations[id] = lookup
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return data
}

// SearchOptions filters a free-text search across fetched reports.
type SearchOptions struct {
	Stations []string
	Hours    int
}

// SearchResult is one matching report.
type SearchResult struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	Kind    string `json:"type"`
	ObsTime int64  `json:"timestamp"`
}

// SearchData carries the matches for one query.
type SearchData struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
}

// Search runs a case-insensitive substring match over raw observation and
// pilot-report text. Each source is best-effort: a failed source degrades
// to no matches without discarding hits from the other.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) SearchData {
	data := SearchData{
		Query:     query,
		Results:   []SearchResult{},
		Timestamp: c.clock.Now().UTC(),
	}
	needle := strings.ToLower(query)

	metars, err := c.FetchMETAR(ctx, opts.Stations, opts.Hours)
	if err != nil {
		c.logger.Warn("search: metar source failed", "error", err)
	}
	for _, m := range metars {
		if strings.Contains(strings.ToLower(m.RawOb), needle) {
			data.Results = append(data.Results, SearchResult{
				Title:   fmt.Sprintf("METAR - %s", m.ICAOID),
				Text:    m.RawOb,
				Kind:    "metar",
				ObsTime: m.ObsTime,
			})
		}
	}

	pireps, err := c.FetchPIREPs(ctx, opts.Hours)
	if err != nil {
		c.logger.Warn("search: pirep source failed", "error", err)
	}
	for _, p := range pireps {
		if strings.Contains(strings.ToLower(p.RawOb), needle) {
			data.Results = append(data.Results, SearchResult{
				Title:   fmt.Sprintf("PIREP - %s", p.AircraftRef),
				Text:    p.RawOb,
				Kind:    "pirep",
				ObsTime: p.ObsTime,
			})
		}
	}

	return data
}

// DecodedMETARData pairs raw observations with their plain-language
// decodings for one station.
type DecodedMETARData struct {
	Station   string                      `json:"station"`
	Hours     int                         `json:"hours"`
	Raw       []domain.RawMETAR           `json:"raw"`
	Decoded   []domain.DecodedObservation `json:"decoded"`
	Timestamp time.Time                   `json:"timestamp"`
	Error     string                      `json:"error,omitempty"`
}

// DecodedMETAR fetches observations for a station and decodes each one.
// A station with no recent observations gets an Error note so callers can
// tell "no data" apart from a quiet report.
func (c *Client) DecodedMETAR(ctx context.Context, station string, hours int) (DecodedMETARData, error) {
	data := DecodedMETARData{
		Station:   station,
		Hours:     hours,
		Decoded:   []domain.DecodedObservation{},
		Timestamp: c.clock.Now().UTC(),
	}

	records, err := c.FetchMETAR(ctx, []string{station}, hours)
	if err != nil {
		return data, err
	}
	data.Raw = records
	if len(records) == 0 {
		data.Error = "No METAR data available"
		return data, nil
	}
	for _, m := range records {
		data.Decoded = append(data.Decoded, domain.DecodeObservation(m))
	}
	return data, nil
}

// HealthStatus reports per-endpoint reachability.
type HealthStatus struct {
	Healthy   bool              `json:"healthy"`
	Endpoints map[string]string `json:"endpoints"`
	Timestamp time.Time         `json:"timestamp"`
}

// HealthCheck probes each upstream endpoint with a minimal request.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:   true,
		Endpoints: make(map[string]string),
		Timestamp: c.clock.Now().UTC(),
	}

	probes := []struct {
		kind  Kind
		probe func(context.Context) error
	}{
		{KindMETAR, func(ctx context.Context) error {
			_, err := c.FetchMETAR(ctx, []string{"KJFK"}, 1)
			return err
		}},
		{KindTAF, func(ctx context.Context) error {
			_, err := c.FetchTAF(ctx, []string{"KJFK"}, 1)
			return err
		}},
		{KindPIREP, func(ctx context.Context) error {
			_, err := c.FetchPIREPs(ctx, 1)
			return err
		}},
		{KindSIGMET, func(ctx context.Context) error {
			_, err := c.FetchSIGMETs(ctx, 1)
			return err
		}},
		{KindAFD, func(ctx context.Context) error {
			_, err := c.FetchAFD(ctx, []string{"KJFK"}, 1)
			return err
		}},
		{KindStationInfo, func(ctx context.Context) error {
			_, err := c.FetchStationInfo(ctx, []string{"KJFK"})
			return err
		}},
	}

	for _, p := range probes {
		if err := p.probe(ctx); err != nil {
			status.Healthy = false
			status.Endpoints[string(p.kind)] = fmt.Sprintf("unhealthy: %v", err)
			continue
		}
		status.Endpoints[string(p.kind)] = "healthy"
	}
	return status
}

// CacheStats exposes the shared cache counters.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// ClearCache drops every cached upstream response.
func (c *Client) ClearCache() {
	c.cache.Clear()
}
