package icd11

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Result sources and modules.
const (
	SourceWHO         = "WHO_ICD_API_v2"
	ModuleTraditional = "Traditional Medicine"
	ModuleGeneral     = "General Medicine"
)

// Result is one normalised ICD-11 search hit.
type Result struct {
	Code                  string   `json:"code"`
	Display               string   `json:"display"`
	Definition            string   `json:"definition,omitempty"`
	System                string   `json:"system"`
	SystemName            string   `json:"systemName"`
	Module                string   `json:"module"`
	URL                   string   `json:"url,omitempty"`
	Relevance             float64  `json:"searchScore"`
	Synonyms              []string `json:"synonyms"`
	IsTraditionalMedicine bool     `json:"isTraditionalMedicine"`
	Source                string   `json:"source"`
}

// ConnectionStatus is the outcome of TestConnection.
type ConnectionStatus struct {
	Status            string `json:"status"`
	Authenticated     bool   `json:"authenticated"`
	TestSearchResults int    `json:"testSearchResults"`
	APIVersion        string `json:"apiVersion"`
	Error             string `json:"error,omitempty"`
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client searches the WHO ICD-11 API. It is safe for concurrent use.
// Failures never surface as errors from Search: callers get an empty result
// and the cause is logged.
type Client struct {
	cfg     Config
	http    *http.Client
	now     func() time.Time
	limiter *rate.Limiter
	tokens  *tokenSource
	logger  zerolog.Logger
}

// NewClient creates a Client. Empty URLs, release, scope, API version and
// timeout take their defaults. RetryAttempts below 1 means a single attempt
// and a zero RequestsPerMinute disables the outbound limiter.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		logger: logger.With().Str("component", "icd11").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	c.tokens = &tokenSource{cfg: cfg, http: c.http, now: c.now, logger: c.logger}

	if !cfg.HasCredentials() {
		c.logger.Warn().Msg("WHO_CLIENT_ID and WHO_CLIENT_SECRET are not set; ICD-11 search disabled")
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Authenticate fetches a fresh token and stores it for later requests.
func (c *Client) Authenticate(ctx context.Context) (*AuthToken, error) {
	return c.tokens.authenticate(ctx)
}

// IsHealthy ensures a token is held and reports whether one is.
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.tokens.ensure(ctx) != ""
}

// TestConnection authenticates and runs a one-result probe search.
func (c *Client) TestConnection(ctx context.Context) ConnectionStatus {
	st := ConnectionStatus{APIVersion: c.cfg.APIVersion}
	if !c.IsHealthy(ctx) {
		st.Status = "failed"
		st.Error = "authentication failed"
		return st
	}
	results := c.Search(ctx, "fever", 1, false)
	st.Status = "connected"
	st.Authenticated = true
	st.TestSearchResults = len(results)
	return st
}

// Search queries the MMS linearization. With preferTM the search is
// restricted to the Traditional Medicine chapter. Results are ordered TM
// codes first, then by relevance, and cut to limit.
func (c *Client) Search(ctx context.Context, query string, limit int, preferTM bool) []Result {
	empty := []Result{}
	query = strings.TrimSpace(query)
	if query == "" {
		return empty
	}
	if limit <= 0 {
		limit = 20
	}

	token := c.tokens.ensure(ctx)
	if token == "" {
		c.logger.Debug().Str("query", query).Msg("no WHO access token, skipping search")
		return empty
	}

	u := c.searchURL(query, preferTM)
	body, status, err := c.get(ctx, u, token)
	if err == nil && status == http.StatusUnauthorized {
		c.logger.Info().Msg("WHO token rejected, re-authenticating")
		c.tokens.invalidate()
		if token = c.tokens.ensure(ctx); token == "" {
			return empty
		}
		body, status, err = c.get(ctx, u, token)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("WHO ICD-11 search failed")
		return empty
	}
	switch {
	case status == http.StatusTooManyRequests:
		c.logger.Warn().Str("query", query).Msg("WHO API rate limit reached")
		return empty
	case status != http.StatusOK:
		c.logger.Error().Int("status", status).Str("query", query).Msg("WHO ICD-11 search failed")
		return empty
	}

	entities, err := parseEntities(body)
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("WHO ICD-11 response unreadable")
		return empty
	}

	results := make([]Result, 0, len(entities))
	for _, e := range entities {
		if r, ok := e.toResult(); ok {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.IsTraditionalMedicine != b.IsTraditionalMedicine {
			return a.IsTraditionalMedicine
		}
		return a.Relevance > b.Relevance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("WHO ICD-11 search")
	return results
}

func (c *Client) searchURL(query string, preferTM bool) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("subtreeFilterUsesFoundationDescendants", "false")
	params.Set("includeKeywordResult", "true")
	params.Set("useFlexisearch", "true")
	params.Set("flatResults", "true")
	params.Set("highlightingEnabled", "false")
	params.Set("medicalCodingMode", "true")
	if preferTM {
		params.Set("chapterFilter", TMChapter)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.SearchPath() + "?" + params.Encode()
}

// get performs an authorised GET, retrying transport errors and 5xx
// responses. Any other status is returned to the caller as is.
func (c *Client) get(ctx context.Context, u, token string) ([]byte, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, 0, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limiter: %w", err)
		}

		body, status, err := c.do(ctx, u, token)
		if err == nil && status < 500 {
			return body, status, nil
		}
		if err == nil {
			err = fmt.Errorf("server returned status %d", status)
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("WHO ICD-11 request failed")
	}
	return nil, 0, lastErr
}

func (c *Client) do(ctx context.Context, u, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("API-Version", c.cfg.APIVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
