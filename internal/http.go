package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
	"golang.org/x/time/rate"
)

// Client manages communication with the Scratch API and site hosts.
// One Client is shared by every object bound to the same session.
type Client struct {
	client      *http.Client
	APIBaseURL  *url.URL
	SiteBaseURL *url.URL
	UserAgent   string

	// DefaultTimeout bounds calls whose Request.Timeout is zero.
	DefaultTimeout time.Duration

	credMu    sync.RWMutex
	sessionID string
	token     string

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time

	state  *ConnectionState
	logger *slog.Logger
}

// RateLimitConfig controls how requests are throttled before reaching the platform.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	// csrfToken is accepted by the site as long as cookie and header agree.
	csrfToken = "a"
)

// NewClient returns a new transport for the two platform hosts.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, apiBaseURL, siteBaseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	apiURL, err := parseBaseURL(apiBaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "APIBaseURL", Message: err.Error()}
	}
	siteURL, err := parseBaseURL(siteBaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "SiteBaseURL", Message: err.Error()}
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:      httpClient,
		APIBaseURL:  apiURL,
		SiteBaseURL: siteURL,
		UserAgent:   userAgent,
		limiter:     buildLimiter(*rateCfg),
		state:       NewConnectionState(),
		logger:      logger,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// SetCredentials installs the session cookie and API token sent with every request.
func (c *Client) SetCredentials(sessionID, token string) {
	c.credMu.Lock()
	c.sessionID = sessionID
	c.token = token
	c.credMu.Unlock()
}

func (c *Client) credentials() (string, string) {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.sessionID, c.token
}

// Close marks the transport closed for every holder and drops idle connections.
func (c *Client) Close() error {
	c.state.Close(c.client.CloseIdleConnections)
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.state.Closed()
}

// Get issues a GET request on the API host.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*types.Response, error) {
	return c.Do(ctx, &types.Request{Method: http.MethodGet, Host: types.HostAPI, Path: path, Query: query})
}

// Post issues a POST request with a JSON body on the API host.
func (c *Client) Post(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.Do(ctx, &types.Request{Method: http.MethodPost, Host: types.HostAPI, Path: path, JSON: body})
}

// Put issues a PUT request with a JSON body on the API host.
func (c *Client) Put(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.Do(ctx, &types.Request{Method: http.MethodPut, Host: types.HostAPI, Path: path, JSON: body})
}

// Delete issues a DELETE request on the API host.
func (c *Client) Delete(ctx context.Context, path string) (*types.Response, error) {
	return c.Do(ctx, &types.Request{Method: http.MethodDelete, Host: types.HostAPI, Path: path})
}

// NewRequest builds the HTTP request for req without sending it.
func (c *Client) NewRequest(ctx context.Context, req *types.Request) (*http.Request, error) {
	base := c.APIBaseURL
	if req.Host == types.HostSite {
		base = c.SiteBaseURL
	}

	u, err := base.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.JSON != nil {
		encoded, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	} else if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("User-Agent", c.UserAgent)
	httpReq.Header.Set("Referer", c.SiteBaseURL.String())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Host == types.HostSite {
		httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	sessionID, token := c.credentials()
	if sessionID != "" {
		httpReq.Header.Set("Cookie", "scratchsessionsid=\""+sessionID+"\"; scratchcsrftoken="+csrfToken+"; scratchlanguage=en;")
		httpReq.Header.Set("X-CSRFToken", csrfToken)
	}
	if token != "" {
		httpReq.Header.Set("X-Token", token)
	}

	return httpReq, nil
}

// Do sends req and returns the fully read response. Failures are classified:
// a closed transport yields SessionClosed without I/O, a missing response yields
// HTTPFetchError, and an error status or error envelope yields a member of the
// ResponseError family alongside the response.
func (c *Client) Do(ctx context.Context, req *types.Request) (*types.Response, error) {
	if c.Closed() {
		return nil, pkgerrs.New(pkgerrs.KindSessionClosed, "transport closed before %s %s", req.Method, req.Path)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := c.NewRequest(ctx, req)
	if err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindHTTPFetch, err)
	}

	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindHTTPFetch, err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindHTTPFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindHTTPFetch, err)
	}

	c.applyRateHeaders(resp)

	c.logger.DebugContext(ctx, "scratch request",
		"method", httpReq.Method,
		"url", httpReq.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	out := &types.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if err := pkgerrs.Classify(resp.StatusCode, body); err != nil {
		return out, err
	}
	return out, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

// applyRateHeaders paces later requests; it never replays the current one.
func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}
