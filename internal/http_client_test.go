package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

var fastLimits = &RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.Client(), server.URL+"/api", server.URL+"/site", "agent", fastLimits, nil)
	require.NoError(t, err)
	return c, server
}

func TestNewClient_DefaultRateLimiter(t *testing.T) {
	client, err := NewClient(nil, "https://api.example.com/", "https://example.com/", "agent", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, client.limiter)

	assert.Equal(t, rate.Limit(1), client.limiter.Limit())
	assert.Equal(t, 10, client.limiter.Burst())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(nil, "://bad", "https://example.com/", "agent", nil, nil)
	require.Error(t, err)

	var cfgErr *pkgerrs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "APIBaseURL", cfgErr.Field)
}

func TestNewClient_CustomLimiterConfig(t *testing.T) {
	client, err := NewClient(nil, "https://example.com/api", "https://example.com", "agent", &RateLimitConfig{RequestsPerMinute: 120, Burst: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api/", client.APIBaseURL.String(), "base URL gains trailing slash")
	assert.Equal(t, rate.Limit(2), client.limiter.Limit())
	assert.Equal(t, 5, client.limiter.Burst())
}

func TestClient_NewRequestSetsHeaders(t *testing.T) {
	c, err := NewClient(nil, "https://api.example.com", "https://example.com", "my-agent", nil, nil)
	require.NoError(t, err)
	c.SetCredentials("sess", "tok")

	req, err := c.NewRequest(context.Background(), &types.Request{
		Method: http.MethodPost,
		Host:   types.HostAPI,
		Path:   "/proxy/comments/project/1/",
		JSON:   map[string]string{"content": "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/proxy/comments/project/1/", req.URL.String())
	assert.Equal(t, "my-agent", req.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "tok", req.Header.Get("X-Token"))
	assert.Equal(t, "a", req.Header.Get("X-CSRFToken"))
	assert.Contains(t, req.Header.Get("Cookie"), `scratchsessionsid="sess"`)
	assert.Empty(t, req.Header.Get("X-Requested-With"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content": "hi"}`, string(body))
}

func TestClient_NewRequestSiteHostAndQuery(t *testing.T) {
	c, err := NewClient(nil, "https://api.example.com", "https://example.com", "agent", nil, nil)
	require.NoError(t, err)

	req, err := c.NewRequest(context.Background(), &types.Request{
		Host:  types.HostSite,
		Path:  "site-api/comments/user/griffpatch/",
		Query: map[string][]string{"page": {"2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://example.com/site-api/comments/user/griffpatch/?page=2", req.URL.String())
	assert.Equal(t, "XMLHttpRequest", req.Header.Get("X-Requested-With"))
	assert.Empty(t, req.Header.Get("Cookie"), "anonymous requests carry no session cookie")
	assert.Nil(t, req.Body)
}

func TestClient_DoReturnsBody(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	resp, err := c.Get(context.Background(), "projects/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/projects/1", gotPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id": 1}`, resp.Text())
}

func TestClient_DoClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *pkgerrs.Error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"code":"NotFound","message":""}`, want: pkgerrs.ErrHTTPNotFound},
		{name: "forbidden", status: http.StatusForbidden, want: pkgerrs.ErrUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, want: pkgerrs.ErrTooManyRequests},
		{name: "bad gateway", status: http.StatusBadGateway, want: pkgerrs.ErrServerError},
		{name: "envelope", status: http.StatusOK, body: `{"code":"BadRequest","message":""}`, want: pkgerrs.ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := c.Get(context.Background(), "thing", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			require.NotNil(t, resp, "response is returned alongside a classified error")
			assert.Equal(t, tt.status, resp.StatusCode)

			var e *pkgerrs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.body, string(e.Body))
		})
	}
}

func TestClient_DoTransportErrorIsFetchError(t *testing.T) {
	expectedErr := errors.New("boom")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, expectedErr
	})}

	c, err := NewClient(httpClient, "https://api.example.com/", "https://example.com/", "agent", fastLimits, nil)
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), "resource", nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, pkgerrs.ErrHTTPFetch)
	assert.ErrorIs(t, err, expectedErr)
	assert.NotErrorIs(t, err, pkgerrs.ErrResponse)
}

func TestClient_DoAfterCloseFailsWithoutIO(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "closing twice is harmless")
	assert.True(t, c.Closed())

	_, err := c.Delete(context.Background(), "proxy/comments/project/1/comment/2")
	assert.ErrorIs(t, err, pkgerrs.ErrSessionClosed)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_DoHonorsCanceledContextBeforeSend(t *testing.T) {
	transportCalled := false
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		transportCalled = true
		return nil, errors.New("unexpected transport call")
	})}

	c, err := NewClient(httpClient, "https://api.example.com/", "https://example.com/", "agent", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Get(ctx, "resource", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, pkgerrs.ErrHTTPFetch)
	assert.False(t, transportCalled, "transport should not be invoked when context already canceled")
}

func TestClient_DoAppliesRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := c.Do(context.Background(), &types.Request{Path: "slow", Timeout: 20 * time.Millisecond})
	assert.ErrorIs(t, err, pkgerrs.ErrHTTPFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_PutSendsJSON(t *testing.T) {
	var (
		gotMethod string
		gotBody   string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Put(context.Background(), "projects/1", map[string]string{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.JSONEq(t, `{"title":"x"}`, gotBody)

	_, err = c.Post(context.Background(), "projects/1/remix", nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Empty(t, gotBody)
}

func TestClient_DoEnforcesRetryAfter(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
		firstHit  time.Time
		secondHit time.Time
	)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
		if callCount == 1 {
			firstHit = time.Now()
			w.Header().Set("Retry-After", "0.1")
		} else {
			secondHit = time.Now()
		}
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	_, err := c.Get(ctx, "first", nil)
	require.NoError(t, err)
	_, err = c.Get(ctx, "second", nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, callCount)
	assert.GreaterOrEqual(t, secondHit.Sub(firstHit), 90*time.Millisecond)
}

func TestClient_WaitForForcedDelayContextCanceled(t *testing.T) {
	c := &Client{}
	c.deferRequests(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.waitForForcedDelay(ctx), context.DeadlineExceeded)
}

func TestClient_DeferRequestsDoesNotShortenDelay(t *testing.T) {
	c := &Client{}
	c.deferRequests(time.Second)
	first := c.forceWaitUntil

	c.deferRequests(10 * time.Millisecond)
	assert.Equal(t, first, c.forceWaitUntil)

	c.deferRequests(0)
	assert.Equal(t, first, c.forceWaitUntil)
}
