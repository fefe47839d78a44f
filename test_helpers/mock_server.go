package test_helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/test_generators"
)

// Prefixes under which the mock server serves the two platform hosts.
const (
	APIPrefix  = "/api/"
	SitePrefix = "/site/"
)

// MockServer provides a configurable mock of the Scratch API and site for testing.
// Routes are keyed by method and URL path, e.g. "GET /api/projects/1".
type MockServer struct {
	server *httptest.Server

	mu         sync.RWMutex
	responses  map[string]*MockResponse
	handlers   map[string]http.HandlerFunc
	defaultRsp *MockResponse
	delay      time.Duration

	logMu      sync.Mutex
	requestLog []RequestEntry
	callCount  map[string]int
}

// RequestEntry logs incoming requests for assertions.
type RequestEntry struct {
	Method       string
	Path         string
	Query        url.Values
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// MockResponse defines a mock response.
type MockResponse struct {
	Status   int
	Body     string
	Headers  map[string]string
	Delay    time.Duration
	MaxCalls int // 0 = unlimited
}

// NewMockServer starts a mock server. Unknown routes answer with the API's 404 envelope.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]*MockResponse),
		handlers:  make(map[string]http.HandlerFunc),
		callCount: make(map[string]int),
		defaultRsp: &MockResponse{
			Status:  http.StatusNotFound,
			Body:    `{"code":"NotFound","message":""}`,
			Headers: map[string]string{"Content-Type": "application/json"},
		},
	}
	ms.server = httptest.NewServer(ms)
	return ms
}

// APIURL is the base URL standing in for the JSON API host.
func (ms *MockServer) APIURL() string { return ms.server.URL + APIPrefix }

// SiteURL is the base URL standing in for the main site host.
func (ms *MockServer) SiteURL() string { return ms.server.URL + SitePrefix }

// Client returns an HTTP client configured for the server.
func (ms *MockServer) Client() *http.Client { return ms.server.Client() }

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

func routeKey(method, path string) string {
	return method + " " + path
}

// SetResponse configures the response for method and path, where path includes the host prefix.
func (ms *MockServer) SetResponse(method, path string, response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[routeKey(method, path)] = response
}

// SetJSON serves body with status 200 for GET path on the API host.
func (ms *MockServer) SetJSON(path, body string) {
	ms.SetResponse(http.MethodGet, APIPrefix+path, &MockResponse{
		Status:  http.StatusOK,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

// HandleFunc installs a handler for method and path, taking precedence over canned responses.
func (ms *MockServer) HandleFunc(method, path string, fn http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[routeKey(method, path)] = fn
}

// SetDefaultResponse configures the response for unknown routes.
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.defaultRsp = response
}

// SetDelay adds delay to all responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.delay = delay
}

// SetupSession serves the session endpoint for a logged-in user.
func (ms *MockServer) SetupSession(userID int64, username, token string) {
	body, _ := json.Marshal(map[string]any{
		"user": map[string]any{"id": userID, "username": username, "token": token},
	})
	ms.SetResponse(http.MethodGet, SitePrefix+"session/", &MockResponse{
		Status:  http.StatusOK,
		Body:    string(body),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

// SetupAnonymousSession serves the session endpoint the way the site answers an invalid cookie.
func (ms *MockServer) SetupAnonymousSession() {
	ms.SetResponse(http.MethodGet, SitePrefix+"session/", &MockResponse{
		Status: http.StatusOK,
		Body:   `{}`,
	})
}

// SetupUser serves the user endpoint for username.
func (ms *MockServer) SetupUser(id int64, username string) {
	body, _ := json.Marshal(map[string]any{
		"id":          id,
		"username":    username,
		"scratchteam": false,
		"history":     map[string]any{"joined": "2015-01-01T00:00:00.000Z"},
		"profile":     map[string]any{"id": id + 1, "bio": "", "status": "", "country": "Norway"},
	})
	ms.SetJSON("users/"+username, string(body))
}

// SetupProject serves the project endpoint and a paged comment listing for it.
func (ms *MockServer) SetupProject(id int64, title, author string, comments []test_generators.GeneratedComment) {
	body, _ := json.Marshal(map[string]any{
		"id":     id,
		"title":  title,
		"author": map[string]any{"id": 1, "username": author},
		"stats":  map[string]any{"views": 1, "loves": 0, "favorites": 0, "remixes": 0},
	})
	ms.SetJSON("projects/"+strconv.FormatInt(id, 10), string(body))

	base := APIPrefix + "users/" + author + "/projects/" + strconv.FormatInt(id, 10) + "/comments"
	ms.HandleFunc(http.MethodGet, base, pagedListing(comments))
	for _, c := range comments {
		item, _ := json.Marshal(test_generators.APIObject(c))
		ms.SetResponse(http.MethodGet, base+"/"+strconv.FormatInt(c.ID, 10), &MockResponse{
			Status: http.StatusOK,
			Body:   string(item),
		})
		ms.HandleFunc(http.MethodGet, base+"/"+strconv.FormatInt(c.ID, 10)+"/replies/", pagedListing(c.Replies))
		for _, r := range c.Replies {
			reply, _ := json.Marshal(test_generators.APIObject(r))
			ms.SetResponse(http.MethodGet, base+"/"+strconv.FormatInt(r.ID, 10), &MockResponse{
				Status: http.StatusOK,
				Body:   string(reply),
			})
		}
	}
}

// SetupProfileComments serves the legacy profile comment pages of username, pageSize threads per page.
// Pages past the end answer 404 like the site does.
func (ms *MockServer) SetupProfileComments(username string, threads []test_generators.GeneratedComment, pageSize int) {
	ms.HandleFunc(http.MethodGet, SitePrefix+"site-api/comments/user/"+username+"/", func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		start := (page - 1) * pageSize
		if start >= len(threads) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		end := min(start+pageSize, len(threads))
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, test_generators.ProfilePage(threads[start:end]))
	})
}

// SetupRateLimit makes every canned response carry a Retry-After header.
func (ms *MockServer) SetupRateLimit(retryAfter time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, rsp := range ms.responses {
		if rsp.Headers == nil {
			rsp.Headers = map[string]string{}
		}
		rsp.Headers["Retry-After"] = strconv.FormatFloat(retryAfter.Seconds(), 'f', -1, 64)
	}
}

// SetupError makes unknown routes answer with statusCode and an error envelope.
func (ms *MockServer) SetupError(statusCode int, message string) {
	ms.SetDefaultResponse(&MockResponse{
		Status:  statusCode,
		Body:    fmt.Sprintf(`{"code":"Error","message":%q}`, message),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

// pagedListing serves items through the limit and offset query parameters of a listing endpoint.
func pagedListing(items []test_generators.GeneratedComment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			limit = 20
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var page []test_generators.GeneratedComment
		if offset < len(items) {
			page = items[offset:min(offset+limit, len(items))]
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, test_generators.APIListing(page))
	}
}

// ServeHTTP implements http.Handler
func (ms *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entry := RequestEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Headers:   r.Header.Clone(),
		Timestamp: time.Now(),
	}
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		entry.Body = string(body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	key := routeKey(r.Method, r.URL.Path)

	ms.logMu.Lock()
	ms.callCount[r.URL.Path]++
	calls := ms.callCount[r.URL.Path]
	ms.logMu.Unlock()

	ms.mu.RLock()
	handler := ms.handlers[key]
	response, exists := ms.responses[key]
	if !exists {
		response = ms.defaultRsp
	}
	delay := ms.delay
	ms.mu.RUnlock()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		entry.ResponseCode = rec.status
		ms.logMu.Lock()
		ms.requestLog = append(ms.requestLog, entry)
		ms.logMu.Unlock()
	}()

	if handler != nil {
		handler(rec, r)
		return
	}

	if response.MaxCalls > 0 && calls > response.MaxCalls {
		rec.WriteHeader(http.StatusNotFound)
		return
	}

	if total := delay + response.Delay; total > 0 {
		select {
		case <-time.After(total):
		case <-r.Context().Done():
			return
		}
	}

	for name, value := range response.Headers {
		rec.Header().Set(name, value)
	}
	rec.WriteHeader(response.Status)
	io.WriteString(rec, response.Body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.logMu.Lock()
	defer ms.logMu.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path, host prefix included.
func (ms *MockServer) GetCallCount(path string) int {
	ms.logMu.Lock()
	defer ms.logMu.Unlock()
	return ms.callCount[path]
}

// TotalCalls returns the number of requests served, optionally restricted to paths with prefix.
func (ms *MockServer) TotalCalls(prefix string) int {
	ms.logMu.Lock()
	defer ms.logMu.Unlock()
	total := 0
	for path, c := range ms.callCount {
		if strings.HasPrefix(path, prefix) {
			total += c
		}
	}
	return total
}

// ClearLog clears the request log
func (ms *MockServer) ClearLog() {
	ms.logMu.Lock()
	defer ms.logMu.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

// WaitForRequests waits for a specific number of requests to be made
func (ms *MockServer) WaitForRequests(count int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %d requests", count)
		case <-ticker.C:
			if ms.TotalCalls("") >= count {
				return nil
			}
		}
	}
}

// AssertRequestCount asserts that a specific number of requests were made to a path
func (ms *MockServer) AssertRequestCount(path string, expectedCount int) error {
	actualCount := ms.GetCallCount(path)
	if actualCount != expectedCount {
		return fmt.Errorf("expected %d requests to %s, got %d", expectedCount, path, actualCount)
	}
	return nil
}

// GetLastRequest returns the last request made to a specific path
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.logMu.Lock()
	defer ms.logMu.Unlock()

	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			return &ms.requestLog[i], nil
		}
	}

	return nil, fmt.Errorf("no requests found for path: %s", path)
}
