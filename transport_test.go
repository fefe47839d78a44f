package scratch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// fakeTransport implements Transport for testing. It classifies responses the way the real
// transport does and refuses to serve requests once closed.
type fakeTransport struct {
	mu       sync.Mutex
	handler  func(req *types.Request) (int, string)
	err      error
	requests []*types.Request
	closed   bool
	closes   int
}

func newFakeTransport(handler func(req *types.Request) (int, string)) *fakeTransport {
	return &fakeTransport{handler: handler}
}

func (f *fakeTransport) Do(ctx context.Context, req *types.Request) (*types.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, pkgerrs.New(pkgerrs.KindSessionClosed, "fake transport closed")
	}
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindHTTPFetch, f.err)
	}
	if f.handler == nil {
		return &types.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
	}

	status, body := f.handler(req)
	resp := &types.Response{StatusCode: status, Body: []byte(body)}
	if err := pkgerrs.Classify(status, resp.Body); err != nil {
		return resp, err
	}
	return resp, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closes++
	return nil
}

func (f *fakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) last(t *testing.T) *types.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request was made")
	}
	return f.requests[len(f.requests)-1]
}

// byPath routes requests to canned responses keyed by path; unknown paths get a 404.
func byPath(routes map[string]string) func(req *types.Request) (int, string) {
	return func(req *types.Request) (int, string) {
		if body, ok := routes[req.Path]; ok {
			return 200, body
		}
		return 404, `{"code":"NotFound","message":""}`
	}
}

func newTestSession(transport Transport, username string) *Session {
	return NewSessionWithTransport(transport, username, nil)
}

func parseJSON(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
