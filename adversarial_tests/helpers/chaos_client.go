package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone performs normal HTTP requests
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the round trip before any response
	ChaosConnectionReset

	// ChaosDNSFailure simulates DNS resolution failures
	ChaosDNSFailure

	// ChaosPartialRead cuts the response body off mid-read
	ChaosPartialRead

	// ChaosEmptyBody answers 200 with no body
	ChaosEmptyBody

	// ChaosHTMLBody answers 200 with an HTML error page instead of JSON
	ChaosHTMLBody

	// ChaosErrorEnvelope answers 200 with an API error envelope
	ChaosErrorEnvelope

	// ChaosIntermittent randomly applies one of the other modes
	ChaosIntermittent
)

var intermittentModes = []ChaosMode{
	ChaosConnectionReset,
	ChaosDNSFailure,
	ChaosPartialRead,
	ChaosEmptyBody,
	ChaosHTMLBody,
	ChaosErrorEnvelope,
}

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// Mode determines which type of chaos to inject
	Mode ChaosMode

	// FailureRate determines probability of failure (0.0 to 1.0)
	// Only used for ChaosIntermittent mode
	FailureRate float64

	// PartialReadBytes specifies how many bytes to deliver before failing
	// Only used for ChaosPartialRead mode
	PartialReadBytes int

	// Seed for the intermittent mode's random source
	Seed int64
}

// ChaosTransport is an http.RoundTripper that injects failures in front of a real transport.
type ChaosTransport struct {
	base       http.RoundTripper
	config     ChaosConfig
	requestNum atomic.Uint64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChaosTransport wraps base, or http.DefaultTransport when base is nil.
func NewChaosTransport(base http.RoundTripper, config *ChaosConfig) *ChaosTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := ChaosConfig{Mode: ChaosNone}
	if config != nil {
		cfg = *config
	}
	return &ChaosTransport{
		base:   base,
		config: cfg,
		rnd:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Client returns an http.Client using the chaos transport.
func (c *ChaosTransport) Client() *http.Client {
	return &http.Client{Transport: c}
}

// Requests returns the number of round trips attempted.
func (c *ChaosTransport) Requests() uint64 {
	return c.requestNum.Load()
}

func (c *ChaosTransport) pickMode() ChaosMode {
	if c.config.Mode != ChaosIntermittent {
		return c.config.Mode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rnd.Float64() >= c.config.FailureRate {
		return ChaosNone
	}
	return intermittentModes[c.rnd.Intn(len(intermittentModes))]
}

// RoundTrip implements http.RoundTripper interface
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requestNum.Add(1)

	switch c.pickMode() {
	case ChaosConnectionReset:
		return nil, errors.New("connection reset by peer")

	case ChaosDNSFailure:
		return nil, &DNSError{Err: "no such host", Server: "8.8.8.8"}

	case ChaosPartialRead:
		resp, err := c.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		partialSize := c.config.PartialReadBytes
		if partialSize <= 0 || partialSize >= len(bodyBytes) {
			partialSize = len(bodyBytes) / 2
		}
		resp.Body = &partialReadCloser{
			reader:    bytes.NewReader(bodyBytes[:partialSize]),
			failAfter: partialSize,
		}
		return resp, nil

	case ChaosEmptyBody:
		return buildResponse(req, http.StatusOK, "text/plain", ""), nil

	case ChaosHTMLBody:
		return buildResponse(req, http.StatusOK, "text/html", "<html><body>Scratch is down for maintenance</body></html>"), nil

	case ChaosErrorEnvelope:
		return buildResponse(req, http.StatusOK, "application/json", `{"code":"InternalError","message":"try again later"}`), nil

	default:
		return c.base.RoundTrip(req)
	}
}

func buildResponse(req *http.Request, status int, contentType, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Header:        header,
	}
}

// partialReadCloser is an io.ReadCloser that fails after reading a certain amount
type partialReadCloser struct {
	reader    io.Reader
	failAfter int
	totalRead int
}

func (p *partialReadCloser) Read(buf []byte) (int, error) {
	if p.totalRead >= p.failAfter {
		return 0, errors.New("connection reset during read")
	}

	n, err := p.reader.Read(buf)
	p.totalRead += n

	if p.totalRead >= p.failAfter {
		return n, errors.New("connection reset during read")
	}

	return n, err
}

func (p *partialReadCloser) Close() error {
	return nil
}

// DNSError simulates DNS lookup failures
type DNSError struct {
	Err    string
	Server string
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("lookup failed: %s (server: %s)", e.Err, e.Server)
}

func (e *DNSError) Temporary() bool {
	return true
}

func (e *DNSError) Timeout() bool {
	return false
}
