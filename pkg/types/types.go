package types

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Host selects which of the platform's two hosts a request targets.
type Host int

const (
	// HostAPI is the JSON REST API (api.scratch.mit.edu).
	HostAPI Host = iota
	// HostSite is the main site, which serves the session endpoint and the legacy site-api.
	HostSite
)

func (h Host) String() string {
	switch h {
	case HostAPI:
		return "api"
	case HostSite:
		return "site"
	default:
		return fmt.Sprintf("Host(%d)", int(h))
	}
}

// Request describes one call made through a transport.
// Path is resolved relative to the base URL of Host.
type Request struct {
	Method string
	Host   Host
	Path   string
	Query  url.Values

	// JSON, when non-nil, is encoded as the request body.
	JSON any
	// Body is sent verbatim when JSON is nil.
	Body []byte

	// Timeout bounds the whole call. Zero means the transport default.
	Timeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the response carries status 200.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Object is a decoded JSON mapping whose values are left raw until a field is read.
type Object map[string]json.RawMessage

// Has reports whether key is present and not null.
func (o Object) Has(key string) bool {
	raw, ok := o[key]
	return ok && !isNull(raw)
}

// Present reports whether key exists, including with a null value.
func (o Object) Present(key string) bool {
	_, ok := o[key]
	return ok
}

// Get decodes the value at key into dst. It reports false, leaving dst untouched,
// when the key is absent or null.
func (o Object) Get(key string, dst any) (bool, error) {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

// Sub returns the nested mapping at key. A missing or null key yields an empty mapping.
func (o Object) Sub(key string) (Object, error) {
	var sub Object
	if _, err := o.Get(key, &sub); err != nil {
		return nil, err
	}
	if sub == nil {
		sub = Object{}
	}
	return sub, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// Timestamp is an ISO 8601 timestamp as sent by the API. Null decodes to the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for the API's timestamp strings.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		ts.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unrecognized type for timestamp: %s", string(data))
	}

	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// ParseTimestamp parses the timestamp layouts the platform emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
