package scratch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
)

const (
	// DefaultAPIBaseURL is the JSON REST API host.
	DefaultAPIBaseURL = "https://api.scratch.mit.edu/"
	// DefaultSiteBaseURL is the main site host serving the session endpoint and the legacy site-api.
	DefaultSiteBaseURL = "https://scratch.mit.edu/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-scratch-api-wrapper/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// DefaultRefreshTimeout bounds a single object refresh.
	DefaultRefreshTimeout = 10 * time.Second
	// DefaultPageSize is the largest page the listing endpoints serve.
	DefaultPageSize = internal.MaxPageSize
)

// RateLimitConfig controls how requests are throttled before reaching the platform.
type RateLimitConfig = internal.RateLimitConfig

// Config holds the configuration for a Session.
// Every field is optional; the zero Config produces an anonymous session against the public hosts.
//
// Example for an authenticated session:
//
//	config := &scratch.Config{
//		SessionID: os.Getenv("SCRATCH_SESSION_ID"),
//		UserAgent: "myapp/1.0",
//	}
type Config struct {
	// SessionID is the value of the scratchsessionsid cookie.
	// Leave empty for an anonymous session.
	SessionID string

	// RequireLogin makes NewSession fail with LoginFailure when SessionID is empty.
	RequireLogin bool

	// UserAgent string to identify your application.
	UserAgent string

	// APIBaseURL and SiteBaseURL override the platform hosts. Usually only changed in tests.
	APIBaseURL  string
	SiteBaseURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// RateLimit throttles outgoing requests. Defaults to 60 requests per minute with a burst of 10.
	RateLimit *RateLimitConfig

	// RefreshTimeout bounds each object refresh. Defaults to DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	// PageSize is the number of items requested per listing page. Defaults to DefaultPageSize.
	PageSize int

	// Logger for structured diagnostics.
	// Optional. If provided, requests are logged at debug level and skipped listing items at warn level.
	Logger *slog.Logger
}

// withDefaults returns a copy of c with every unset field defaulted. A nil c yields the defaults.
func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}

	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	if out.APIBaseURL == "" {
		out.APIBaseURL = DefaultAPIBaseURL
	}
	if out.SiteBaseURL == "" {
		out.SiteBaseURL = DefaultSiteBaseURL
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if out.RefreshTimeout <= 0 {
		out.RefreshTimeout = DefaultRefreshTimeout
	}
	if out.PageSize <= 0 || out.PageSize > internal.MaxPageSize {
		out.PageSize = DefaultPageSize
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	return &out
}

// validate checks the fields a caller may get wrong.
func (c *Config) validate() error {
	return internal.NewValidator().ValidateUserAgent(c.UserAgent)
}
