package scratch

import (
	"context"
	"log/slog"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// Transport is the shared HTTP handle objects issue their calls through.
// The internal client implements it; tests substitute a fake.
//
// Do returns the response alongside a classified error when the response indicates failure,
// and fails with SessionClosed without I/O once Close has been called.
type Transport interface {
	Do(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
	Closed() bool
}

// NewTransport builds the default HTTP transport from config. A nil config uses every default.
func NewTransport(config *Config) (Transport, error) {
	cfg := config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newClient(cfg *Config) (*internal.Client, error) {
	client, err := internal.NewClient(cfg.HTTPClient, cfg.APIBaseURL, cfg.SiteBaseURL, cfg.UserAgent, cfg.RateLimit, cfg.Logger)
	if err != nil {
		return nil, err
	}
	client.DefaultTimeout = cfg.HTTPClient.Timeout
	return client, nil
}

// Session holds a transport and the identity it is authenticated as.
// Objects fetched through a Session reference it for permission checks only; closing the
// session's transport makes every object sharing it stale.
type Session struct {
	transport Transport
	username  string
	userID    int64
	config    *Config
	logger    *slog.Logger
}

// NewSession creates a session from config.
//
// With a SessionID the session cookie is resolved into a username and API token via the
// site's session endpoint. Without one the session is anonymous, unless RequireLogin is set,
// in which case LoginFailure is returned.
//
// Returns an error if:
//   - the configuration is invalid
//   - the session endpoint cannot be reached (LoginFailure)
//   - the session endpoint reports no user for the cookie (SessionNotFound)
func NewSession(ctx context.Context, config *Config) (*Session, error) {
	cfg := config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.SessionID == "" && cfg.RequireLogin {
		return nil, pkgerrs.New(pkgerrs.KindLoginFailure, "a session id is required")
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		transport: client,
		config:    cfg,
		logger:    cfg.Logger,
	}
	if cfg.SessionID == "" {
		return s, nil
	}

	auth, err := internal.NewAuthenticator(client, cfg.SessionID, cfg.RefreshTimeout)
	if err != nil {
		return nil, err
	}
	identity, err := auth.Resolve(ctx)
	if err != nil {
		cfg.Logger.WarnContext(ctx, "session login failed", "error", err)
		_ = client.Close()
		return nil, err
	}

	s.username = identity.Username
	s.userID = identity.UserID
	cfg.Logger.InfoContext(ctx, "logged in", "username", identity.Username)
	return s, nil
}

// NewSessionWithTransport wraps an existing transport. An empty username makes the session anonymous.
func NewSessionWithTransport(transport Transport, username string, config *Config) *Session {
	cfg := config.withDefaults()
	return &Session{
		transport: transport,
		username:  username,
		config:    cfg,
		logger:    cfg.Logger,
	}
}

// Username returns the authenticated username, or false for an anonymous session.
func (s *Session) Username() (string, bool) {
	return s.username, s.username != ""
}

// Transport returns the session's shared transport.
func (s *Session) Transport() Transport {
	return s.transport
}

// Close closes the shared transport. Every object bound to this session observes it.
func (s *Session) Close() error {
	return s.transport.Close()
}

// Closed reports whether the shared transport has been closed.
func (s *Session) Closed() bool {
	return s.transport.Closed()
}

// Project fetches a project through this session.
func (s *Session) Project(ctx context.Context, id int64) (*Project, error) {
	if err := internal.NewValidator().ValidateID("projectID", id); err != nil {
		return nil, err
	}
	return GetObject(ctx, s.transport, ProjectVariant, id, s)
}

// Studio fetches a studio through this session.
func (s *Session) Studio(ctx context.Context, id int64) (*Studio, error) {
	if err := internal.NewValidator().ValidateID("studioID", id); err != nil {
		return nil, err
	}
	return GetObject(ctx, s.transport, StudioVariant, id, s)
}

// User fetches a user through this session. Usernames outside the platform's naming
// rules are rejected with a ConfigError before any request is made.
func (s *Session) User(ctx context.Context, username string) (*User, error) {
	if err := internal.NewValidator().ValidateUsername(username); err != nil {
		return nil, err
	}
	return GetObject(ctx, s.transport, UserVariant, username, s)
}

// Me fetches the authenticated user. It fails with NoSession for an anonymous session.
func (s *Session) Me(ctx context.Context) (*User, error) {
	username, ok := s.Username()
	if !ok {
		return nil, pkgerrs.New(pkgerrs.KindNoSession, "anonymous session has no user")
	}
	return s.User(ctx, username)
}
