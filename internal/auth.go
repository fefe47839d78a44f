package internal

import (
	"context"
	"net/http"
	"time"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

const sessionEndpointPath = "session/"

// Identity is the authenticated account behind a session cookie.
type Identity struct {
	UserID   int64
	Username string
	Token    string
}

// Authenticator resolves a session cookie into an Identity.
type Authenticator struct {
	client    *Client
	sessionID string
	timeout   time.Duration
}

// NewAuthenticator creates an authenticator for sessionID over client.
func NewAuthenticator(client *Client, sessionID string, timeout time.Duration) (*Authenticator, error) {
	if client == nil {
		return nil, &pkgerrs.ConfigError{Field: "client", Message: "client cannot be nil"}
	}
	if sessionID == "" {
		return nil, pkgerrs.New(pkgerrs.KindLoginFailure, "session id is empty")
	}
	return &Authenticator{client: client, sessionID: sessionID, timeout: timeout}, nil
}

type sessionResponse struct {
	User *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Token    string `json:"token"`
	} `json:"user"`
}

// Resolve fetches the session endpoint and installs the resulting credentials on the client.
//
// A transport or response failure is reported as LoginFailure carrying the cause;
// a well-formed response without a user is reported as SessionNotFound.
func (a *Authenticator) Resolve(ctx context.Context) (*Identity, error) {
	a.client.SetCredentials(a.sessionID, "")

	resp, err := a.client.Do(ctx, &types.Request{
		Method:  http.MethodGet,
		Host:    types.HostSite,
		Path:    sessionEndpointPath,
		Timeout: a.timeout,
	})
	if err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindLoginFailure, err)
	}

	var session sessionResponse
	if err := resp.JSON(&session); err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindLoginFailure, err)
	}
	if session.User == nil || session.User.Username == "" {
		return nil, pkgerrs.FetchError(pkgerrs.KindSessionNotFound, "Session",
			pkgerrs.New(pkgerrs.KindNoData, "session response has no user"))
	}

	a.client.SetCredentials(a.sessionID, session.User.Token)

	return &Identity{
		UserID:   session.User.ID,
		Username: session.User.Username,
		Token:    session.User.Token,
	}, nil
}
