package scratch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// Object is implemented by every fetchable entity.
type Object interface {
	// Remote returns the lifecycle state shared by all entities.
	Remote() *RemoteObject
	// Populate copies the fields present in data. Absent fields keep their previous value.
	Populate(data types.Object) error
	// Refresh re-fetches the entity and populates it from the response.
	Refresh(ctx context.Context) error
}

// RemoteObject is the lifecycle state embedded in every entity: where it re-fetches itself
// from, the transport it shares, and the session it is bound to.
type RemoteObject struct {
	instanceID uuid.UUID
	variant    string

	transport Transport
	session   *Session

	refreshMethod string
	refreshHost   types.Host
	refreshPath   string
	timeout       time.Duration

	raw    types.Object
	logger *slog.Logger
}

var parser = internal.NewParser()

func newRemoteObject(variant string, transport Transport, session *Session) *RemoteObject {
	r := &RemoteObject{
		instanceID:    uuid.New(),
		variant:       variant,
		transport:     transport,
		session:       session,
		refreshMethod: http.MethodGet,
		refreshHost:   types.HostAPI,
		timeout:       DefaultRefreshTimeout,
		logger:        slog.New(slog.DiscardHandler),
	}
	if session != nil {
		r.timeout = session.config.RefreshTimeout
		r.logger = session.logger
		if transport == nil {
			r.transport = session.transport
		}
	}
	return r
}

// InstanceID identifies this in-memory instance in logs. Two fetches of the same entity get different ids.
func (r *RemoteObject) InstanceID() uuid.UUID { return r.instanceID }

// Variant returns the entity variant name, e.g. "Project".
func (r *RemoteObject) Variant() string { return r.variant }

// Transport returns the transport the object issues its calls through.
func (r *RemoteObject) Transport() Transport { return r.transport }

// Session returns the bound session, or nil.
func (r *RemoteObject) Session() *Session { return r.session }

// RawSnapshot returns the last decoded response body, kept for diagnostics.
func (r *RemoteObject) RawSnapshot() types.Object { return r.raw }

// IsSessionBound reports whether a session is bound. The session may be anonymous.
func (r *RemoteObject) IsSessionBound() bool { return r.session != nil }

// BindSession swaps in the transport and identity of s. With closePrevious the transport
// held until now is closed first, which affects every other object sharing it.
func (r *RemoteObject) BindSession(s *Session, closePrevious bool) error {
	if s == nil {
		return &pkgerrs.ConfigError{Field: "session", Message: "session cannot be nil"}
	}
	if closePrevious && r.transport != nil && r.transport != s.transport {
		if err := r.transport.Close(); err != nil {
			return err
		}
	}
	r.transport = s.transport
	r.session = s
	r.logger = s.logger
	r.timeout = s.config.RefreshTimeout
	return nil
}

// CloseSession closes the shared transport.
func (r *RemoteObject) CloseSession() error {
	if r.transport == nil {
		return nil
	}
	return r.transport.Close()
}

// RequireSession fails with NoSession unless a session with a logged-in identity is bound.
// An anonymous session carries no credentials and counts as unbound here.
func (r *RemoteObject) RequireSession() error {
	if r.session == nil {
		return pkgerrs.New(pkgerrs.KindNoSession, "%s requires a bound session", r.variant)
	}
	if _, ok := r.session.Username(); !ok {
		return pkgerrs.New(pkgerrs.KindNoSession, "%s requires a logged-in session", r.variant)
	}
	return nil
}

// CheckNotClosed fails with SessionClosed if the shared transport has been closed.
func (r *RemoteObject) CheckNotClosed() error {
	if r.transport != nil && r.transport.Closed() {
		return errSessionClosed(r.variant)
	}
	return nil
}

func errSessionClosed(owner string) error {
	return pkgerrs.New(pkgerrs.KindSessionClosed, "%s transport is closed", owner)
}

// do issues req through the shared transport after checking it is still open.
func (r *RemoteObject) do(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := r.CheckNotClosed(); err != nil {
		return nil, err
	}
	if r.transport == nil {
		return nil, pkgerrs.New(pkgerrs.KindHTTPFetch, "%s has no transport", r.variant)
	}
	return r.transport.Do(ctx, req)
}

// refreshObject performs one call to obj's refresh endpoint and populates obj from the body.
func refreshObject(ctx context.Context, obj Object) error {
	r := obj.Remote()
	resp, err := r.do(ctx, &types.Request{
		Method:  r.refreshMethod,
		Host:    r.refreshHost,
		Path:    r.refreshPath,
		Timeout: r.timeout,
	})
	if err != nil {
		return err
	}

	data, err := parser.DecodeObject(resp.Body)
	if err != nil {
		return pkgerrs.FetchError(pkgerrs.KindObjectFetch, r.variant, err)
	}

	r.raw = data
	return obj.Populate(data)
}

// Variant describes one fetchable entity type: its name, the not-found kind reported when
// a lookup by K fails, and how to construct a placeholder holding only the identifier.
type Variant[T Object, K any] struct {
	Name     string
	NotFound pkgerrs.Kind
	New      func(id K, transport Transport, session *Session) T
}

// GetObject constructs one instance of v identified by id, refreshes it once, and returns it.
//
// A nil transport falls back to the session's transport, or to a fresh default transport
// when no session is given either. A missing field or a BadRequest-family response is
// reported as v's not-found kind; any other failure as ObjectFetchError. Both carry the cause.
func GetObject[T Object, K any](ctx context.Context, transport Transport, v Variant[T, K], id K, session *Session) (T, error) {
	var zero T

	if transport == nil && session != nil {
		transport = session.transport
	}
	if transport == nil {
		t, err := NewTransport(nil)
		if err != nil {
			return zero, pkgerrs.FetchError(pkgerrs.KindObjectFetch, v.Name, err)
		}
		transport = t
	}

	obj := v.New(id, transport, session)
	if err := obj.Refresh(ctx); err != nil {
		return zero, translateFetchError(v.Name, v.NotFound, err)
	}
	return obj, nil
}

// translateFetchError narrows err into the object-fetch family for variant.
func translateFetchError(variant string, notFound pkgerrs.Kind, err error) error {
	var e *pkgerrs.Error
	if errors.As(err, &e) && e.Kind.IsA(pkgerrs.KindObjectFetch) {
		return err
	}
	if errors.Is(err, pkgerrs.ErrNoData) || errors.Is(err, pkgerrs.ErrBadRequest) {
		return pkgerrs.FetchError(notFound, variant, err)
	}
	return pkgerrs.FetchError(pkgerrs.KindObjectFetch, variant, err)
}
