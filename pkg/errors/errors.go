// Package errors defines the failure taxonomy used throughout the Scratch API wrapper.
//
// Every failure produced by the core is an *Error tagged with a Kind. Kinds form a
// closed hierarchy, and errors.Is honours it: an Unauthorized error matches
// ErrUnauthorized, ErrBadRequest, ErrResponse and ErrHTTP.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies one member of the failure taxonomy.
type Kind int

const (
	KindUnknown Kind = iota

	// KindHTTP is the root of every transport-level failure.
	KindHTTP
	// KindSessionClosed means the shared transport was already closed.
	KindSessionClosed
	// KindHTTPFetch means no response was obtained (network failure, timeout).
	KindHTTPFetch
	// KindResponse means a response was obtained but it indicates failure.
	KindResponse
	// KindBadResponse means the body matched the platform's generic error envelope.
	KindBadResponse
	KindBadRequest
	KindUnauthorized
	KindHTTPNotFound
	KindTooManyRequests
	KindServerError

	// KindNoSession means an operation needing a bound session ran without one.
	KindNoSession
	// KindNoPermission means the bound identity lacks the required permission.
	KindNoPermission

	KindLoginFailure

	// KindObjectFetch is the catch-all for a failed single-object fetch.
	KindObjectFetch
	KindObjectNotFound
	KindSessionNotFound
	KindUserNotFound
	KindProjectNotFound
	KindStudioNotFound
	KindCommentNotFound

	// KindNoData means a field expected from a partial payload is absent.
	KindNoData
)

var kindNames = map[Kind]string{
	KindUnknown:         "Unknown",
	KindHTTP:            "HTTPError",
	KindSessionClosed:   "SessionClosed",
	KindHTTPFetch:       "HTTPFetchError",
	KindResponse:        "ResponseError",
	KindBadResponse:     "BadResponse",
	KindBadRequest:      "BadRequest",
	KindUnauthorized:    "Unauthorized",
	KindHTTPNotFound:    "HTTPNotFound",
	KindTooManyRequests: "TooManyRequests",
	KindServerError:     "ServerError",
	KindNoSession:       "NoSession",
	KindNoPermission:    "NoPermission",
	KindLoginFailure:    "LoginFailure",
	KindObjectFetch:     "ObjectFetchError",
	KindObjectNotFound:  "ObjectNotFound",
	KindSessionNotFound: "SessionNotFound",
	KindUserNotFound:    "UserNotFound",
	KindProjectNotFound: "ProjectNotFound",
	KindStudioNotFound:  "StudioNotFound",
	KindCommentNotFound: "CommentNotFound",
	KindNoData:          "NoDataError",
}

// parents maps each kind to its direct parent. Roots are absent.
var parents = map[Kind]Kind{
	KindSessionClosed:   KindHTTP,
	KindHTTPFetch:       KindHTTP,
	KindResponse:        KindHTTP,
	KindBadResponse:     KindResponse,
	KindBadRequest:      KindResponse,
	KindUnauthorized:    KindBadRequest,
	KindHTTPNotFound:    KindBadRequest,
	KindTooManyRequests: KindBadRequest,
	KindServerError:     KindResponse,
	KindNoPermission:    KindNoSession,
	KindObjectNotFound:  KindObjectFetch,
	KindSessionNotFound: KindObjectNotFound,
	KindUserNotFound:    KindObjectNotFound,
	KindProjectNotFound: KindObjectNotFound,
	KindStudioNotFound:  KindObjectNotFound,
	KindCommentNotFound: KindObjectNotFound,
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parent returns the direct parent of k and whether one exists.
func (k Kind) Parent() (Kind, bool) {
	p, ok := parents[k]
	return p, ok
}

// IsA reports whether k equals ancestor or descends from it.
func (k Kind) IsA(ancestor Kind) bool {
	for cur := k; ; {
		if cur == ancestor {
			return true
		}
		p, ok := parents[cur]
		if !ok {
			return false
		}
		cur = p
	}
}

// Error is the single concrete error type of the taxonomy. Fields beyond Kind are
// only meaningful for the kinds that carry them: StatusCode and Body for the
// response family, Variant for the object-fetch family.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status of a classified response.
	StatusCode int
	// Body is the raw response body of a classified response.
	Body []byte
	// Variant names the entity variant a fetch was made for (e.g. "Project").
	Variant string
	// Message adds human-readable context.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())

	var parts []string
	if e.Variant != "" {
		parts = append(parts, "variant "+e.Variant)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, "cause: "+e.Cause.Error())
	}
	if len(parts) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	return sb.String()
}

// Unwrap returns the cause so errors.Is and errors.As can walk past this error.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches target when it is an *Error whose Kind is e.Kind or one of its ancestors.
// Only the Kind of target is compared, so the exported sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind.IsA(t.Kind)
}

// Sentinels for errors.Is. Never return these directly.
var (
	ErrHTTP            = &Error{Kind: KindHTTP}
	ErrSessionClosed   = &Error{Kind: KindSessionClosed}
	ErrHTTPFetch       = &Error{Kind: KindHTTPFetch}
	ErrResponse        = &Error{Kind: KindResponse}
	ErrBadResponse     = &Error{Kind: KindBadResponse}
	ErrBadRequest      = &Error{Kind: KindBadRequest}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrHTTPNotFound    = &Error{Kind: KindHTTPNotFound}
	ErrTooManyRequests = &Error{Kind: KindTooManyRequests}
	ErrServerError     = &Error{Kind: KindServerError}
	ErrNoSession       = &Error{Kind: KindNoSession}
	ErrNoPermission    = &Error{Kind: KindNoPermission}
	ErrLoginFailure    = &Error{Kind: KindLoginFailure}
	ErrObjectFetch     = &Error{Kind: KindObjectFetch}
	ErrObjectNotFound  = &Error{Kind: KindObjectNotFound}
	ErrSessionNotFound = &Error{Kind: KindSessionNotFound}
	ErrUserNotFound    = &Error{Kind: KindUserNotFound}
	ErrProjectNotFound = &Error{Kind: KindProjectNotFound}
	ErrStudioNotFound  = &Error{Kind: KindStudioNotFound}
	ErrCommentNotFound = &Error{Kind: KindCommentNotFound}
	ErrNoData          = &Error{Kind: KindNoData}
)

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind carrying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// FetchError builds a member of the object-fetch family for variant.
func FetchError(kind Kind, variant string, cause error) *Error {
	return &Error{Kind: kind, Variant: variant, Cause: cause}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify maps a response to a taxonomy member, or nil when the response is a success.
//
//	401, 403        -> Unauthorized
//	404             -> HTTPNotFound
//	429             -> TooManyRequests
//	other 4xx       -> BadRequest
//	5xx             -> ServerError
//	envelope body   -> BadResponse (only for non-error statuses)
func Classify(statusCode int, body []byte) error {
	var kind Kind
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = KindUnauthorized
	case statusCode == http.StatusNotFound:
		kind = KindHTTPNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = KindTooManyRequests
	case statusCode >= 400 && statusCode < 500:
		kind = KindBadRequest
	case statusCode >= 500 && statusCode < 600:
		kind = KindServerError
	case IsErrorEnvelope(body):
		kind = KindBadResponse
	default:
		return nil
	}
	return &Error{Kind: kind, StatusCode: statusCode, Body: body}
}

// IsErrorEnvelope reports whether body is exactly {"code": <string>, "message": <string>}.
func IsErrorEnvelope(body []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) != 2 {
		return false
	}
	for _, key := range []string{"code", "message"} {
		raw, ok := fields[key]
		if !ok {
			return false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
	}
	return true
}

// ConfigError indicates a problem with caller-supplied configuration or arguments.
// It sits outside the taxonomy: it reports misuse, not a remote failure.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}
