package scratch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// User is a platform account.
type User struct {
	remote *RemoteObject

	ID          int64
	Username    string
	ScratchTeam bool
	JoinedAt    time.Time

	ProfileID int64
	Bio       string
	Status    string
	Country   string
}

const userVariantName = "User"

// UserVariant fetches users by username.
var UserVariant = Variant[*User, string]{
	Name:     userVariantName,
	NotFound: pkgerrs.KindUserNotFound,
	New:      newUser,
}

func newUser(username string, transport Transport, session *Session) *User {
	u := &User{
		remote:   newRemoteObject(userVariantName, transport, session),
		Username: username,
	}
	u.remote.refreshPath = "users/" + username
	return u
}

// userFromData builds a user from an embedded author fragment or a listing item.
func userFromData(data types.Object, transport Transport, session *Session) (*User, error) {
	if !data.Has("username") {
		return nil, pkgerrs.New(pkgerrs.KindNoData, "user payload has no username")
	}
	u := newUser("", transport, session)
	if err := u.Populate(data); err != nil {
		return nil, err
	}
	return u, nil
}

// Remote implements Object.
func (u *User) Remote() *RemoteObject { return u.remote }

// Refresh re-fetches the user.
func (u *User) Refresh(ctx context.Context) error {
	return refreshObject(ctx, u)
}

// Populate implements Object.
func (u *User) Populate(data types.Object) error {
	if _, err := data.Get("id", &u.ID); err != nil {
		return err
	}
	if ok, err := data.Get("username", &u.Username); err != nil {
		return err
	} else if ok {
		u.remote.refreshPath = "users/" + u.Username
	}
	if _, err := data.Get("scratchteam", &u.ScratchTeam); err != nil {
		return err
	}

	history, err := data.Sub("history")
	if err != nil {
		return err
	}
	var joined types.Timestamp
	if ok, err := history.Get("joined", &joined); err != nil {
		return err
	} else if ok {
		u.JoinedAt = joined.Time
	}

	profile, err := data.Sub("profile")
	if err != nil {
		return err
	}
	for key, dst := range map[string]any{
		"id":      &u.ProfileID,
		"bio":     &u.Bio,
		"status":  &u.Status,
		"country": &u.Country,
	} {
		if _, err := profile.Get(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// IsSelf reports whether the bound session is authenticated as this user.
func (u *User) IsSelf() bool {
	if u.remote.session == nil {
		return false
	}
	username, ok := u.remote.session.Username()
	return ok && username == u.Username
}

func (u *User) commentsPath() string {
	return "site-api/comments/user/" + u.Username + "/"
}

// GetComments returns the comment threads on one page of the user's profile, newest first.
// Pages start at 1. A page past the end yields no comments. Replies are delivered inline
// and are available through each comment's GetReplies without further requests.
func (u *User) GetComments(ctx context.Context, page int) ([]*Comment, error) {
	if page < 1 {
		return nil, &pkgerrs.ConfigError{Field: "page", Message: "page must be at least 1"}
	}

	resp, err := u.remote.do(ctx, &types.Request{
		Method: http.MethodGet,
		Host:   types.HostSite,
		Path:   u.commentsPath(),
		Query:  url.Values{"page": {strconv.Itoa(page)}},
	})
	if err != nil {
		if errors.Is(err, pkgerrs.ErrHTTPNotFound) {
			return nil, nil
		}
		return nil, err
	}

	threads, err := internal.ParseProfileComments(resp.Body)
	if err != nil {
		return nil, pkgerrs.FetchError(pkgerrs.KindObjectFetch, "Comment", err)
	}

	comments := make([]*Comment, 0, len(threads))
	for _, thread := range threads {
		comments = append(comments, newProfileComment(u, thread, nil))
	}
	return comments, nil
}

// GetCommentByID scans the user's profile pages for the comment with id, replies included.
// It fails with CommentNotFound once a page comes back empty.
func (u *User) GetCommentByID(ctx context.Context, id int64) (*Comment, error) {
	for page := 1; ; page++ {
		comments, err := u.GetComments(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(comments) == 0 {
			return nil, pkgerrs.FetchError(pkgerrs.KindCommentNotFound, "Comment",
				pkgerrs.New(pkgerrs.KindNoData, "comment %d not on %s's profile", id, u.Username))
		}

		found, ok := NewCommentTree(comments).Find(func(c *Comment) bool {
			cid, ok := c.ID()
			return ok && cid == id
		})
		if ok {
			return found, nil
		}
	}
}

// PostComment posts content on the user's profile. parentID and commenteeID are optional.
func (u *User) PostComment(ctx context.Context, content string, parentID, commenteeID *int64) (*Comment, error) {
	if err := u.remote.RequireSession(); err != nil {
		return nil, err
	}
	if err := internal.NewValidator().ValidateCommentContent(content); err != nil {
		return nil, err
	}

	resp, err := u.remote.do(ctx, &types.Request{
		Method: http.MethodPost,
		Host:   types.HostSite,
		Path:   u.commentsPath() + "add/",
		JSON: map[string]string{
			"content":      content,
			"parent_id":    optionalID(parentID),
			"commentee_id": optionalID(commenteeID),
		},
	})
	if err != nil {
		return nil, err
	}

	posted, err := internal.ParsePostedComment(resp.Body)
	if err != nil {
		return nil, pkgerrs.Wrap(pkgerrs.KindBadResponse, err)
	}
	posted.ParentID = parentID
	if posted.CommenteeID == nil {
		posted.CommenteeID = commenteeID
	}
	return newProfileComment(u, posted, nil), nil
}

// optionalID renders an optional id the way the comment endpoints expect: empty when unset.
func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
