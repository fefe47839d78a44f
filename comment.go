package scratch

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// CommentVariant is the variant name reported by comment fetch errors.
const CommentVariant = "Comment"

// Comment places. A comment's Type always names the concrete type of its place.
const (
	PlaceProject = "Project"
	PlaceStudio  = "Studio"
	PlaceUser    = "User"
)

// commentPlace is an entity that owns comments.
type commentPlace interface {
	Object
	GetCommentByID(ctx context.Context, id int64) (*Comment, error)
	PostComment(ctx context.Context, content string, parentID, commenteeID *int64) (*Comment, error)
}

// Comment is a comment on a project, a studio, or a user's profile.
//
// Project and studio comments are served by the JSON API and page their replies.
// Profile comments are scraped from the legacy site with their replies inline; they are
// never fetched individually, and may lack an id.
type Comment struct {
	remote *RemoteObject

	// Type is one of PlaceProject, PlaceStudio or PlaceUser.
	Type  string
	place commentPlace

	id          *int64
	ParentID    *int64
	CommenteeID *int64
	Content     string
	SentAt      time.Time
	Author      *User
	ReplyCount  int

	parentCache *Comment
	replyCache  []*Comment
}

// NewComment creates an unpopulated comment with id on place, which must be a *Project,
// *Studio or *User. The comment shares the place's transport and session.
func NewComment(place Object, id *int64) (*Comment, error) {
	var (
		typ string
		cp  commentPlace
	)
	switch p := place.(type) {
	case *Project:
		if p != nil {
			typ, cp = PlaceProject, p
		}
	case *Studio:
		if p != nil {
			typ, cp = PlaceStudio, p
		}
	case *User:
		if p != nil {
			typ, cp = PlaceUser, p
		}
	}
	if cp == nil {
		return nil, &pkgerrs.ConfigError{Field: "place", Message: "comment place must be a project, studio or user"}
	}

	r := cp.Remote()
	c := &Comment{
		remote: newRemoteObject(CommentVariant, r.transport, r.session),
		Type:   typ,
		place:  cp,
	}
	if id != nil {
		v := *id
		c.id = &v
	}
	return c, nil
}

// commentFromData builds comments on place directly from listing items.
func commentFromData(place commentPlace) ItemBuilder[*Comment] {
	return func(data types.Object, transport Transport, session *Session) (*Comment, error) {
		c, err := NewComment(place, nil)
		if err != nil {
			return nil, err
		}
		c.remote.transport = transport
		c.remote.session = session
		if err := c.Populate(data); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// newProfileComment builds a profile comment and its inline replies. parent is nil for a top-level comment.
func newProfileComment(owner *User, pc internal.ProfileComment, parent *Comment) *Comment {
	r := owner.remote
	c := &Comment{
		remote:      newRemoteObject(CommentVariant, r.transport, r.session),
		Type:        PlaceUser,
		place:       owner,
		ParentID:    pc.ParentID,
		CommenteeID: pc.CommenteeID,
		Content:     pc.Content,
		SentAt:      pc.SentAt,
		ReplyCount:  len(pc.Replies),
		parentCache: parent,
	}
	if pc.HasID {
		id := pc.ID
		c.id = &id
	}
	if pc.Author != "" {
		c.Author = newUser(pc.Author, r.transport, r.session)
		c.Author.ID = pc.AuthorID
	}
	for _, reply := range pc.Replies {
		c.replyCache = append(c.replyCache, newProfileComment(owner, reply, c))
	}
	return c
}

// getCommentIterator walks a comment listing of place, building comments bound to it.
func getCommentIterator(ctx context.Context, place commentPlace, listing Listing, opts *ListingOptions) *ObjectIterator[*Comment] {
	r := place.Remote()
	return GetObjectIterator(ctx, r.transport, r.session, listing, opts, commentFromData(place))
}

// Remote implements Object.
func (c *Comment) Remote() *RemoteObject { return c.remote }

// ID returns the comment id. Profile comments may have none.
func (c *Comment) ID() (int64, bool) {
	if c.id == nil {
		return 0, false
	}
	return *c.id, true
}

// Place returns the project, studio or user the comment belongs to.
func (c *Comment) Place() Object { return c.place }

// CachedReplies returns the replies held in memory. Only profile comments carry them.
func (c *Comment) CachedReplies() []*Comment { return c.replyCache }

func (c *Comment) requireID() (int64, error) {
	id, ok := c.ID()
	if !ok {
		return 0, pkgerrs.New(pkgerrs.KindNoData, "%s comment has no id", c.Type)
	}
	return id, nil
}

// apiPath returns the JSON API path of this project or studio comment.
func (c *Comment) apiPath() (string, error) {
	id, err := c.requireID()
	if err != nil {
		return "", err
	}

	var base string
	switch p := c.place.(type) {
	case *Project:
		if base, err = p.commentsPath(); err != nil {
			return "", err
		}
	case *Studio:
		base = p.commentsPath()
	default:
		return "", pkgerrs.New(pkgerrs.KindNoData, "%s comments have no API path", c.Type)
	}
	return base + "/" + strconv.FormatInt(id, 10), nil
}

// Refresh re-fetches the comment. A profile comment is found again by scanning its owner's
// profile pages, which costs one request per page.
func (c *Comment) Refresh(ctx context.Context) error {
	if c.Type == PlaceUser {
		return c.refreshFromProfile(ctx)
	}

	path, err := c.apiPath()
	if err != nil {
		return err
	}
	c.remote.refreshPath = path
	return refreshObject(ctx, c)
}

func (c *Comment) refreshFromProfile(ctx context.Context) error {
	id, err := c.requireID()
	if err != nil {
		return err
	}
	if err := c.remote.CheckNotClosed(); err != nil {
		return err
	}

	owner := c.place.(*User)
	c.remote.logger.WarnContext(ctx, "refreshing a profile comment scans the owner's profile pages",
		"user", owner.Username, "comment_id", id)

	found, err := owner.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}

	c.ParentID = found.ParentID
	c.CommenteeID = found.CommenteeID
	c.Content = found.Content
	c.SentAt = found.SentAt
	c.Author = found.Author
	c.ReplyCount = found.ReplyCount
	c.parentCache = found.parentCache
	c.replyCache = found.replyCache
	return nil
}

// Populate implements Object.
func (c *Comment) Populate(data types.Object) error {
	var id int64
	if ok, err := data.Get("id", &id); err != nil {
		return err
	} else if ok {
		c.id = &id
	}

	for key, dst := range map[string]**int64{
		"parent_id":    &c.ParentID,
		"commentee_id": &c.CommenteeID,
	} {
		if !data.Present(key) {
			continue
		}
		var v *int64
		if _, err := data.Get(key, &v); err != nil {
			return err
		}
		*dst = v
	}

	if _, err := data.Get("content", &c.Content); err != nil {
		return err
	}
	if _, err := data.Get("reply_count", &c.ReplyCount); err != nil {
		return err
	}
	var sent types.Timestamp
	if ok, err := data.Get("datetime_created", &sent); err != nil {
		return err
	} else if ok {
		c.SentAt = sent.Time
	}

	if data.Has("author") {
		author, err := data.Sub("author")
		if err != nil {
			return err
		}
		if c.Author == nil {
			c.Author = newUser("", c.remote.transport, c.remote.session)
		}
		if err := c.Author.Populate(author); err != nil {
			return err
		}
	}
	return nil
}

// GetParentComment returns the comment this one replies to, or nil for a top-level comment.
// With useCache a previously fetched parent is returned without a request. Profile comments
// always answer from the parent they were scraped with.
func (c *Comment) GetParentComment(ctx context.Context, useCache bool) (*Comment, error) {
	if c.ParentID == nil {
		return nil, nil
	}
	if c.Type == PlaceUser {
		return c.parentCache, nil
	}
	if useCache && c.parentCache != nil {
		return c.parentCache, nil
	}

	parent, err := c.place.GetCommentByID(ctx, *c.ParentID)
	if err != nil {
		return nil, err
	}
	c.parentCache = parent
	return parent, nil
}

// GetReplies walks the replies to this comment. Project and studio comments page through the
// replies endpoint; profile comments slice their inline replies without a request.
func (c *Comment) GetReplies(ctx context.Context, opts *ListingOptions) *ObjectIterator[*Comment] {
	if c.Type == PlaceUser {
		return newPreloadedIterator(c.replyCache, opts)
	}

	path, err := c.apiPath()
	if err != nil {
		return newFailedIterator[*Comment](err)
	}

	build := commentFromData(c.place)
	listing := Listing{
		Host:  types.HostAPI,
		Path:  path + "/replies/",
		Query: url.Values{"cachebust": {strconv.Itoa(rand.IntN(1_000_000_000))}},
	}
	r := c.remote
	return GetObjectIterator[*Comment](ctx, r.transport, r.session, listing, opts,
		func(data types.Object, transport Transport, session *Session) (*Comment, error) {
			reply, err := build(data, transport, session)
			if err != nil {
				return nil, err
			}
			reply.parentCache = c
			return reply, nil
		})
}

// Reply posts content as a reply to this comment. Replies are kept one level deep: replying to
// a reply posts under the same top-level comment. commenteeID defaults to this comment's author.
func (c *Comment) Reply(ctx context.Context, content string, commenteeID *int64) (*Comment, error) {
	parentID := c.ParentID
	if parentID == nil {
		id, err := c.requireID()
		if err != nil {
			return nil, err
		}
		parentID = &id
	}

	if commenteeID == nil && c.Author != nil && c.Author.ID != 0 {
		authorID := c.Author.ID
		commenteeID = &authorID
	}

	return c.place.PostComment(ctx, content, parentID, commenteeID)
}

// Delete removes the comment. It requires a logged-in session and succeeds only on status 200.
func (c *Comment) Delete(ctx context.Context) error {
	if err := c.remote.RequireSession(); err != nil {
		return err
	}
	id, err := c.requireID()
	if err != nil {
		return err
	}

	var req *types.Request
	switch p := c.place.(type) {
	case *Project:
		req = &types.Request{
			Method: http.MethodDelete,
			Host:   types.HostAPI,
			Path:   "proxy/comments/project/" + strconv.FormatInt(p.ID, 10) + "/comment/" + strconv.FormatInt(id, 10),
			Body:   []byte("{}"),
		}
	case *Studio:
		req = &types.Request{
			Method: http.MethodDelete,
			Host:   types.HostAPI,
			Path:   "proxy/comments/studio/" + strconv.FormatInt(p.ID, 10) + "/comment/" + strconv.FormatInt(id, 10),
			Body:   []byte("{}"),
		}
	case *User:
		req = &types.Request{
			Method: http.MethodPost,
			Host:   types.HostSite,
			Path:   p.commentsPath() + "del/",
			JSON:   map[string]string{"id": strconv.FormatInt(id, 10)},
		}
	}
	return c.mutate(ctx, req)
}

// Report flags the comment for moderation. No session is checked up front; the response
// status is the only success signal.
func (c *Comment) Report(ctx context.Context) error {
	id, err := c.requireID()
	if err != nil {
		return err
	}

	var req *types.Request
	switch p := c.place.(type) {
	case *Project:
		req = &types.Request{
			Method: http.MethodPost,
			Host:   types.HostAPI,
			Path:   "proxy/project/" + strconv.FormatInt(p.ID, 10) + "/comment/" + strconv.FormatInt(id, 10) + "/report",
			JSON:   map[string]any{"reportId": nil},
		}
	case *Studio:
		req = &types.Request{
			Method: http.MethodPost,
			Host:   types.HostAPI,
			Path:   "proxy/studio/" + strconv.FormatInt(p.ID, 10) + "/comment/" + strconv.FormatInt(id, 10) + "/report",
			JSON:   map[string]any{"reportId": nil},
		}
	case *User:
		req = &types.Request{
			Method: http.MethodPost,
			Host:   types.HostSite,
			Path:   p.commentsPath() + "rep/",
			JSON:   map[string]string{"id": strconv.FormatInt(id, 10)},
		}
	}
	return c.mutate(ctx, req)
}

func (c *Comment) mutate(ctx context.Context, req *types.Request) error {
	resp, err := c.remote.do(ctx, req)
	if err != nil {
		// A 200 carrying an error envelope still counts as done.
		if !(resp.OK() && errors.Is(err, pkgerrs.ErrBadResponse)) {
			return err
		}
	}
	if !resp.OK() {
		return &pkgerrs.Error{
			Kind:       pkgerrs.KindBadResponse,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Message:    req.Method + " " + req.Path + " did not return 200",
		}
	}
	return nil
}

// IsSelf reports whether the bound session is authenticated as the comment's author.
func (c *Comment) IsSelf() bool {
	if c.remote.session == nil || c.Author == nil {
		return false
	}
	username, ok := c.remote.session.Username()
	return ok && username == c.Author.Username
}

// RequirePermission fails with NoSession when unbound and NoPermission when the session is
// not the comment's author.
func (c *Comment) RequirePermission() error {
	if err := c.remote.RequireSession(); err != nil {
		return err
	}
	if !c.IsSelf() {
		return pkgerrs.New(pkgerrs.KindNoPermission, "only the author may modify this comment")
	}
	return nil
}
