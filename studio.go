package scratch

import (
	"context"
	"strconv"
	"time"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// Studio is a curated collection of projects.
type Studio struct {
	remote *RemoteObject

	ID          int64
	Title       string
	HostID      int64
	Description string
	OpenToAll   bool

	CommentsAllowed bool

	CreatedAt  time.Time
	ModifiedAt time.Time

	CommentCount  int
	FollowerCount int
	ManagerCount  int
	ProjectCount  int
}

const studioVariantName = "Studio"

// StudioVariant fetches studios by id.
var StudioVariant = Variant[*Studio, int64]{
	Name:     studioVariantName,
	NotFound: pkgerrs.KindStudioNotFound,
	New:      newStudio,
}

func newStudio(id int64, transport Transport, session *Session) *Studio {
	s := &Studio{
		remote: newRemoteObject(studioVariantName, transport, session),
		ID:     id,
	}
	s.remote.refreshPath = "studios/" + strconv.FormatInt(id, 10)
	return s
}

// Remote implements Object.
func (s *Studio) Remote() *RemoteObject { return s.remote }

// Refresh re-fetches the studio.
func (s *Studio) Refresh(ctx context.Context) error {
	return refreshObject(ctx, s)
}

// Populate implements Object.
func (s *Studio) Populate(data types.Object) error {
	if ok, err := data.Get("id", &s.ID); err != nil {
		return err
	} else if ok {
		s.remote.refreshPath = "studios/" + strconv.FormatInt(s.ID, 10)
	}
	for key, dst := range map[string]any{
		"title":            &s.Title,
		"host":             &s.HostID,
		"description":      &s.Description,
		"open_to_all":      &s.OpenToAll,
		"comments_allowed": &s.CommentsAllowed,
	} {
		if _, err := data.Get(key, dst); err != nil {
			return err
		}
	}

	stats, err := data.Sub("stats")
	if err != nil {
		return err
	}
	for key, dst := range map[string]any{
		"comments":  &s.CommentCount,
		"followers": &s.FollowerCount,
		"managers":  &s.ManagerCount,
		"projects":  &s.ProjectCount,
	} {
		if _, err := stats.Get(key, dst); err != nil {
			return err
		}
	}

	history, err := data.Sub("history")
	if err != nil {
		return err
	}
	return populateTimes(history, map[string]*time.Time{
		"created":  &s.CreatedAt,
		"modified": &s.ModifiedAt,
	})
}

func (s *Studio) commentsPath() string {
	return "studios/" + strconv.FormatInt(s.ID, 10) + "/comments"
}

// GetComments walks the studio's top-level comments.
func (s *Studio) GetComments(ctx context.Context, opts *ListingOptions) *ObjectIterator[*Comment] {
	return getCommentIterator(ctx, s, Listing{Host: types.HostAPI, Path: s.commentsPath()}, opts)
}

// GetCommentByID fetches one comment on the studio.
func (s *Studio) GetCommentByID(ctx context.Context, id int64) (*Comment, error) {
	c, err := NewComment(s, &id)
	if err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, translateFetchError(CommentVariant, pkgerrs.KindCommentNotFound, err)
	}
	return c, nil
}

// PostComment posts content on the studio. parentID and commenteeID are optional.
func (s *Studio) PostComment(ctx context.Context, content string, parentID, commenteeID *int64) (*Comment, error) {
	return postProxyComment(ctx, s, "proxy/comments/studio/"+strconv.FormatInt(s.ID, 10)+"/", content, parentID, commenteeID)
}
