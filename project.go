package scratch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// Project is a shared project.
type Project struct {
	remote *RemoteObject

	ID           int64
	Title        string
	Description  string
	Instructions string
	Author       *User

	Views     int
	Loves     int
	Favorites int
	Remixes   int

	CreatedAt  time.Time
	ModifiedAt time.Time
	SharedAt   time.Time

	CommentsAllowed bool
}

const projectVariantName = "Project"

// ProjectVariant fetches projects by id.
var ProjectVariant = Variant[*Project, int64]{
	Name:     projectVariantName,
	NotFound: pkgerrs.KindProjectNotFound,
	New:      newProject,
}

func newProject(id int64, transport Transport, session *Session) *Project {
	p := &Project{
		remote: newRemoteObject(projectVariantName, transport, session),
		ID:     id,
	}
	p.remote.refreshPath = "projects/" + strconv.FormatInt(id, 10)
	return p
}

// projectFromData builds a project from a listing item.
func projectFromData(data types.Object, transport Transport, session *Session) (*Project, error) {
	if !data.Has("id") {
		return nil, pkgerrs.New(pkgerrs.KindNoData, "project payload has no id")
	}
	p := newProject(0, transport, session)
	if err := p.Populate(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Remote implements Object.
func (p *Project) Remote() *RemoteObject { return p.remote }

// Refresh re-fetches the project.
func (p *Project) Refresh(ctx context.Context) error {
	return refreshObject(ctx, p)
}

// Populate implements Object.
func (p *Project) Populate(data types.Object) error {
	if ok, err := data.Get("id", &p.ID); err != nil {
		return err
	} else if ok {
		p.remote.refreshPath = "projects/" + strconv.FormatInt(p.ID, 10)
	}
	for key, dst := range map[string]any{
		"title":            &p.Title,
		"description":      &p.Description,
		"instructions":     &p.Instructions,
		"comments_allowed": &p.CommentsAllowed,
	} {
		if _, err := data.Get(key, dst); err != nil {
			return err
		}
	}

	if data.Has("author") {
		author, err := data.Sub("author")
		if err != nil {
			return err
		}
		if err := p.populateAuthor(author); err != nil {
			return err
		}
	}

	stats, err := data.Sub("stats")
	if err != nil {
		return err
	}
	for key, dst := range map[string]any{
		"views":     &p.Views,
		"loves":     &p.Loves,
		"favorites": &p.Favorites,
		"remixes":   &p.Remixes,
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
		"created":  &p.CreatedAt,
		"modified": &p.ModifiedAt,
		"shared":   &p.SharedAt,
	})
}

func (p *Project) populateAuthor(data types.Object) error {
	if p.Author == nil {
		p.Author = newUser("", p.remote.transport, p.remote.session)
	}
	return p.Author.Populate(data)
}

// populateTimes decodes each present timestamp field into its destination.
func populateTimes(data types.Object, fields map[string]*time.Time) error {
	for key, dst := range fields {
		var ts types.Timestamp
		ok, err := data.Get(key, &ts)
		if err != nil {
			return err
		}
		if ok {
			*dst = ts.Time
		}
	}
	return nil
}

func (p *Project) commentsPath() (string, error) {
	if p.Author == nil || p.Author.Username == "" {
		return "", pkgerrs.New(pkgerrs.KindNoData, "project %d has no author; refresh it first", p.ID)
	}
	return "users/" + p.Author.Username + "/projects/" + strconv.FormatInt(p.ID, 10) + "/comments", nil
}

// GetComments walks the project's top-level comments.
func (p *Project) GetComments(ctx context.Context, opts *ListingOptions) *ObjectIterator[*Comment] {
	path, err := p.commentsPath()
	if err != nil {
		return newFailedIterator[*Comment](err)
	}
	return getCommentIterator(ctx, p, Listing{Host: types.HostAPI, Path: path}, opts)
}

// GetCommentByID fetches one comment on the project.
func (p *Project) GetCommentByID(ctx context.Context, id int64) (*Comment, error) {
	c, err := NewComment(p, &id)
	if err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, translateFetchError(CommentVariant, pkgerrs.KindCommentNotFound, err)
	}
	return c, nil
}

// PostComment posts content on the project. parentID and commenteeID are optional.
func (p *Project) PostComment(ctx context.Context, content string, parentID, commenteeID *int64) (*Comment, error) {
	return postProxyComment(ctx, p, "proxy/comments/project/"+strconv.FormatInt(p.ID, 10)+"/", content, parentID, commenteeID)
}

// postProxyComment posts a comment through the proxy comment endpoint of a project or studio.
func postProxyComment(ctx context.Context, place commentPlace, path, content string, parentID, commenteeID *int64) (*Comment, error) {
	r := place.Remote()
	if err := r.RequireSession(); err != nil {
		return nil, err
	}
	if err := internal.NewValidator().ValidateCommentContent(content); err != nil {
		return nil, err
	}

	resp, err := r.do(ctx, &types.Request{
		Method: http.MethodPost,
		Host:   types.HostAPI,
		Path:   path,
		JSON: map[string]any{
			"content":      content,
			"parent_id":    jsonID(parentID),
			"commentee_id": jsonID(commenteeID),
		},
	})
	if err != nil {
		return nil, err
	}

	data, err := parser.DecodeObject(resp.Body)
	if err != nil {
		return nil, pkgerrs.FetchError(pkgerrs.KindObjectFetch, CommentVariant, err)
	}
	return commentFromData(place)(data, r.transport, r.session)
}

// jsonID renders an optional id as a number, or an empty string when unset.
func jsonID(id *int64) any {
	if id == nil {
		return ""
	}
	return *id
}
