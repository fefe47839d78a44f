package scratch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	pkgerrs "github.com/jamesprial/go-scratch-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
	"github.com/jamesprial/go-scratch-api-wrapper/test_generators"
	"github.com/jamesprial/go-scratch-api-wrapper/test_helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilePath = test_helpers.SitePrefix + "site-api/comments/user/alice/"

func profileSession(t *testing.T, threads []test_generators.GeneratedComment, pageSize int) (*test_helpers.MockServer, *User) {
	t.Helper()
	ms := newMockServer(t)
	ms.SetupSession(1, "alice", "tok")
	ms.SetupUser(1, "alice")
	ms.SetupProfileComments("alice", threads, pageSize)

	s, err := NewSession(context.Background(), mockConfig(ms, "sess"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	u, err := s.User(context.Background(), "alice")
	require.NoError(t, err)
	return ms, u
}

func TestUser_Populate(t *testing.T) {
	body := `{"id": 3, "username": "Alice", "scratchteam": true,
		"history": {"joined": "2012-05-01T00:00:00.000Z"},
		"profile": {"id": 9, "bio": "hi", "status": "busy", "country": "Chile"}}`
	ft := newFakeTransport(byPath(map[string]string{"users/alice": body, "users/Alice": body}))

	u, err := GetObject(context.Background(), ft, UserVariant, "alice", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Alice", u.Username)
	assert.True(t, u.ScratchTeam)
	assert.Equal(t, 2012, u.JoinedAt.Year())
	assert.Equal(t, int64(9), u.ProfileID)
	assert.Equal(t, "busy", u.Status)
	assert.Equal(t, "Chile", u.Country)

	require.NoError(t, u.Refresh(context.Background()))
	assert.Equal(t, "users/Alice", ft.last(t).Path, "refresh follows the canonical username")
}

func TestUser_NotFound(t *testing.T) {
	_, err := GetObject(context.Background(), newFakeTransport(byPath(nil)), UserVariant, "ghost", nil)
	assert.ErrorIs(t, err, pkgerrs.ErrUserNotFound)
}

func TestUser_GetComments(t *testing.T) {
	threads := test_generators.NewCommentGenerator(11, 1).GenerateThreads(5, 2)
	ms, u := profileSession(t, threads, 2)

	page, err := u.GetComments(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	last, err := ms.GetLastRequest(profilePath)
	require.NoError(t, err)
	assert.Equal(t, "2", last.Query.Get("page"))

	c := page[0]
	id, ok := c.ID()
	require.True(t, ok)
	assert.Equal(t, threads[2].ID, id)
	assert.Equal(t, PlaceUser, c.Type)
	assert.Same(t, u, c.Place())
	assert.Equal(t, threads[2].Author, c.Author.Username)
	assert.Equal(t, threads[2].AuthorID, c.Author.ID)
	assert.Equal(t, threads[2].Content, c.Content)
	assert.Equal(t, 2, c.ReplyCount)
	require.Len(t, c.CachedReplies(), 2)

	calls := ms.TotalCalls("")
	replies, err := c.GetReplies(context.Background(), nil).Collect()
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, calls, ms.TotalCalls(""), "profile replies come from the page already read")

	parent, err := replies[1].GetParentComment(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, c, parent)

	sliced, err := c.GetReplies(context.Background(), &ListingOptions{Offset: 1, Limit: 5}).Collect()
	require.NoError(t, err)
	require.Len(t, sliced, 1)
	assert.Same(t, replies[1], sliced[0])
}

func TestUser_GetCommentsPastEnd(t *testing.T) {
	threads := test_generators.NewCommentGenerator(11, 1).GenerateThreads(3, 0)
	_, u := profileSession(t, threads, 2)

	page, err := u.GetComments(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = u.GetComments(context.Background(), 0)
	var cfgErr *pkgerrs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestUser_GetCommentByID(t *testing.T) {
	threads := test_generators.NewCommentGenerator(2, 100).GenerateThreads(6, 1)
	ms, u := profileSession(t, threads, 2)

	want := threads[4].Replies[0]
	c, err := u.GetCommentByID(context.Background(), want.ID)
	require.NoError(t, err)

	assert.Equal(t, want.Content, c.Content)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, threads[4].ID, *c.ParentID)
	assert.Equal(t, 3, ms.GetCallCount(profilePath), "scan stops at the page holding the comment")

	_, err = u.GetCommentByID(context.Background(), 99999)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrs.ErrCommentNotFound)
	assert.ErrorIs(t, err, pkgerrs.ErrNoData)
}

func TestUser_ProfileCommentRefresh(t *testing.T) {
	threads := test_generators.NewCommentGenerator(4, 1).GenerateThreads(4, 1)
	ms, u := profileSession(t, threads, 2)

	id := threads[3].ID
	c, err := NewComment(u, &id)
	require.NoError(t, err)
	assert.Empty(t, c.Content)

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, threads[3].Content, c.Content)
	assert.Equal(t, threads[3].Author, c.Author.Username)
	require.Len(t, c.CachedReplies(), 1)
	assert.Equal(t, 2, ms.GetCallCount(profilePath))

	var missing int64 = 424242
	gone, err := NewComment(u, &missing)
	require.NoError(t, err)
	assert.ErrorIs(t, gone.Refresh(context.Background()), pkgerrs.ErrCommentNotFound)
}

func TestUser_PostComment(t *testing.T) {
	cg := test_generators.NewCommentGenerator(9, 700)
	posted := cg.GenerateComment()
	posted.Content = "nice profile"

	ms, u := profileSession(t, nil, 2)
	forms := make(chan map[string]string, 1)
	ms.HandleFunc(http.MethodPost, profilePath+"add/", func(w http.ResponseWriter, r *http.Request) {
		var form map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &form)
		forms <- form
		io.WriteString(w, test_generators.PostedFragment(posted))
	})

	parentID := int64(5)
	c, err := u.PostComment(context.Background(), "nice profile", &parentID, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"content": "nice profile", "parent_id": "5", "commentee_id": ""}, <-forms)

	id, ok := c.ID()
	require.True(t, ok)
	assert.Equal(t, int64(700), id)
	assert.Equal(t, "nice profile", c.Content)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, int64(5), *c.ParentID)
}

func TestUser_PostCommentFailures(t *testing.T) {
	ft := newFakeTransport(func(req *types.Request) (int, string) { return 200, "<p>rate limited</p>" })

	anonymous := newUser("alice", ft, nil)
	_, err := anonymous.PostComment(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, pkgerrs.ErrNoSession)
	assert.Equal(t, 0, ft.calls())

	u := newUser("alice", ft, newTestSession(ft, "bob"))
	_, err = u.PostComment(context.Background(), "", nil, nil)
	var cfgErr *pkgerrs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, ft.calls())

	_, err = u.PostComment(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, pkgerrs.ErrBadResponse)
	assert.Equal(t, 1, ft.calls())
}

func TestUser_IsSelf(t *testing.T) {
	ft := newFakeTransport(nil)
	assert.False(t, newUser("alice", ft, nil).IsSelf())
	assert.True(t, newUser("alice", ft, newTestSession(ft, "alice")).IsSelf())
	assert.False(t, newUser("alice", ft, newTestSession(ft, "bob")).IsSelf())
}
