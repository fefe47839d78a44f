package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilePage = `
<ul class="comments">
  <li class="top-level-reply">
    <div id="comments-101" class="comment" data-comment-id="101">
      <div class="actions-wrap"><span data-comment-id="101" class="actions report">Report</span></div>
      <a href="/users/alice" id="comment-user" data-comment-user="alice">
        <img class="avatar" src="//cdn2.scratch.mit.edu/get_image/user/11_60x60.png" width="45" height="45">
      </a>
      <div class="info">
        <div class="name"><a href="/users/alice">alice</a></div>
        <div class="content">
            Hello   there,
            bob!
        </div>
        <div>
          <span class="time" title="2024-03-01T10:00:00Z">1 day ago</span>
          <a class="reply" style="display: none;" data-comment-id="101" data-control="reply-to" data-commentee-id="11">
            <span>Reply</span>
          </a>
        </div>
      </div>
    </div>
    <ul class="replies">
      <li class="reply">
        <div id="comments-102" class="comment" data-comment-id="102">
          <img class="avatar" src="//cdn2.scratch.mit.edu/get_image/user/22_60x60.png">
          <div class="info">
            <div class="name"><a href="/users/bob">bob</a></div>
            <div class="content">thanks</div>
            <span class="time" title="2024-03-01T11:30:00Z">1 day ago</span>
            <a class="reply" data-commentee-id="11"><span>Reply</span></a>
          </div>
        </div>
      </li>
      <li class="reply">
        <div class="comment">
          <div class="info">
            <div class="name">carol</div>
            <div class="content">no id here</div>
          </div>
        </div>
      </li>
    </ul>
  </li>
  <li class="top-level-reply">
    <div id="comments-200" class="comment" data-comment-id="200">
      <div class="info">
        <div class="name">dave</div>
        <div class="content">second thread</div>
        <span class="time" title="2024-02-01T08:00:00Z">1 month ago</span>
      </div>
    </div>
    <ul class="replies"></ul>
  </li>
</ul>`

func TestParseProfileComments(t *testing.T) {
	threads, err := ParseProfileComments([]byte(profilePage))
	require.NoError(t, err)
	require.Len(t, threads, 2)

	first := threads[0]
	assert.True(t, first.HasID)
	assert.Equal(t, int64(101), first.ID)
	assert.Nil(t, first.ParentID)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, int64(11), first.AuthorID)
	assert.Equal(t, "Hello there, bob!", first.Content)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), first.SentAt.UTC())
	require.NotNil(t, first.CommenteeID)
	assert.Equal(t, int64(11), *first.CommenteeID)

	require.Len(t, first.Replies, 2)

	reply := first.Replies[0]
	assert.Equal(t, int64(102), reply.ID)
	assert.Equal(t, "bob", reply.Author)
	assert.Equal(t, int64(22), reply.AuthorID)
	assert.Equal(t, "thanks", reply.Content)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, int64(101), *reply.ParentID)
	assert.Empty(t, reply.Replies)

	noID := first.Replies[1]
	assert.False(t, noID.HasID)
	assert.Equal(t, "carol", noID.Author)
	assert.Equal(t, "no id here", noID.Content)
	assert.Nil(t, noID.CommenteeID)
	assert.True(t, noID.SentAt.IsZero())

	second := threads[1]
	assert.Equal(t, int64(200), second.ID)
	assert.Equal(t, "dave", second.Author)
	assert.Zero(t, second.AuthorID)
	assert.Empty(t, second.Replies)
}

func TestParseProfileComments_EmptyPage(t *testing.T) {
	threads, err := ParseProfileComments([]byte(`<ul class="comments"></ul>`))
	require.NoError(t, err)
	assert.Empty(t, threads)

	threads, err = ParseProfileComments(nil)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestParseProfileComments_ThreadWithoutComment(t *testing.T) {
	threads, err := ParseProfileComments([]byte(`<li class="top-level-reply"><span>removed</span></li>`))
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestParsePostedComment(t *testing.T) {
	fragment := `<div id="comments-555" class="comment " data-comment-id="555">
  <div class="info">
    <div class="name"><a href="/users/tester">tester</a></div>
    <div class="content">posted!</div>
    <span class="time" title="2024-05-05T05:05:05Z">just now</span>
  </div>
</div>`

	pc, err := ParsePostedComment([]byte(fragment))
	require.NoError(t, err)
	assert.Equal(t, int64(555), pc.ID)
	assert.True(t, pc.HasID)
	assert.Equal(t, "tester", pc.Author)
	assert.Equal(t, "posted!", pc.Content)

	_, err = ParsePostedComment([]byte(`<p>Your comment was rejected</p>`))
	assert.ErrorIs(t, err, ErrNoComment)
}
