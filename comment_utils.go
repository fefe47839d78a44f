package scratch

import (
	"github.com/jamesprial/go-scratch-api-wrapper/internal"
)

// CommentTree provides utility methods for working with comment threads held in memory.
// Children are the replies a comment already carries; building and walking a tree never
// performs a request.
type CommentTree interface {
	Flatten() []*Comment
	Filter(func(*Comment) bool) []*Comment
	Find(func(*Comment) bool) (*Comment, bool)
	GetByID(int64) *Comment
	GetByAuthor(string) []*Comment
	GetTopLevel() []*Comment
	GetDepth() int
	Count() int
	Walk(func(*Comment))
}

type commentTree struct {
	*internal.Tree[*Comment]
}

// NewCommentTree creates a new CommentTree from a slice of comments. Nil entries are ignored.
func NewCommentTree(comments []*Comment) CommentTree {
	return commentTree{internal.NewTree(nonNil(comments), func(c *Comment) []*Comment {
		return nonNil(c.replyCache)
	})}
}

func nonNil(comments []*Comment) []*Comment {
	out := make([]*Comment, 0, len(comments))
	for _, c := range comments {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (t commentTree) GetByID(id int64) *Comment {
	found, _ := t.Find(func(c *Comment) bool {
		cid, ok := c.ID()
		return ok && cid == id
	})
	return found
}

func (t commentTree) GetByAuthor(username string) []*Comment {
	return t.Filter(func(c *Comment) bool {
		return c.Author != nil && c.Author.Username == username
	})
}

func (t commentTree) GetTopLevel() []*Comment {
	return t.Roots
}

func (t commentTree) GetDepth() int {
	return t.Depth()
}
