package internal

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
	"golang.org/x/net/html"
)

// ProfileComment is one comment scraped from the legacy profile comment page.
// Replies are delivered inline with their top-level comment.
type ProfileComment struct {
	ID          int64
	HasID       bool
	ParentID    *int64
	CommenteeID *int64
	Author      string
	AuthorID    int64
	Content     string
	SentAt      time.Time
	Replies     []ProfileComment
}

// ErrNoComment reports a page fragment without any comment markup.
var ErrNoComment = errors.New("no comment found in page fragment")

var avatarUserIDRegex = regexp.MustCompile(`/user/(\d+)_`)

// ParseProfileComments extracts the comment threads of one profile comment page.
// A page without comments yields an empty slice.
func ParseProfileComments(body []byte) ([]ProfileComment, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile comments: %w", err)
	}

	var threads []ProfileComment
	walk(doc, func(n *html.Node) bool {
		if !isElement(n, "li") || !hasClass(n, "top-level-reply") {
			return true
		}

		top, ok := parseThread(n)
		if ok {
			threads = append(threads, top)
		}
		return false
	})

	return threads, nil
}

func parseThread(li *html.Node) (ProfileComment, bool) {
	commentNode := findFirst(li, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "comment")
	})
	if commentNode == nil {
		return ProfileComment{}, false
	}
	top := parseCommentNode(commentNode)

	repliesNode := findFirst(li, func(n *html.Node) bool {
		return isElement(n, "ul") && hasClass(n, "replies")
	})
	if repliesNode != nil {
		for child := repliesNode.FirstChild; child != nil; child = child.NextSibling {
			if !isElement(child, "li") || !hasClass(child, "reply") {
				continue
			}
			replyNode := findFirst(child, func(n *html.Node) bool {
				return isElement(n, "div") && hasClass(n, "comment")
			})
			if replyNode == nil {
				continue
			}
			reply := parseCommentNode(replyNode)
			if top.HasID {
				parent := top.ID
				reply.ParentID = &parent
			}
			top.Replies = append(top.Replies, reply)
		}
	}

	return top, true
}

func parseCommentNode(n *html.Node) ProfileComment {
	var pc ProfileComment

	if id, err := strconv.ParseInt(attr(n, "data-comment-id"), 10, 64); err == nil {
		pc.ID = id
		pc.HasID = true
	}

	if name := findFirst(n, func(m *html.Node) bool {
		return isElement(m, "div") && hasClass(m, "name")
	}); name != nil {
		pc.Author = strings.TrimSpace(textContent(name))
	}

	if avatar := findFirst(n, func(m *html.Node) bool {
		return isElement(m, "img") && hasClass(m, "avatar")
	}); avatar != nil {
		if match := avatarUserIDRegex.FindStringSubmatch(attr(avatar, "src")); match != nil {
			pc.AuthorID, _ = strconv.ParseInt(match[1], 10, 64)
		}
	}

	if content := findFirst(n, func(m *html.Node) bool {
		return isElement(m, "div") && hasClass(m, "content")
	}); content != nil {
		pc.Content = strings.Join(strings.Fields(textContent(content)), " ")
	}

	if ts := findFirst(n, func(m *html.Node) bool {
		return isElement(m, "span") && hasClass(m, "time")
	}); ts != nil {
		if t, err := types.ParseTimestamp(attr(ts, "title")); err == nil {
			pc.SentAt = t
		}
	}

	if reply := findFirst(n, func(m *html.Node) bool {
		return isElement(m, "a") && hasClass(m, "reply")
	}); reply != nil {
		if id, err := strconv.ParseInt(attr(reply, "data-commentee-id"), 10, 64); err == nil {
			pc.CommenteeID = &id
		}
	}

	return pc
}

// walk visits n and its descendants depth-first; fn returning false prunes the subtree.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(m *html.Node) bool {
		if found != nil {
			return false
		}
		if m != n && match(m) {
			found = m
			return false
		}
		return true
	})
	return found
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(m *html.Node) bool {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
		}
		return true
	})
	return sb.String()
}

// ParsePostedComment extracts the comment fragment the site returns after a profile comment is posted.
func ParsePostedComment(body []byte) (ProfileComment, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ProfileComment{}, fmt.Errorf("failed to parse posted comment: %w", err)
	}

	node := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "comment") && attr(n, "data-comment-id") != ""
	})
	if node == nil {
		return ProfileComment{}, ErrNoComment
	}
	return parseCommentNode(node), nil
}
