package test_generators

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// GeneratedComment is a comment in the shape both the JSON API and the profile pages describe.
type GeneratedComment struct {
	ID          int64
	ParentID    *int64
	CommenteeID *int64
	Author      string
	AuthorID    int64
	Content     string
	SentAt      time.Time
	Replies     []GeneratedComment
}

// CommentGenerator generates realistic Scratch comments for testing
type CommentGenerator struct {
	rand      *rand.Rand
	templates []string
	replies   []string
	users     []string
	nextID    int64
}

// NewCommentGenerator creates a new comment generator. Ids are handed out sequentially from firstID.
func NewCommentGenerator(seed, firstID int64) *CommentGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if firstID <= 0 {
		firstID = 1
	}

	return &CommentGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		nextID: firstID,
		templates: []string{
			"I love the %s in this project!",
			"How did you make the %s?",
			"The %s is so smooth, great job.",
			"Could you add more %s next time?",
			"This %s reminds me of an old game I played.",
			"Remixed it and changed the %s, hope that is ok.",
		},
		replies: []string{
			"Thank you so much!",
			"I used a lot of clones.",
			"Sure, I will try.",
			"Glad you like it!",
			"Check the see inside page.",
		},
		users: []string{
			"griffpatch_fan", "pixel_cat", "scratch_cat", "coder_kid",
			"animator_22", "game_maker", "music_bot", "art_studio",
		},
	}
}

var topics = []string{"music", "art", "scrolling", "physics", "levels", "animation", "sound effects"}

// GenerateComment creates a top-level comment with a fresh id.
func (cg *CommentGenerator) GenerateComment() GeneratedComment {
	author := cg.rand.Intn(len(cg.users))
	return GeneratedComment{
		ID:       cg.id(),
		Author:   cg.users[author],
		AuthorID: int64(1000 + author),
		Content:  fmt.Sprintf(cg.randElement(cg.templates), cg.randElement(topics)),
		SentAt:   cg.sentAt(),
	}
}

// GenerateReply creates a reply to parent addressed to parent's author.
func (cg *CommentGenerator) GenerateReply(parent GeneratedComment) GeneratedComment {
	reply := cg.GenerateComment()
	reply.Content = cg.randElement(cg.replies)
	parentID := parent.ID
	commentee := parent.AuthorID
	reply.ParentID = &parentID
	reply.CommenteeID = &commentee
	return reply
}

// GenerateThreads creates count top-level comments with replies replies each.
func (cg *CommentGenerator) GenerateThreads(count, replies int) []GeneratedComment {
	threads := make([]GeneratedComment, 0, count)
	for i := 0; i < count; i++ {
		top := cg.GenerateComment()
		for j := 0; j < replies; j++ {
			top.Replies = append(top.Replies, cg.GenerateReply(top))
		}
		threads = append(threads, top)
	}
	return threads
}

// APIObject renders c the way the JSON comment endpoints do.
func APIObject(c GeneratedComment) map[string]any {
	return map[string]any{
		"id":               c.ID,
		"parent_id":        c.ParentID,
		"commentee_id":     c.CommenteeID,
		"content":          c.Content,
		"datetime_created": c.SentAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		"author":           map[string]any{"id": c.AuthorID, "username": c.Author},
		"reply_count":      len(c.Replies),
	}
}

// APIListing renders comments as one page of a JSON comment listing.
func APIListing(comments []GeneratedComment) string {
	items := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		items = append(items, APIObject(c))
	}
	body, _ := json.Marshal(items)
	return string(body)
}

// ProfilePage renders threads as one page of the legacy profile comment markup.
func ProfilePage(threads []GeneratedComment) string {
	var sb strings.Builder
	sb.WriteString("<ul class=\"comments\">\n")
	for _, top := range threads {
		sb.WriteString("<li class=\"top-level-reply\">\n")
		writeProfileComment(&sb, top)
		sb.WriteString("<ul class=\"replies\">\n")
		for _, reply := range top.Replies {
			sb.WriteString("<li class=\"reply\">\n")
			writeProfileComment(&sb, reply)
			sb.WriteString("</li>\n")
		}
		sb.WriteString("</ul>\n</li>\n")
	}
	sb.WriteString("</ul>\n")
	return sb.String()
}

// PostedFragment renders c as the fragment the site answers a profile comment post with.
func PostedFragment(c GeneratedComment) string {
	var sb strings.Builder
	writeProfileComment(&sb, c)
	return sb.String()
}

func writeProfileComment(sb *strings.Builder, c GeneratedComment) {
	commentee := ""
	if c.CommenteeID != nil {
		commentee = fmt.Sprintf(" data-commentee-id=\"%d\"", *c.CommenteeID)
	}
	fmt.Fprintf(sb, `<div id="comments-%d" class="comment" data-comment-id="%d">
  <a href="/users/%s"><img class="avatar" src="//cdn2.scratch.mit.edu/get_image/user/%d_60x60.png"></a>
  <div class="info">
    <div class="name"><a href="/users/%s">%s</a></div>
    <div class="content">%s</div>
    <span class="time" title="%s">a while ago</span>
    <a class="reply" data-comment-id="%d"%s><span>Reply</span></a>
  </div>
</div>
`, c.ID, c.ID, c.Author, c.AuthorID, c.Author, c.Author, html.EscapeString(c.Content),
		c.SentAt.UTC().Format(time.RFC3339), c.ID, commentee)
}

func (cg *CommentGenerator) id() int64 {
	id := cg.nextID
	cg.nextID++
	return id
}

func (cg *CommentGenerator) sentAt() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(cg.rand.Intn(86400*30)) * time.Second)
}

func (cg *CommentGenerator) randElement(items []string) string {
	return items[cg.rand.Intn(len(items))]
}
