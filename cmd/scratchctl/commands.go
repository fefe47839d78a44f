package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	scratch "github.com/jamesprial/go-scratch-api-wrapper"
	"github.com/jamesprial/go-scratch-api-wrapper/internal/config"
)

func placeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Project `ID` the comments belong to",
		},
		&cli.Int64Flag{
			Name:    "studio",
			Aliases: []string{"s"},
			Usage:   "Studio `ID` the comments belong to",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "`USERNAME` whose profile the comments are on",
		},
	}
}

func commentFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "comment",
		Usage:    "Comment `ID`",
		Required: true,
	}
}

// CommentsCommand returns the comments command
func CommentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "List comments on a project, studio or profile",
		Flags: append(placeFlags(),
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Skip the first `N` comments (projects and studios)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Return at most `N` comments (projects and studios); defaults to listing.limit",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Profile comment `PAGE` to read (profiles)",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:    "replies",
				Aliases: []string{"r"},
				Usage:   "Include replies under each comment",
			},
		),
		Action: runComments,
	}
}

// ParentCommand returns the parent command
func ParentCommand() *cli.Command {
	return &cli.Command{
		Name:   "parent",
		Usage:  "Show the comment a reply answers",
		Flags:  append(placeFlags(), commentFlag()),
		Action: runParent,
	}
}

// DeleteCommand returns the delete command
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:   "delete",
		Usage:  "Delete a comment (requires a session)",
		Flags:  append(placeFlags(), commentFlag()),
		Action: runDelete,
	}
}

// ReportCommand returns the report command
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:   "report",
		Usage:  "Report a comment for moderation",
		Flags:  append(placeFlags(), commentFlag()),
		Action: runReport,
	}
}

// WhoamiCommand returns the whoami command
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the account the configured session belongs to",
		Action: runWhoami,
	}
}

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "scratchctl.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: runConfigValidate,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openSession(c *cli.Context) (*scratch.Session, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	session, err := scratch.NewSession(c.Context, &scratch.Config{
		SessionID:      cfg.Session.ID,
		RequireLogin:   cfg.Session.RequireLogin,
		UserAgent:      cfg.HTTP.UserAgent,
		APIBaseURL:     cfg.HTTP.APIBaseURL,
		SiteBaseURL:    cfg.HTTP.SiteBaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.HTTP.Timeout},
		RefreshTimeout: cfg.HTTP.RefreshTimeout,
		RateLimit: &scratch.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		PageSize: cfg.Listing.PageSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, cfg, nil
}

// resolvePlace fetches the project, studio or user named by exactly one of the place flags.
func resolvePlace(c *cli.Context, s *scratch.Session) (scratch.Object, error) {
	set := 0
	for _, name := range []string{"project", "studio", "user"} {
		if c.IsSet(name) {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of --project, --studio or --user is required")
	}

	switch {
	case c.IsSet("project"):
		return s.Project(c.Context, c.Int64("project"))
	case c.IsSet("studio"):
		return s.Studio(c.Context, c.Int64("studio"))
	default:
		return s.User(c.Context, c.String("user"))
	}
}

func getComment(ctx context.Context, place scratch.Object, id int64) (*scratch.Comment, error) {
	switch p := place.(type) {
	case *scratch.Project:
		return p.GetCommentByID(ctx, id)
	case *scratch.Studio:
		return p.GetCommentByID(ctx, id)
	case *scratch.User:
		return p.GetCommentByID(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported comment place %T", place)
	}
}

func printComment(w io.Writer, c *scratch.Comment, depth int) {
	id := "?"
	if v, ok := c.ID(); ok {
		id = fmt.Sprint(v)
	}
	author := "unknown"
	if c.Author != nil {
		author = c.Author.Username
	}
	when := ""
	if !c.SentAt.IsZero() {
		when = " " + c.SentAt.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(w, "%s[%s] %s%s: %s\n", strings.Repeat("  ", depth), id, author, when, c.Content)
}

func runComments(c *cli.Context) error {
	session, cfg, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	place, err := resolvePlace(c, session)
	if err != nil {
		return err
	}
	w := c.App.Writer

	if user, ok := place.(*scratch.User); ok {
		comments, err := user.GetComments(c.Context, c.Int("page"))
		if err != nil {
			return fmt.Errorf("failed to get profile comments: %w", err)
		}
		if !c.Bool("replies") {
			for _, comment := range comments {
				printComment(w, comment, 0)
			}
			return nil
		}
		scratch.NewCommentTree(comments).Walk(func(comment *scratch.Comment) {
			depth := 0
			if comment.ParentID != nil {
				depth = 1
			}
			printComment(w, comment, depth)
		})
		return nil
	}

	limit := cfg.Listing.Limit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}
	opts := &scratch.ListingOptions{Offset: c.Int("offset"), Limit: limit}

	var it *scratch.ObjectIterator[*scratch.Comment]
	switch p := place.(type) {
	case *scratch.Project:
		it = p.GetComments(c.Context, opts)
	case *scratch.Studio:
		it = p.GetComments(c.Context, opts)
	}

	for it.HasNext() {
		comment, err := it.Next()
		if err != nil {
			return err
		}
		printComment(w, comment, 0)
		if !c.Bool("replies") || comment.ReplyCount == 0 {
			continue
		}
		replies, err := comment.GetReplies(c.Context, nil).Collect()
		if err != nil {
			return fmt.Errorf("failed to get replies: %w", err)
		}
		for _, reply := range replies {
			printComment(w, reply, 1)
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("failed to list comments: %w", err)
	}
	if skipped := it.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(c.App.ErrWriter, "skipped %d malformed comments\n", len(skipped))
	}
	return nil
}

func runParent(c *cli.Context) error {
	session, _, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	place, err := resolvePlace(c, session)
	if err != nil {
		return err
	}
	comment, err := getComment(c.Context, place, c.Int64("comment"))
	if err != nil {
		return err
	}

	parent, err := comment.GetParentComment(c.Context, true)
	if err != nil {
		return fmt.Errorf("failed to get parent comment: %w", err)
	}
	if parent == nil {
		fmt.Fprintf(c.App.Writer, "comment %d is a top-level comment\n", c.Int64("comment"))
		return nil
	}
	printComment(c.App.Writer, parent, 0)
	return nil
}

func runDelete(c *cli.Context) error {
	return mutateComment(c, "deleted", (*scratch.Comment).Delete)
}

func runReport(c *cli.Context) error {
	return mutateComment(c, "reported", (*scratch.Comment).Report)
}

func mutateComment(c *cli.Context, verb string, action func(*scratch.Comment, context.Context) error) error {
	session, _, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	place, err := resolvePlace(c, session)
	if err != nil {
		return err
	}
	id := c.Int64("comment")
	comment, err := scratch.NewComment(place, &id)
	if err != nil {
		return err
	}
	if err := action(comment, c.Context); err != nil {
		return fmt.Errorf("comment %d was not %s: %w", id, verb, err)
	}

	fmt.Fprintf(c.App.Writer, "%s comment %d\n", verb, id)
	return nil
}

func runWhoami(c *cli.Context) error {
	session, _, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	me, err := session.Me(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s (id %d)\n", me.Username, me.ID)
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}
