// Package scratch provides a Go client for the Scratch community API.
//
// # Overview
//
// Remote entities (users, projects, studios and comments) are exposed as typed objects that
// know how to re-fetch themselves. Objects are populated either by one refresh call or
// directly from a listing page, and share the transport of the session they were fetched
// through.
//
// # Features
//
//   - Typed entities with incremental population: fields absent from a payload keep their value
//   - A closed error taxonomy usable with errors.Is, see package pkg/errors
//   - Lazy paginated listings with a partial-failure policy for malformed items
//   - Comment threads on projects, studios and user profiles, including reply and delete
//   - Built-in rate limiting and Retry-After pacing
//   - Structured logging support via Go's slog package
//
// # Quick Start
//
//	session, err := scratch.NewSession(ctx, &scratch.Config{
//		SessionID: os.Getenv("SCRATCH_SESSION_ID"),
//		UserAgent: "myapp/1.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer session.Close()
//
//	project, err := session.Project(ctx, 104)
//	if errors.Is(err, errors.ErrProjectNotFound) {
//		// the project does not exist or is not shared
//	}
//
// # Session Lifecycle
//
// Every object fetched through a session holds the session's transport by reference.
// Closing the session, or calling CloseSession on any object, closes the transport for all
// of them; later calls fail with SessionClosed before any I/O.
//
// # Listings
//
// Listing methods return an ObjectIterator. Pages are requested only as items are consumed,
// and the walk ends when the requested limit is reached or a page comes back empty:
//
//	it := project.GetComments(ctx, &scratch.ListingOptions{Limit: 100})
//	for it.HasNext() {
//		comment, err := it.Next()
//		if err != nil {
//			break
//		}
//		fmt.Println(comment.Author.Username, comment.Content)
//	}
//	if err := it.Err(); err != nil {
//		log.Fatal(err)
//	}
//	for _, skipped := range it.Skipped() {
//		log.Printf("item at offset %d skipped: %v", skipped.Offset, skipped.Err)
//	}
//
// Receiving fewer items than requested without an error means the listing is exhausted.
//
// # Errors
//
// Single-object fetches report either the variant's not-found kind (ProjectNotFound,
// CommentNotFound, ...) or the generic ObjectFetchError; both carry the underlying cause.
// Operations that need a bound session fail with NoSession before any request is made.
package scratch
