package scratch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jamesprial/go-scratch-api-wrapper/internal"
	"github.com/jamesprial/go-scratch-api-wrapper/pkg/types"
)

// ErrNoMoreItems is returned by Next once an iterator is exhausted.
var ErrNoMoreItems = internal.ErrNoMoreItems

// ListingOptions selects the window of a listing to walk.
type ListingOptions struct {
	// Offset is the index of the first item. Defaults to 0.
	Offset int
	// Limit is the number of items wanted in total, not pages. Defaults to 40.
	Limit int
	// PageSize is the number of items requested per call. Defaults to the session's page size.
	PageSize int
}

// DefaultListingLimit is the number of items a listing yields when Limit is zero.
const DefaultListingLimit = 40

func (o *ListingOptions) withDefaults(pageSize int) ListingOptions {
	out := ListingOptions{}
	if o != nil {
		out = *o
	}
	if out.Limit == 0 {
		out.Limit = DefaultListingLimit
	}
	if out.PageSize == 0 {
		out.PageSize = pageSize
	}
	return out
}

// Listing names a paginated endpoint. Query carries feature-specific parameters;
// limit and offset are added per page.
type Listing struct {
	Host  types.Host
	Path  string
	Query url.Values
}

// ItemBuilder constructs an entity directly from one listing item, without a refresh call.
type ItemBuilder[T any] func(data types.Object, transport Transport, session *Session) (T, error)

// SkippedItem records a listing item that could not be turned into an entity.
type SkippedItem struct {
	Offset int
	Raw    json.RawMessage
	Err    error
}

// ObjectIterator yields the entities of a listing lazily, one page at a time.
//
// An item that fails to construct is logged, recorded in Skipped, and passed over; it never
// ends the walk. A failed page request ends the walk and is reported by Err. The iterator is
// not restartable: walk the listing again by asking for a new iterator.
type ObjectIterator[T any] struct {
	pages     *internal.PageIterator
	build     func(raw json.RawMessage) (T, error)
	logger    *slog.Logger
	preloaded []T

	next    T
	hasNext bool
	skipped []SkippedItem
	err     error
}

// GetObjectIterator walks listing and builds each item with build.
// A nil transport falls back to the session's transport.
func GetObjectIterator[T any](ctx context.Context, transport Transport, session *Session, listing Listing, opts *ListingOptions, build ItemBuilder[T]) *ObjectIterator[T] {
	pageSize := DefaultPageSize
	logger := slog.New(slog.DiscardHandler)
	if session != nil {
		pageSize = session.config.PageSize
		logger = session.logger
		if transport == nil {
			transport = session.transport
		}
	}
	if transport == nil {
		t, err := NewTransport(nil)
		if err != nil {
			return newFailedIterator[T](err)
		}
		transport = t
	}
	o := opts.withDefaults(pageSize)

	it := &ObjectIterator[T]{logger: logger}
	if err := internal.NewValidator().ValidateListing(o.Limit, o.Offset, o.PageSize); err != nil {
		it.err = err
		return it
	}

	it.build = func(raw json.RawMessage) (T, error) {
		var zero T
		data, err := parser.DecodeItem(raw)
		if err != nil {
			return zero, err
		}
		return build(data, transport, session)
	}

	it.pages = internal.NewPageIterator(ctx, o.Offset, o.Limit, o.PageSize, func(ctx context.Context, offset, limit int) ([]json.RawMessage, error) {
		query := url.Values{}
		for key, values := range listing.Query {
			query[key] = append([]string(nil), values...)
		}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))

		if transport.Closed() {
			return nil, errSessionClosed("listing")
		}
		resp, err := transport.Do(ctx, &types.Request{
			Method: http.MethodGet,
			Host:   listing.Host,
			Path:   listing.Path,
			Query:  query,
		})
		if err != nil {
			return nil, err
		}
		return parser.DecodePage(resp.Body)
	})
	return it
}

// newPreloadedIterator yields items already in memory, sliced by opts.
func newPreloadedIterator[T any](items []T, opts *ListingOptions) *ObjectIterator[T] {
	o := opts.withDefaults(DefaultPageSize)
	it := &ObjectIterator[T]{logger: slog.New(slog.DiscardHandler)}
	if err := internal.NewValidator().ValidateListing(o.Limit, o.Offset, o.PageSize); err != nil {
		it.err = err
		return it
	}

	start := min(o.Offset, len(items))
	end := min(start+o.Limit, len(items))
	it.preloaded = items[start:end]
	return it
}

// newFailedIterator returns an iterator that yields nothing and reports err.
func newFailedIterator[T any](err error) *ObjectIterator[T] {
	return &ObjectIterator[T]{logger: slog.New(slog.DiscardHandler), err: err}
}

// HasNext reports whether another entity is available, fetching the next page if needed.
func (it *ObjectIterator[T]) HasNext() bool {
	if it.hasNext {
		return true
	}
	if it.err != nil {
		return false
	}

	if it.pages == nil {
		if len(it.preloaded) == 0 {
			return false
		}
		it.next, it.preloaded = it.preloaded[0], it.preloaded[1:]
		it.hasNext = true
		return true
	}

	for it.pages.HasNext() {
		raw, offset, err := it.pages.Next()
		if err != nil {
			break
		}

		item, err := it.build(raw)
		if err != nil {
			it.logger.Warn("skipping listing item", "offset", offset, "error", err)
			it.skipped = append(it.skipped, SkippedItem{Offset: offset, Raw: raw, Err: err})
			continue
		}

		it.next = item
		it.hasNext = true
		return true
	}

	it.err = it.pages.Err()
	return false
}

// Next returns the next entity.
func (it *ObjectIterator[T]) Next() (T, error) {
	if !it.HasNext() {
		var zero T
		if it.err != nil {
			return zero, it.err
		}
		return zero, ErrNoMoreItems
	}

	item := it.next
	var zero T
	it.next = zero
	it.hasNext = false
	return item, nil
}

// Err returns the error that ended the walk, if any. Exhaustion is not an error.
func (it *ObjectIterator[T]) Err() error {
	return it.err
}

// Skipped returns the items passed over so far because they could not be constructed.
func (it *ObjectIterator[T]) Skipped() []SkippedItem {
	return it.skipped
}

// Collect drains the iterator. The entities gathered before a failure are returned with it.
func (it *ObjectIterator[T]) Collect() ([]T, error) {
	var items []T
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, it.err
}
