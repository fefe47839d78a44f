package internal

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoMoreItems is returned by Next once a listing is exhausted.
var ErrNoMoreItems = errors.New("no more items available")

// PageFetcher retrieves up to limit raw items starting at offset.
type PageFetcher func(ctx context.Context, offset, limit int) ([]json.RawMessage, error)

// PageIterator walks an offset/limit listing endpoint one page at a time.
// A page is fetched only when the previous page has been consumed, and the walk
// ends when the caller's limit is reached or a page comes back empty.
type PageIterator struct {
	ctx      context.Context
	fetch    PageFetcher
	pageSize int

	cursor int // offset of the next page to request
	end    int // offset one past the last wanted item

	buffer       []json.RawMessage
	bufferIdx    int
	bufferOffset int
	hasMore      bool
	err          error
	pages        int
}

// NewPageIterator creates an iterator yielding at most limit items from offset.
func NewPageIterator(ctx context.Context, offset, limit, pageSize int, fetch PageFetcher) *PageIterator {
	if pageSize < 1 {
		pageSize = 1
	}
	if offset < 0 {
		offset = 0
	}
	return &PageIterator{
		ctx:      ctx,
		fetch:    fetch,
		pageSize: pageSize,
		cursor:   offset,
		end:      offset + limit,
		hasMore:  limit > 0,
	}
}

// HasNext reports whether another item is available, fetching the next page if needed.
func (it *PageIterator) HasNext() bool {
	for it.bufferIdx >= len(it.buffer) {
		if it.err != nil || !it.hasMore {
			return false
		}
		it.fetchPage()
	}
	return true
}

// Next returns the next raw item and its absolute offset in the listing.
func (it *PageIterator) Next() (json.RawMessage, int, error) {
	if !it.HasNext() {
		if it.err != nil {
			return nil, 0, it.err
		}
		return nil, 0, ErrNoMoreItems
	}

	item := it.buffer[it.bufferIdx]
	offset := it.bufferOffset + it.bufferIdx
	it.bufferIdx++
	return item, offset, nil
}

// Err returns the error that stopped the walk, if any.
func (it *PageIterator) Err() error {
	return it.err
}

// Pages returns the number of pages requested so far.
func (it *PageIterator) Pages() int {
	return it.pages
}

func (it *PageIterator) fetchPage() {
	remaining := it.end - it.cursor
	if remaining <= 0 {
		it.hasMore = false
		return
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		it.hasMore = false
		return
	}

	want := min(it.pageSize, remaining)
	items, err := it.fetch(it.ctx, it.cursor, want)
	it.pages++
	if err != nil {
		it.err = err
		it.hasMore = false
		return
	}

	if len(items) > want {
		items = items[:want]
	}

	it.buffer = items
	it.bufferIdx = 0
	it.bufferOffset = it.cursor
	it.cursor += it.pageSize

	if len(items) == 0 {
		it.hasMore = false
	}
}
