package was

import (
	"context"
	"errors"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNoMoreItems = errors.New("no more items")
)

// PaginationClient fetches one page of a listing.
type PaginationClient[T any] interface {
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*ListResponse[T], error)
}

// PaginationOptions tune the page-walking helpers.
type PaginationOptions struct {
	// PageSize overrides the page size. Zero uses the standard size.
	PageSize int

	// MaxPages caps how many pages are fetched. Zero uses the safety cap.
	MaxPages int
}

// PageIterator walks a listing item by item, fetching pages on demand. The
// service pages by offset, so the iterator advances its own offset as pages
// drain and stops when a page comes back short or the reported total is
// reached.
type PageIterator[T any] struct {
	ctx    context.Context
	client PaginationClient[T]
	path   string
	params *QueryParams

	buffer  []T
	fetched bool
	done    bool
}

// NewPageIterator creates an iterator over the listing at path. The given
// params are copied, so the caller's offset is never mutated.
func NewPageIterator[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams) *PageIterator[T] {
	pageParams := params.Clone()
	if pageParams.Limit <= 0 {
		pageParams.Limit = constants.StandardPageSize
	}

	return &PageIterator[T]{
		ctx:    ctx,
		client: client,
		path:   path,
		params: pageParams,
	}
}

// HasNext reports whether another item is available. It is optimistic before
// the first fetch: the answer is only known once a page has been read.
func (it *PageIterator[T]) HasNext() bool {
	if len(it.buffer) > 0 {
		return true
	}

	if !it.fetched {
		return true
	}

	return !it.done
}

// Next returns the next item, fetching the next page when the buffer is
// drained. It returns ErrNoMoreItems past the end of the listing.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T

	if len(it.buffer) == 0 {
		if it.fetched && it.done {
			return zero, ErrNoMoreItems
		}

		err := it.fetchNext()
		if err != nil {
			return zero, err
		}

		if len(it.buffer) == 0 {
			return zero, ErrNoMoreItems
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]

	return item, nil
}

// fetchNext reads the next page into the buffer and advances the offset.
func (it *PageIterator[T]) fetchNext() error {
	response, err := it.client.ListWithPath(it.ctx, it.path, it.params)
	if err != nil {
		return fmt.Errorf("fetching page: %w", err)
	}

	it.fetched = true
	it.buffer = append(it.buffer, response.Items...)

	count := len(response.Items)
	it.params.Offset += count

	switch {
	case count == 0:
		it.done = true
	case response.Total > 0:
		it.done = it.params.Offset >= response.Total
	default:
		it.done = count < it.params.Limit
	}

	return nil
}

// All drains the iterator into a slice.
func (it *PageIterator[T]) All() ([]T, error) {
	var items []T

	for it.HasNext() {
		item, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			break
		}

		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

// ForEach applies fn to every remaining item, stopping on the first error.
func (it *PageIterator[T]) ForEach(fn func(item T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			break
		}

		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// FetchAllPages collects every item of a listing, page by page. The page
// count is capped so a service that keeps returning full pages cannot spin
// the loop forever.
func FetchAllPages[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams, options *PaginationOptions) ([]T, error) {
	if options == nil {
		options = &PaginationOptions{}
	}

	pageParams := params.Clone()
	if options.PageSize > 0 {
		pageParams.Limit = options.PageSize
	}

	if pageParams.Limit <= 0 {
		pageParams.Limit = constants.StandardPageSize
	}

	maxPages := options.MaxPages
	if maxPages <= 0 {
		maxPages = constants.MaxSearchPages
	}

	var items []T

	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		response, err := client.ListWithPath(ctx, path, pageParams)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page+1, err)
		}

		items = append(items, response.Items...)

		count := len(response.Items)
		pageParams.Offset += count

		if count == 0 || count < pageParams.Limit {
			break
		}

		if response.Total > 0 && pageParams.Offset >= response.Total {
			break
		}
	}

	return items, nil
}

// PageResult carries one page from StreamPages.
type PageResult[T any] struct {
	Items []T
	Err   error
}

// StreamPages fetches pages in the background and delivers them on the
// returned channel. The channel closes after the last page, after the first
// error, or when the context is cancelled.
func StreamPages[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams, options *PaginationOptions) <-chan PageResult[T] {
	if options == nil {
		options = &PaginationOptions{}
	}

	pageParams := params.Clone()
	if options.PageSize > 0 {
		pageParams.Limit = options.PageSize
	}

	if pageParams.Limit <= 0 {
		pageParams.Limit = constants.StandardPageSize
	}

	maxPages := options.MaxPages
	if maxPages <= 0 {
		maxPages = constants.MaxSearchPages
	}

	results := make(chan PageResult[T])

	go func() {
		defer close(results)

		for page := 0; page < maxPages; page++ {
			response, err := client.ListWithPath(ctx, path, pageParams)
			if err != nil {
				select {
				case results <- PageResult[T]{Err: err}:
				case <-ctx.Done():
				}

				return
			}

			count := len(response.Items)
			if count == 0 {
				return
			}

			select {
			case results <- PageResult[T]{Items: response.Items}:
			case <-ctx.Done():
				return
			}

			pageParams.Offset += count

			if count < pageParams.Limit {
				return
			}

			if response.Total > 0 && pageParams.Offset >= response.Total {
				return
			}
		}
	}()

	return results
}

// SearchFunc fetches one page of search results at the given offset and
// reports the records plus the server-reported total.
type SearchFunc[T any] func(ctx context.Context, offset, size int) ([]T, int, error)

// SearchIterator walks offset/size search pagination, fetching pages lazily.
// Unlike PageIterator it drives a POST search body rather than listing query
// parameters.
type SearchIterator[T any] struct {
	ctx     context.Context
	fetch   SearchFunc[T]
	size    int
	offset  int
	total   int
	buffer  []T
	fetched bool
	done    bool
}

// NewSearchIterator creates an iterator over a search. A non-positive size
// falls back to the default search page size.
func NewSearchIterator[T any](ctx context.Context, fetch SearchFunc[T], size int) *SearchIterator[T] {
	if size <= 0 {
		size = constants.DefaultSearchPageSize
	}

	return &SearchIterator[T]{
		ctx:   ctx,
		fetch: fetch,
		size:  size,
	}
}

// HasNext reports whether another record is available.
func (it *SearchIterator[T]) HasNext() bool {
	if len(it.buffer) > 0 {
		return true
	}

	if !it.fetched {
		return true
	}

	return !it.done
}

// Next returns the next record, fetching the next page when the buffer is
// drained. It returns ErrNoMoreItems past the end of the results.
func (it *SearchIterator[T]) Next() (T, error) {
	var zero T

	if len(it.buffer) == 0 {
		if it.fetched && it.done {
			return zero, ErrNoMoreItems
		}

		if err := it.fetchNext(); err != nil {
			return zero, err
		}

		if len(it.buffer) == 0 {
			return zero, ErrNoMoreItems
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]

	return item, nil
}

// Total returns the server-reported result total, known after the first
// fetch.
func (it *SearchIterator[T]) Total() int {
	return it.total
}

// fetchNext reads the next search page into the buffer.
func (it *SearchIterator[T]) fetchNext() error {
	if err := it.ctx.Err(); err != nil {
		return err
	}

	items, total, err := it.fetch(it.ctx, it.offset, it.size)
	if err != nil {
		return fmt.Errorf("fetching search page: %w", err)
	}

	it.fetched = true
	it.total = total
	it.buffer = append(it.buffer, items...)
	it.offset += len(items)

	if len(items) == 0 || len(items) < it.size {
		it.done = true
	}

	if total > 0 && it.offset >= total {
		it.done = true
	}

	return nil
}

// All drains the iterator into a slice. The number of fetches is capped so
// a service that keeps returning full pages cannot spin the loop forever.
func (it *SearchIterator[T]) All() ([]T, error) {
	var items []T

	for page := 0; page < constants.MaxSearchPages; page++ {
		if it.fetched && it.done && len(it.buffer) == 0 {
			break
		}

		if len(it.buffer) == 0 {
			if err := it.fetchNext(); err != nil {
				return items, err
			}
		}

		items = append(items, it.buffer...)
		it.buffer = nil
	}

	return items, nil
}
