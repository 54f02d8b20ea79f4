// Package cursor implements cursor-driven pagination over remote
// collections. An Iterator pulls pages through a fetch callback, buffers
// them, and yields items one at a time while enforcing count and fetch
// budgets. The fetch callback reads the current cursor from the iterator
// and records the next one, so the iterator itself stays agnostic of the
// wire format.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/vgavro/requests-client/logger"
)

// Done reports normal exhaustion of the iterator. Callers loop on Next
// until it returns Done.
var Done = errors.New("no more items in iterator")

// EmptyFetchError reports a pagination contract violation: the cursor
// promised more data but the remote kept returning empty pages. It is
// distinct from Done, which signals normal termination.
type EmptyFetchError struct {
	Retries int
	Wait    time.Duration
}

func (e *EmptyFetchError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("cursor has more, but empty list returned (after %d retries with %s sleep)",
			e.Retries, e.Wait)
	}
	return "cursor has more, but empty list returned"
}

// FetchFunc retrieves the next page. It receives the iterator so it can
// read the current cursor and store the next one via SetCursor, flip
// SetHasMore when the remote reports an explicit end, or latch StopFetch.
// Returning a nil slice leaves the buffer untouched.
type FetchFunc[T any] func(ctx context.Context, it *Iterator[T]) ([]T, error)

// Config carries the optional knobs for New. The zero value means: no
// initial buffer, unlimited counts, fetch as long as the cursor is truthy,
// no waits, no empty-page retries.
type Config[T any] struct {
	// Cursor is the continuation token to resume from. The fetch callback
	// replaces it after every page via SetCursor.
	Cursor any

	// HasMore overrides the has-more derivation. When nil the iterator
	// assumes more data until the first fetch, after which the truthiness
	// of the cursor decides.
	HasMore *bool

	// Reverse drains each page from its last item to its first.
	Reverse bool

	// Initial pre-fills the buffer; items are yielded before any fetch.
	Initial []T

	// MaxCount caps the total number of items yielded. Zero or negative
	// means unlimited.
	MaxCount int

	// MaxCountToStopFetch stops further fetches once that many items were
	// yielded, while still draining the buffer. Zero or negative means
	// unlimited.
	MaxCountToStopFetch int

	// MaxFetchCount caps the number of fetches. Zero means unlimited,
	// negative disables fetching entirely (the buffer is still drained).
	MaxFetchCount int

	// FetchWait pauses between consecutive fetches. The first fetch is
	// never delayed.
	FetchWait time.Duration

	// EmptyFetchRetries is the number of extra fetches attempted when a
	// page comes back empty although more data is promised. When the
	// budget is spent, Next fails with EmptyFetchError.
	EmptyFetchRetries int

	// EmptyFetchWait pauses before each empty-page retry.
	EmptyFetchWait time.Duration

	Logger logger.Logger

	// Sleep is the wait primitive used for FetchWait and EmptyFetchWait.
	// Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Iterator is a single-goroutine pull iterator over a paginated remote
// collection. It is not safe for concurrent use.
type Iterator[T any] struct {
	fetch FetchFunc[T]

	cursor  any
	hasMore *bool
	reverse bool

	maxCount            int
	maxCountToStopFetch int
	maxFetchCount       int

	fetchWait         time.Duration
	emptyFetchRetries int
	emptyFetchWait    time.Duration

	log   logger.Logger
	sleep func(ctx context.Context, d time.Duration) error

	buf             []T
	count           int
	fetchCount      int
	stopOnNextFetch bool
}

// New builds an iterator draining fetch page by page. A nil fetch is
// allowed and turns the iterator into a plain pass over cfg.Initial.
func New[T any](fetch FetchFunc[T], cfg Config[T]) *Iterator[T] {
	log := cfg.Logger
	if log == nil {
		log = logger.Noop()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	it := &Iterator[T]{
		fetch:               fetch,
		cursor:              cfg.Cursor,
		hasMore:             cfg.HasMore,
		reverse:             cfg.Reverse,
		maxCount:            cfg.MaxCount,
		maxCountToStopFetch: cfg.MaxCountToStopFetch,
		maxFetchCount:       cfg.MaxFetchCount,
		fetchWait:           cfg.FetchWait,
		emptyFetchRetries:   cfg.EmptyFetchRetries,
		emptyFetchWait:      cfg.EmptyFetchWait,
		log:                 log,
		sleep:               sleep,
	}
	if len(cfg.Initial) > 0 {
		it.buf = append([]T(nil), cfg.Initial...)
	}
	return it
}

// Cursor returns the current continuation token.
func (it *Iterator[T]) Cursor() any { return it.cursor }

// SetCursor records the continuation token for the next fetch. Fetch
// callbacks call it after every page.
func (it *Iterator[T]) SetCursor(cursor any) { it.cursor = cursor }

// HasMore reports whether another fetch may produce items. An explicit
// SetHasMore always wins; otherwise the iterator assumes more data until
// the first fetch, after which the truthiness of the cursor decides.
func (it *Iterator[T]) HasMore() bool {
	if it.hasMore != nil {
		return *it.hasMore
	}
	if it.fetchCount == 0 {
		return true
	}
	return truthy(it.cursor)
}

// SetHasMore pins the has-more answer, overriding cursor truthiness.
func (it *Iterator[T]) SetHasMore(hasMore bool) { it.hasMore = &hasMore }

// StopFetch latches the iterator to never fetch again. Buffered items are
// still yielded. The latch is never reset.
func (it *Iterator[T]) StopFetch() { it.stopOnNextFetch = true }

// FetchStopped reports whether the no-more-fetches latch is set.
func (it *Iterator[T]) FetchStopped() bool { return it.stopOnNextFetch }

// Count returns the number of items yielded so far.
func (it *Iterator[T]) Count() int { return it.count }

// FetchCount returns the number of fetches performed so far, counting
// fetches that failed.
func (it *Iterator[T]) FetchCount() int { return it.fetchCount }

// Next yields the next item. It returns Done on normal exhaustion, an
// EmptyFetchError when the remote keeps promising data it does not
// deliver, and fetch or sleep errors as-is.
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if len(it.buf) > 0 {
		return it.next()
	}

	if err := it.fetchNext(ctx); err != nil {
		return zero, err
	}

	if len(it.buf) == 0 && it.HasMore() {
		for i := 0; i < it.emptyFetchRetries; i++ {
			it.log.Debug().Int("retry", i+1).Msg("Retrying fetch on empty page")
			if it.emptyFetchWait > 0 {
				if err := it.sleep(ctx, it.emptyFetchWait); err != nil {
					return zero, err
				}
			}
			if err := it.fetchNext(ctx); err != nil {
				return zero, err
			}
			if len(it.buf) > 0 {
				break
			}
		}
		if len(it.buf) == 0 {
			return zero, &EmptyFetchError{Retries: it.emptyFetchRetries, Wait: it.emptyFetchWait}
		}
	}

	if len(it.buf) == 0 {
		return zero, Done
	}
	return it.next()
}

// All drains the iterator and returns every remaining item. A Done from
// Next is swallowed; any other error is returned along with the items
// collected so far.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	for {
		item, err := it.Next(ctx)
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
}

// fetchNext runs one fetch round. It returns Done when fetching is
// refused: the fetch budget is spent, the stop latch is set, the remote
// reported no more data, or no callback was configured.
func (it *Iterator[T]) fetchNext(ctx context.Context) error {
	if it.fetch == nil || it.maxFetchCount < 0 || it.stopOnNextFetch || !it.HasMore() {
		return Done
	}

	if it.fetchCount > 0 && it.fetchWait > 0 {
		if err := it.sleep(ctx, it.fetchWait); err != nil {
			return err
		}
	}
	// A failed fetch still consumes budget.
	it.fetchCount++
	if it.maxFetchCount > 0 && it.fetchCount >= it.maxFetchCount {
		it.stopOnNextFetch = true
	}

	items, err := it.fetch(ctx, it)
	if err != nil {
		return err
	}
	if items != nil {
		it.buf = append([]T(nil), items...)
	}
	it.log.Debug().
		Int("items", len(it.buf)).
		Int("count", it.count).
		Int("fetch_count", it.fetchCount).
		Msg("Fetched page")
	return nil
}

func (it *Iterator[T]) next() (T, error) {
	var zero T
	if it.maxCount > 0 && it.count >= it.maxCount {
		return zero, Done
	}
	it.count++
	if (it.maxCount > 0 && it.count == it.maxCount) ||
		(it.maxCountToStopFetch > 0 && it.count >= it.maxCountToStopFetch) {
		it.stopOnNextFetch = true
	}
	if it.reverse {
		item := it.buf[len(it.buf)-1]
		it.buf = it.buf[:len(it.buf)-1]
		return item, nil
	}
	item := it.buf[0]
	it.buf = it.buf[1:]
	return item, nil
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truthy reports whether a cursor value signals more data. Nil values,
// empty collections and strings, and zero scalars all read as exhausted.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}
