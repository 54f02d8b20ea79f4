package cursor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgavro/requests-client/logger"
)

// drain pulls items until Done, failing the test on any other error.
func drain[T any](t *testing.T, it *Iterator[T]) []T {
	t.Helper()
	items, err := it.All(context.Background())
	require.NoError(t, err)
	return items
}

func sleepRecorder(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

func TestIteratorInitialRoundTrip(t *testing.T) {
	it := New[int](nil, Config[int]{Initial: []int{1, 2, 3}})

	assert.Equal(t, []int{1, 2, 3}, drain(t, it))
	assert.Equal(t, 3, it.Count())
	assert.Equal(t, 0, it.FetchCount())

	_, err := it.Next(context.Background())
	assert.ErrorIs(t, err, Done, "exhausted iterator stays exhausted")
}

func TestIteratorInitialNotAliased(t *testing.T) {
	initial := []int{1, 2, 3}
	it := New[int](nil, Config[int]{Initial: initial})
	initial[0] = 99

	assert.Equal(t, []int{1, 2, 3}, drain(t, it))
}

func TestIteratorFetchesPages(t *testing.T) {
	pages := map[any][]string{
		nil:  {"a", "b"},
		"p2": {"c"},
	}
	next := map[any]any{nil: "p2", "p2": ""}

	fetches := 0
	it := New(func(_ context.Context, it *Iterator[string]) ([]string, error) {
		fetches++
		cur := it.Cursor()
		it.SetCursor(next[cur])
		return pages[cur], nil
	}, Config[string]{})

	assert.Equal(t, []string{"a", "b", "c"}, drain(t, it))
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 2, it.FetchCount())
	assert.Equal(t, 3, it.Count())
}

func TestIteratorEmptyFetchExhaustion(t *testing.T) {
	hasMore := true
	fetches := 0
	var sleeps []time.Duration

	it := New(func(context.Context, *Iterator[string]) ([]string, error) {
		fetches++
		return []string{}, nil
	}, Config[string]{
		HasMore:           &hasMore,
		EmptyFetchRetries: 2,
		EmptyFetchWait:    100 * time.Millisecond,
		Sleep:             sleepRecorder(&sleeps),
	})

	_, err := it.Next(context.Background())
	require.Error(t, err)

	var efe *EmptyFetchError
	require.ErrorAs(t, err, &efe)
	assert.Equal(t, 2, efe.Retries)
	assert.Equal(t, "cursor has more, but empty list returned (after 2 retries with 100ms sleep)",
		err.Error())
	assert.Equal(t, 3, fetches, "one initial fetch plus two retries")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeps)
}

func TestIteratorEmptyFetchNoRetries(t *testing.T) {
	hasMore := true
	fetches := 0

	it := New(func(context.Context, *Iterator[string]) ([]string, error) {
		fetches++
		return nil, nil
	}, Config[string]{HasMore: &hasMore})

	_, err := it.Next(context.Background())
	var efe *EmptyFetchError
	require.ErrorAs(t, err, &efe)
	assert.Equal(t, "cursor has more, but empty list returned", err.Error())
	assert.Equal(t, 1, fetches)
}

func TestIteratorEmptyFetchRecovers(t *testing.T) {
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		if fetches < 3 {
			it.SetCursor("more")
			return nil, nil
		}
		it.SetCursor(nil)
		return []int{7}, nil
	}, Config[int]{EmptyFetchRetries: 5})

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, fetches, "retry loop stops at the first non-empty page")
}

func TestIteratorMaxCount(t *testing.T) {
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		it.SetCursor("more")
		return []int{10, 20, 30}, nil
	}, Config[int]{Initial: []int{1, 2}, MaxCount: 3})

	ctx := context.Background()
	var got []int
	for i := 0; i < 3; i++ {
		v, err := it.Next(ctx)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 10}, got, "the item hitting the cap is still returned")

	_, err := it.Next(ctx)
	assert.ErrorIs(t, err, Done)
	assert.Equal(t, 3, it.Count())
	assert.Equal(t, 1, fetches, "no fetch past the cap even though pages remain")
	assert.True(t, it.FetchStopped())
}

func TestIteratorMaxCountToStopFetch(t *testing.T) {
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		it.SetCursor("more")
		return []int{3, 4}, nil
	}, Config[int]{Initial: []int{1, 2}, MaxCountToStopFetch: 2})

	assert.Equal(t, []int{1, 2}, drain(t, it), "buffer drains but no new fetch starts")
	assert.Equal(t, 0, fetches)
	assert.True(t, it.FetchStopped())
}

func TestIteratorMaxFetchCount(t *testing.T) {
	t.Run("caps_fetches", func(t *testing.T) {
		fetches := 0
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			fetches++
			it.SetCursor("more")
			return []int{fetches}, nil
		}, Config[int]{MaxFetchCount: 2})

		assert.Equal(t, []int{1, 2}, drain(t, it))
		assert.Equal(t, 2, fetches)
	})

	t.Run("negative_disables_fetching", func(t *testing.T) {
		fetches := 0
		it := New(func(context.Context, *Iterator[int]) ([]int, error) {
			fetches++
			return []int{9}, nil
		}, Config[int]{Initial: []int{1}, MaxFetchCount: -1})

		assert.Equal(t, []int{1}, drain(t, it))
		assert.Equal(t, 0, fetches, "buffer-only iteration never calls fetch")
	})
}

func TestIteratorReverse(t *testing.T) {
	t.Run("initial_buffer", func(t *testing.T) {
		it := New[int](nil, Config[int]{Initial: []int{1, 2, 3}, Reverse: true})
		assert.Equal(t, []int{3, 2, 1}, drain(t, it))
	})

	t.Run("fetched_page", func(t *testing.T) {
		it := New(func(_ context.Context, it *Iterator[string]) ([]string, error) {
			it.SetCursor(nil)
			return []string{"a", "b"}, nil
		}, Config[string]{Reverse: true})

		assert.Equal(t, []string{"b", "a"}, drain(t, it))
	})
}

func TestIteratorFetchWaitSkipsFirstFetch(t *testing.T) {
	var sleeps []time.Duration
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		if fetches < 3 {
			it.SetCursor("more")
		} else {
			it.SetCursor(nil)
		}
		return []int{fetches}, nil
	}, Config[int]{
		FetchWait: 50 * time.Millisecond,
		Sleep:     sleepRecorder(&sleeps),
	})

	assert.Equal(t, []int{1, 2, 3}, drain(t, it))
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, sleeps,
		"every fetch after the first waits")
}

func TestIteratorFetchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	t.Run("error_returned_as_is", func(t *testing.T) {
		it := New(func(context.Context, *Iterator[int]) ([]int, error) {
			return nil, boom
		}, Config[int]{})

		_, err := it.Next(context.Background())
		assert.Same(t, boom, err)
		assert.Equal(t, 1, it.FetchCount(), "failed fetches consume budget")
	})

	t.Run("retry_after_failure_follows_cursor", func(t *testing.T) {
		fetches := 0
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			fetches++
			if fetches == 1 {
				return nil, boom
			}
			it.SetCursor(nil)
			return []int{1}, nil
		}, Config[int]{Cursor: "resume-token"})

		ctx := context.Background()
		_, err := it.Next(ctx)
		require.Same(t, boom, err)

		v, err := it.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("failure_without_cursor_terminates", func(t *testing.T) {
		fetches := 0
		it := New(func(context.Context, *Iterator[int]) ([]int, error) {
			fetches++
			return nil, boom
		}, Config[int]{})

		ctx := context.Background()
		_, err := it.Next(ctx)
		require.Same(t, boom, err)

		// The failed round already counted as a fetch and no cursor was
		// recorded, so the iterator derives has-more as false.
		_, err = it.Next(ctx)
		assert.ErrorIs(t, err, Done)
		assert.Equal(t, 1, fetches)
	})
}

func TestIteratorSleepErrorAborts(t *testing.T) {
	hasMore := true
	it := New(func(context.Context, *Iterator[int]) ([]int, error) {
		return nil, nil
	}, Config[int]{
		HasMore:           &hasMore,
		EmptyFetchRetries: 1,
		EmptyFetchWait:    time.Second,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			return context.Canceled
		},
	})

	_, err := it.Next(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIteratorHasMoreOverride(t *testing.T) {
	t.Run("true_overrides_falsy_cursor", func(t *testing.T) {
		fetches := 0
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			fetches++
			it.SetCursor(nil)
			it.SetHasMore(fetches < 2)
			return []int{fetches}, nil
		}, Config[int]{})

		assert.Equal(t, []int{1, 2}, drain(t, it))
		assert.Equal(t, 2, fetches)
	})

	t.Run("false_overrides_truthy_cursor", func(t *testing.T) {
		fetches := 0
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			fetches++
			it.SetCursor("plenty-left")
			it.SetHasMore(false)
			return []int{1}, nil
		}, Config[int]{})

		assert.Equal(t, []int{1}, drain(t, it))
		assert.Equal(t, 1, fetches)
	})
}

func TestIteratorStopFetch(t *testing.T) {
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		it.SetCursor("more")
		it.StopFetch()
		return []int{1, 2}, nil
	}, Config[int]{})

	assert.Equal(t, []int{1, 2}, drain(t, it), "buffered items survive the latch")
	assert.Equal(t, 1, fetches)
	assert.True(t, it.FetchStopped())
}

func TestIteratorFetchBudgetSpentDuringEmptyRetries(t *testing.T) {
	fetches := 0
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		fetches++
		it.SetCursor("more")
		return nil, nil
	}, Config[int]{MaxFetchCount: 2, EmptyFetchRetries: 5})

	// The second retry round is refused by the spent fetch budget, which
	// terminates iteration normally instead of reporting an empty fetch.
	_, err := it.Next(context.Background())
	assert.ErrorIs(t, err, Done)
	assert.Equal(t, 2, fetches)
	assert.True(t, it.FetchStopped())
}

func TestIteratorAll(t *testing.T) {
	t.Run("collects_across_pages", func(t *testing.T) {
		fetches := 0
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			fetches++
			if fetches == 1 {
				it.SetCursor("p2")
				return []int{1, 2}, nil
			}
			it.SetCursor(nil)
			return []int{3}, nil
		}, Config[int]{})

		items, err := it.All(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, items)

		items, err = it.All(context.Background())
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("returns_partial_items_on_error", func(t *testing.T) {
		hasMore := true
		it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
			if it.FetchCount() == 1 {
				return []int{1}, nil
			}
			return nil, nil
		}, Config[int]{HasMore: &hasMore})

		items, err := it.All(context.Background())
		var efe *EmptyFetchError
		require.ErrorAs(t, err, &efe)
		assert.Equal(t, []int{1}, items)
	})
}

func TestIteratorLogsFetches(t *testing.T) {
	var buf bytes.Buffer
	it := New(func(_ context.Context, it *Iterator[int]) ([]int, error) {
		it.SetCursor(nil)
		return []int{1, 2}, nil
	}, Config[int]{Logger: logger.NewWithWriter(&buf, "debug")})

	drain(t, it)

	out := buf.String()
	assert.Contains(t, out, "Fetched page")
	assert.Contains(t, out, `"fetch_count":1`)
	assert.Contains(t, out, `"items":2`)
}

func TestTruthy(t *testing.T) {
	var nilPtr *int
	n := 5

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"empty_string", "", false},
		{"string", "tok", true},
		{"zero_int", 0, false},
		{"int", 42, true},
		{"zero_float", 0.0, false},
		{"nil_slice", []string(nil), false},
		{"empty_slice", []string{}, false},
		{"slice", []string{"x"}, true},
		{"nil_map", map[string]int(nil), false},
		{"map", map[string]int{"a": 1}, true},
		{"nil_pointer", nilPtr, false},
		{"pointer", &n, true},
		{"false_bool", false, false},
		{"true_bool", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truthy(tt.v))
		})
	}
}
