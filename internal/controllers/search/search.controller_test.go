package searchController

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/typeahead/typeaheadtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWaiverRepo struct {
	results map[string][]SearchCandidate
	err     error
	gate    chan struct{}
	calls   atomic.Int32
}

func (r *stubWaiverRepo) Create(context.Context, *Waiver) error { return nil }

func (r *stubWaiverRepo) CreateBatch(context.Context, []*Waiver, int) error { return nil }

func (r *stubWaiverRepo) GetByID(context.Context, int) (*Waiver, error) {
	return nil, ErrNotFound
}

func (r *stubWaiverRepo) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return CloneCandidates(r.results[query]), nil
}

func (r *stubWaiverRepo) ListRecent(context.Context) ([]SearchCandidate, error) {
	return typeaheadtest.Candidates("Recent One", "Recent Two"), nil
}

type corruptCache struct{ sets int }

func (c *corruptCache) Get(context.Context, string) ([]SearchCandidate, bool, error) {
	return nil, false, ErrCacheCorrupt
}

func (c *corruptCache) Set(context.Context, string, []SearchCandidate) error {
	c.sets++
	return nil
}

func (c *corruptCache) Clear(context.Context) error { return nil }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]SearchCandidate, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []SearchCandidate) error {
	return errors.New("connection refused")
}

func (brokenCache) Clear(context.Context) error { return nil }

func TestSearchController_SuggestValidation(t *testing.T) {
	controller := New(&stubWaiverRepo{}, nil)

	tests := []struct {
		name  string
		query string
	}{
		{name: "empty", query: ""},
		{name: "whitespace", query: "   "},
		{name: "one rune", query: " j "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := controller.Suggest(context.Background(), tt.query)
			assert.ErrorIs(t, err, ErrQueryTooShort)
		})
	}
}

func TestSearchController_SuggestUsesCache(t *testing.T) {
	repo := &stubWaiverRepo{results: map[string][]SearchCandidate{
		"jo": typeaheadtest.Candidates("John Smith", "Joan Jett"),
	}}
	clock := typeaheadtest.NewFakeClock(time.Time{})
	cache := typeahead.NewMemoryCache(time.Minute, clock)
	controller := New(repo, cache)
	ctx := context.Background()

	first, err := controller.Suggest(ctx, "  jo ")
	require.NoError(t, err)
	require.Len(t, first, 2)

	first[0].DisplayName = "mutated"

	second, err := controller.Suggest(ctx, "jo")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", second[0].DisplayName)
	assert.EqualValues(t, 1, repo.calls.Load(), "second lookup is served from cache")

	clock.Advance(time.Minute + time.Millisecond)

	_, err = controller.Suggest(ctx, "jo")
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.calls.Load(), "expired entries go back to the store")
}

func TestSearchController_SuggestCacheFailures(t *testing.T) {
	repo := &stubWaiverRepo{results: map[string][]SearchCandidate{
		"jo": typeaheadtest.Candidates("John Smith"),
	}}

	t.Run("unavailable cache degrades to the store", func(t *testing.T) {
		got, err := New(repo, brokenCache{}).Suggest(context.Background(), "jo")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("corrupt payload is reported", func(t *testing.T) {
		cache := &corruptCache{}
		_, err := New(repo, cache).Suggest(context.Background(), "jo")
		assert.ErrorIs(t, err, ErrCacheCorrupt)
		assert.Zero(t, cache.sets)
	})
}

func TestSearchController_SuggestStoreFailureIsNotCached(t *testing.T) {
	repo := &stubWaiverRepo{err: errors.New("database is locked")}
	cache := typeahead.NewMemoryCache(time.Minute, nil)
	controller := New(repo, cache)

	_, err := controller.Suggest(context.Background(), "jo")
	require.Error(t, err)
	assert.Zero(t, cache.Len())
}

func TestSearchController_LookupCoalesces(t *testing.T) {
	repo := &stubWaiverRepo{
		results: map[string][]SearchCandidate{"sm": typeaheadtest.Candidates("John Smith")},
		gate:    make(chan struct{}),
	}
	controller := New(repo, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]SearchCandidate, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = controller.Lookup(context.Background(), "sm")
		}()
	}

	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()

	assert.EqualValues(t, 1, repo.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
	}

	results[0][0].DisplayName = "mutated"
	assert.Equal(t, "John Smith", results[1][0].DisplayName, "callers do not share slices")
}

func TestSearchController_LookupHonorsCallerCancellation(t *testing.T) {
	repo := &stubWaiverRepo{gate: make(chan struct{})}
	defer close(repo.gate)
	controller := New(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := controller.Lookup(ctx, "sm")
		done <- err
	}()

	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("lookup did not return after cancellation")
	}
}

func TestSearchController_SearchAndRecent(t *testing.T) {
	// Keyed on the trimmed query as typed; case folding belongs to the store.
	repo := &stubWaiverRepo{results: map[string][]SearchCandidate{
		"Smith": typeaheadtest.Candidates("John Smith", "Jane Smith"),
	}}
	cache := typeahead.NewMemoryCache(time.Minute, nil)
	controller := New(repo, cache)
	ctx := context.Background()

	got, err := controller.Search(ctx, " Smith ")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = controller.Search(ctx, "smith")
	require.NoError(t, err)
	assert.Empty(t, got, "query reaches the store without lowercasing")
	assert.Zero(t, cache.Len(), "full search is never cached")

	_, err = controller.Search(ctx, "s")
	assert.ErrorIs(t, err, ErrQueryTooShort)

	recent, err := controller.ListRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
