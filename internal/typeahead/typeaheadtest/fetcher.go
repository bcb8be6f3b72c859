package typeaheadtest

import (
	"context"
	"strings"
	"sync"

	. "waiverdesk/internal/models"
)

type Call struct {
	Query   string
	Context context.Context
}

// Fetcher records every lookup. Queries listed in Hold block until Release
// is called for them or their context ends.
type Fetcher struct {
	Results map[string][]SearchCandidate
	Errors  map[string]error

	mu       sync.Mutex
	calls    []Call
	holds    map[string]chan struct{}
	started  chan string
	finished chan string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Results:  make(map[string][]SearchCandidate),
		Errors:   make(map[string]error),
		holds:    make(map[string]chan struct{}),
		started:  make(chan string, 64),
		finished: make(chan string, 64),
	}
}

func (f *Fetcher) Hold(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[query] = make(chan struct{})
}

func (f *Fetcher) Release(query string) {
	f.mu.Lock()
	hold, ok := f.holds[query]
	delete(f.holds, query)
	f.mu.Unlock()

	if ok {
		close(hold)
	}
}

// Started yields each query as its lookup begins.
func (f *Fetcher) Started() <-chan string {
	return f.started
}

// Finished yields each query once its lookup has returned.
func (f *Fetcher) Finished() <-chan string {
	return f.finished
}

func (f *Fetcher) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fetcher) CallCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, call := range f.calls {
		if call.Query == query {
			count++
		}
	}
	return count
}

func (f *Fetcher) FetchSuggestions(ctx context.Context, query string) ([]SearchCandidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Query: query, Context: ctx})
	hold := f.holds[query]
	result, hasResult := f.Results[query]
	err := f.Errors[query]
	f.mu.Unlock()

	defer func() { f.finished <- query }()
	f.started <- query

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if !hasResult {
		return []SearchCandidate{}, nil
	}
	return CloneCandidates(result), nil
}

// Candidates builds display-only candidates, one per name.
func Candidates(names ...string) []SearchCandidate {
	candidates := make([]SearchCandidate, 0, len(names))
	for i, name := range names {
		first, last, _ := strings.Cut(name, " ")
		candidates = append(candidates, SearchCandidate{
			ID:          i + 1,
			DisplayName: name,
			FirstName:   first,
			LastName:    last,
			WaiverYear:  2025,
		})
	}
	return candidates
}
