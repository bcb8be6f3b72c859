package searchController

import (
	"context"
	"errors"
	"time"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/repositories"
	"waiverdesk/internal/typeahead"

	"golang.org/x/sync/singleflight"
)

const lookupTimeout = 10 * time.Second

type SearchController struct {
	waiverRepo repositories.WaiverRepository
	cache      typeahead.Cache
	lookups    singleflight.Group
	log        logger.Logger
}

func New(waiverRepo repositories.WaiverRepository, cache typeahead.Cache) *SearchController {
	return &SearchController{
		waiverRepo: waiverRepo,
		cache:      cache,
		log:        logger.New("SearchController"),
	}
}

// Suggest serves typeahead suggestions: cache first, then one coalesced
// ranking query per key.
func (c *SearchController) Suggest(ctx context.Context, rawQuery string) ([]SearchCandidate, error) {
	log := c.log.Function("Suggest")

	query, err := typeahead.ValidateQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		candidates, found, err := c.cache.Get(ctx, query)
		switch {
		case errors.Is(err, ErrCacheCorrupt):
			return nil, log.Err("suggestion cache is corrupt", err, "query", query)
		case err != nil:
			log.Warn("suggestion cache unavailable, querying store", "query", query, "error", err)
		case found:
			return candidates, nil
		}
	}

	candidates, err := c.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, query, candidates); err != nil {
			log.Warn("failed to cache suggestions", "query", query, "error", err)
		}
	}

	return candidates, nil
}

// Lookup runs the ranking query for an already validated query. Concurrent
// lookups of the same query share one store round trip; each caller gets its
// own copy of the result.
func (c *SearchController) Lookup(ctx context.Context, query string) ([]SearchCandidate, error) {
	result := c.lookups.DoChan(query, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return c.waiverRepo.Search(lookupCtx, query)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return CloneCandidates(res.Val.([]SearchCandidate)), nil
	}
}

// Search is the uncached full search run on commit.
func (c *SearchController) Search(ctx context.Context, rawQuery string) ([]SearchCandidate, error) {
	query, err := typeahead.ValidateQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	return c.waiverRepo.Search(ctx, query)
}

func (c *SearchController) ListRecent(ctx context.Context) ([]SearchCandidate, error) {
	return c.waiverRepo.ListRecent(ctx)
}
