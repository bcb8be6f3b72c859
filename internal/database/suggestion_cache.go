package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"
)

const SuggestionKeyPrefix = "suggest:"

// SuggestionCache is the process-wide suggestion cache kept in valkey. TTL
// expiry is delegated to the server.
type SuggestionCache struct {
	client CacheClient
	ttl    time.Duration
	strict bool
	log    logger.Logger
}

var _ typeahead.Cache = (*SuggestionCache)(nil)

// NewSuggestionCache returns a cache over client. With strict set, a payload
// that fails to decode is returned as ErrCacheCorrupt instead of being
// dropped and treated as a miss.
func NewSuggestionCache(client CacheClient, ttl time.Duration, strict bool) *SuggestionCache {
	if ttl <= 0 {
		ttl = typeahead.DefaultCacheTTL
	}

	return &SuggestionCache{
		client: client,
		ttl:    ttl,
		strict: strict,
		log:    logger.New("database").File("suggestion_cache"),
	}
}

func (c *SuggestionCache) key(query string) string {
	return SuggestionKeyPrefix + typeahead.NormalizeQuery(query)
}

func (c *SuggestionCache) Get(ctx context.Context, query string) ([]SearchCandidate, bool, error) {
	log := c.log.Function("Get")
	builder := NewCacheBuilder(c.client, c.key(query)).WithContext(ctx)

	var candidates []SearchCandidate
	found, err := builder.Get(&candidates)
	if errors.Is(err, ErrCorruptPayload) {
		if c.strict {
			return nil, false, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
		}

		log.Warn("dropping corrupt suggestion payload", "key", builder.Key(), "error", err)
		if err := builder.Delete(); err != nil {
			log.Warn("failed to delete corrupt suggestion payload", "key", builder.Key(), "error", err)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, log.Err("failed to read suggestions from cache", err, "key", builder.Key())
	}
	if !found {
		return nil, false, nil
	}

	if candidates == nil {
		candidates = []SearchCandidate{}
	}
	return candidates, true, nil
}

func (c *SuggestionCache) Set(ctx context.Context, query string, candidates []SearchCandidate) error {
	if candidates == nil {
		candidates = []SearchCandidate{}
	}

	return NewCacheBuilder(c.client, c.key(query)).
		WithStruct(candidates).
		WithTTL(c.ttl).
		WithContext(ctx).
		Set()
}

func (c *SuggestionCache) Clear(ctx context.Context) error {
	deleted, err := DeleteByPrefix(ctx, c.client, SuggestionKeyPrefix)
	if err != nil {
		return c.log.Function("Clear").Err("failed to clear suggestion cache", err, "deleted", deleted)
	}

	c.log.Function("Clear").Debug("cleared suggestion cache", "deleted", deleted)
	return nil
}
