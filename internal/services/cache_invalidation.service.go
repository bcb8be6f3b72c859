package services

import (
	"context"

	"waiverdesk/internal/logger"
	"waiverdesk/internal/typeahead"
)

// CacheInvalidationService drops cached suggestions when the searchable data
// changes, so a new waiver is findable straight away.
type CacheInvalidationService struct {
	suggestions typeahead.Cache
	log         logger.Logger
}

func NewCacheInvalidationService(suggestions typeahead.Cache) *CacheInvalidationService {
	return &CacheInvalidationService{
		suggestions: suggestions,
		log:         logger.New("CacheInvalidationService"),
	}
}

func (s *CacheInvalidationService) InvalidateSuggestions(ctx context.Context) {
	log := s.log.Function("InvalidateSuggestions")

	if s.suggestions == nil {
		return
	}

	if err := s.suggestions.Clear(ctx); err != nil {
		log.Er("failed to clear suggestion cache", err)
		return
	}

	log.Debug("suggestion cache cleared")
}
