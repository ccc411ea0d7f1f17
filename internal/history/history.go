// Package history provides supplier contract history aggregation.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opengov-pk/shafaf/internal/domain"
)

const defaultTTL = 5 * time.Minute

// Service resolves stored supplier aggregates for the feature extractor.
// Lookups are read-through cached; a cache failure degrades to a direct
// repository read.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a new history service. The cache is optional.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   defaultTTL,
	}
}

// SupplierProfile returns contract aggregates for a supplier.
// A supplier with no stored contracts yields zero counts, not an error.
func (s *Service) SupplierProfile(ctx context.Context, supplier string) (*domain.SupplierStats, error) {
	if supplier == "" {
		return nil, fmt.Errorf("supplier is required")
	}

	cacheKey := domain.CacheKeySupplier + supplier

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var stats domain.SupplierStats
			if err := json.Unmarshal(data, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.repo.SupplierHistory(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier history: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.ttl); err != nil {
				slog.Warn("failed to cache supplier history",
					"supplier", supplier,
					"error", err,
				)
			}
		}
	}

	return stats, nil
}
