package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// PeriodStatsCacheKey is the cache key of one week of statistics.
func PeriodStatsCacheKey(year, week int) string {
	return fmt.Sprintf("stats:period:%d:%d", year, week)
}

// CachedStatsProvider puts a shared cache in front of another provider.
// Historical weeks never change, so entries only expire to bound memory.
type CachedStatsProvider struct {
	inner      StatsProvider
	cache      CacheProvider
	expiration time.Duration
	logger     *logrus.Entry
}

// NewCachedStatsProvider wraps inner with cache.
func NewCachedStatsProvider(inner StatsProvider, cache CacheProvider, expiration time.Duration, logger *logrus.Logger) *CachedStatsProvider {
	return &CachedStatsProvider{
		inner:      inner,
		cache:      cache,
		expiration: expiration,
		logger:     logger.WithField("component", "cached_stats_provider"),
	}
}

// GetPeriodStats implements StatsProvider.
func (p *CachedStatsProvider) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	key := PeriodStatsCacheKey(year, week)

	var cached []PlayerStats
	if err := p.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	stats, err := p.inner.GetPeriodStats(ctx, year, week)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, stats, p.expiration); err != nil {
		p.logger.WithError(err).WithField("cache_key", key).Warn("Failed to cache period stats")
	}
	return stats, nil
}
