package providers

import (
	"context"
	"time"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// PlayerStats is one player's aggregated statistics for a period.
type PlayerStats struct {
	Player models.Player     `json:"player"`
	Stats  models.StatRecord `json:"stats"`
}

// StatsProvider is the historical statistics source. A week without data
// yields an empty slice and a nil error.
type StatsProvider interface {
	GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error)
}

// StatsProviderFunc adapts a function to StatsProvider.
type StatsProviderFunc func(ctx context.Context, year, week int) ([]PlayerStats, error)

// GetPeriodStats implements StatsProvider.
func (f StatsProviderFunc) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	return f(ctx, year, week)
}

// CacheProvider interface for cache operations
type CacheProvider interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}
