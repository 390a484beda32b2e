package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// LimitedStatsProvider caps the request rate against the stats source.
type LimitedStatsProvider struct {
	inner   StatsProvider
	limiter *rate.Limiter
}

// NewLimitedStatsProvider allows perSecond requests with the given burst. A
// non-positive perSecond disables limiting.
func NewLimitedStatsProvider(inner StatsProvider, perSecond float64, burst int) *LimitedStatsProvider {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimitedStatsProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// GetPeriodStats implements StatsProvider.
func (p *LimitedStatsProvider) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			// The limiter refuses to wait past the deadline.
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("stats rate limit wait: %w", err)
	}
	return p.inner.GetPeriodStats(ctx, year, week)
}
