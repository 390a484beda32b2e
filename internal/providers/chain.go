package providers

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ChainConfig configures the wrappers NewChain puts around a stats source.
type ChainConfig struct {
	RateLimit        float64
	BreakerThreshold int
	BreakerTimeout   time.Duration
	CacheTTL         time.Duration
}

// NewChain wraps source, innermost first, with a rate limiter, a circuit
// breaker and, when cache is non-nil, a shared cache. Cache hits never reach
// the breaker or the limiter.
func NewChain(source StatsProvider, cache CacheProvider, config ChainConfig, logger *logrus.Logger) StatsProvider {
	var provider StatsProvider = NewLimitedStatsProvider(source, config.RateLimit, 1)
	provider = NewBreakerStatsProvider(provider, config.BreakerThreshold, config.BreakerTimeout, logger)
	if cache != nil {
		provider = NewCachedStatsProvider(provider, cache, config.CacheTTL, logger)
	}
	return provider
}
