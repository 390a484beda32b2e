package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerStatsProvider stops calling a failing stats source for a cool-down
// period instead of letting every simulation draw wait on it.
type BreakerStatsProvider struct {
	inner   StatsProvider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStatsProvider wraps inner with a circuit breaker.
func NewBreakerStatsProvider(inner StatsProvider, threshold int, timeout time.Duration, logger *logrus.Logger) *BreakerStatsProvider {
	if threshold <= 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "stats-provider",
		MaxRequests: uint32(threshold),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			// Callers abandoning a draw is not a provider failure.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &BreakerStatsProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// GetPeriodStats implements StatsProvider.
func (p *BreakerStatsProvider) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.inner.GetPeriodStats(ctx, year, week)
	})
	if err != nil {
		return nil, err
	}
	return result.([]PlayerStats), nil
}

// State returns the current breaker state.
func (p *BreakerStatsProvider) State() gobreaker.State {
	return p.breaker.State()
}
