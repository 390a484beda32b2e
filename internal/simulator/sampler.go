package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/providers"
	"github.com/stitts-dev/ff-draft-sim/internal/scoring"
)

// DefaultMaxAttempts bounds the redraws for a player missing from a period.
const DefaultMaxAttempts = 8

// YearWeight is the relative probability of sampling a season.
type YearWeight struct {
	Year   int     `json:"year"`
	Weight float64 `json:"weight"`
}

// SamplerConfig represents configuration for drawing historical periods
type SamplerConfig struct {
	Years       []YearWeight
	FirstWeek   int
	LastWeek    int
	MaxAttempts int
}

// DefaultSamplerConfig weights recent seasons more heavily.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Years: []YearWeight{
			{Year: 2014, Weight: 0.10},
			{Year: 2015, Weight: 0.15},
			{Year: 2016, Weight: 0.25},
			{Year: 2017, Weight: 0.50},
		},
		FirstWeek:   1,
		LastWeek:    17,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// ParseYearWeights parses "2014:0.1,2015:0.15".
func ParseYearWeights(s string) ([]YearWeight, error) {
	var out []YearWeight
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		yearStr, weightStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("year weight %q must be YEAR:WEIGHT", part)
		}
		year, err := strconv.Atoi(strings.TrimSpace(yearStr))
		if err != nil {
			return nil, fmt.Errorf("invalid year in %q: %w", part, err)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in %q: %w", part, err)
		}
		out = append(out, YearWeight{Year: year, Weight: weight})
	}
	return out, nil
}

// Validate checks the config can produce draws.
func (c SamplerConfig) Validate() error {
	if len(c.Years) == 0 {
		return fmt.Errorf("at least one sample year is required")
	}
	total := 0.0
	for _, y := range c.Years {
		if y.Weight < 0 {
			return fmt.Errorf("year %d has negative weight %v", y.Year, y.Weight)
		}
		total += y.Weight
	}
	if total <= 0 {
		return fmt.Errorf("year weights must sum to a positive value")
	}
	if c.FirstWeek < 1 || c.LastWeek < c.FirstWeek {
		return fmt.Errorf("invalid week range %d-%d", c.FirstWeek, c.LastWeek)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

type periodKey struct {
	year int
	week int
}

// Sampler draws one historical week for a player and scores it.
type Sampler struct {
	provider   providers.StatsProvider
	table      scoring.ConversionTable
	config     SamplerConfig
	cumulative []float64

	mu      sync.RWMutex
	periods map[periodKey]map[string]models.StatRecord
	group   singleflight.Group

	logger *logrus.Entry
}

// NewSampler creates a sampler over provider scoring with table.
func NewSampler(provider providers.StatsProvider, table scoring.ConversionTable, config SamplerConfig, logger *logrus.Logger) (*Sampler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sampler config: %w", err)
	}

	weights := make([]float64, len(config.Years))
	for i, y := range config.Years {
		weights[i] = y.Weight
	}
	cumulative := make([]float64, len(weights))
	floats.CumSum(cumulative, weights)

	return &Sampler{
		provider:   provider,
		table:      table,
		config:     config,
		cumulative: cumulative,
		periods:    make(map[periodKey]map[string]models.StatRecord),
		logger:     logger.WithField("component", "sampler"),
	}, nil
}

// Sample returns the fantasy points of one randomly drawn week in which the
// player recorded activity, or models.NotObserved after MaxAttempts misses.
// Errors are only returned for cancellation and provider failures.
func (s *Sampler) Sample(ctx context.Context, rng *rand.Rand, player models.Player) (float64, error) {
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		year, week := s.draw(rng)
		byPlayer, err := s.period(ctx, year, week)
		if err != nil {
			return 0, err
		}

		if rec, ok := byPlayer[player.ID]; ok {
			return s.table.Points(rec), nil
		}
	}

	return models.NotObserved, nil
}

// draw picks a (year, week) under the configured distribution.
func (s *Sampler) draw(rng *rand.Rand) (int, int) {
	total := s.cumulative[len(s.cumulative)-1]
	u := rng.Float64() * total
	i := sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > u })
	if i == len(s.cumulative) {
		i = len(s.cumulative) - 1
	}

	week := s.config.FirstWeek + rng.Intn(s.config.LastWeek-s.config.FirstWeek+1)
	return s.config.Years[i].Year, week
}

// period returns the indexed stats of one week, fetching each week once no
// matter how many workers ask for it concurrently.
func (s *Sampler) period(ctx context.Context, year, week int) (map[string]models.StatRecord, error) {
	key := periodKey{year: year, week: week}

	s.mu.RLock()
	byPlayer, ok := s.periods[key]
	s.mu.RUnlock()
	if ok {
		return byPlayer, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("%d:%d", year, week), func() (interface{}, error) {
		s.mu.RLock()
		cached, ok := s.periods[key]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		stats, err := s.provider.GetPeriodStats(ctx, year, week)
		if err != nil {
			return nil, err
		}

		index := make(map[string]models.StatRecord, len(stats))
		for _, ps := range stats {
			if existing, ok := index[ps.Player.ID]; ok {
				existing.Add(ps.Stats)
				continue
			}
			rec := make(models.StatRecord, len(ps.Stats))
			rec.Add(ps.Stats)
			index[ps.Player.ID] = rec
		}

		s.mu.Lock()
		s.periods[key] = index
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{
			"year":    year,
			"week":    week,
			"players": len(index),
		}).Debug("Indexed period stats")

		return index, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats for %d week %d: %w", year, week, err)
	}
	return v.(map[string]models.StatRecord), nil
}

// CachedPeriods reports how many weeks have been indexed.
func (s *Sampler) CachedPeriods() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.periods)
}
