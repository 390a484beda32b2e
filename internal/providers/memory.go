package providers

import (
	"context"
	"sync"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

type period struct {
	year int
	week int
}

// MemoryStatsProvider serves statistics from memory. It backs tests and
// offline runs seeded from a fixture.
type MemoryStatsProvider struct {
	mu      sync.RWMutex
	periods map[period]map[string]*PlayerStats
	order   map[period][]string
}

// NewMemoryStatsProvider creates an empty provider.
func NewMemoryStatsProvider() *MemoryStatsProvider {
	return &MemoryStatsProvider{
		periods: make(map[period]map[string]*PlayerStats),
		order:   make(map[period][]string),
	}
}

// Add records a game line. Lines for the same player and week are summed.
func (m *MemoryStatsProvider) Add(year, week int, player models.Player, rec models.StatRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := period{year: year, week: week}
	byPlayer, ok := m.periods[key]
	if !ok {
		byPlayer = make(map[string]*PlayerStats)
		m.periods[key] = byPlayer
	}

	existing, ok := byPlayer[player.ID]
	if !ok {
		existing = &PlayerStats{Player: player, Stats: models.StatRecord{}}
		byPlayer[player.ID] = existing
		m.order[key] = append(m.order[key], player.ID)
	}
	existing.Stats.Add(rec)
}

// GetPeriodStats implements StatsProvider.
func (m *MemoryStatsProvider) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := period{year: year, week: week}
	ids := m.order[key]
	out := make([]PlayerStats, 0, len(ids))
	for _, id := range ids {
		ps := m.periods[key][id]
		stats := make(models.StatRecord, len(ps.Stats))
		stats.Add(ps.Stats)
		out = append(out, PlayerStats{Player: ps.Player, Stats: stats})
	}
	return out, nil
}
