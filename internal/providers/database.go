package providers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// DBStatsProvider reads game lines from the stat_lines table.
type DBStatsProvider struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewDBStatsProvider creates a database backed stats provider
func NewDBStatsProvider(db *gorm.DB, logger *logrus.Logger) *DBStatsProvider {
	return &DBStatsProvider{
		db:     db,
		logger: logger.WithField("component", "db_stats_provider"),
	}
}

// GetPeriodStats returns every player with at least one line in the given
// week, with multiple lines summed.
func (p *DBStatsProvider) GetPeriodStats(ctx context.Context, year, week int) ([]PlayerStats, error) {
	var lines []models.StatLine
	err := p.db.WithContext(ctx).
		Preload("Player").
		Where("year = ? AND week = ?", year, week).
		Order("id").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load stat lines for %d week %d: %w", year, week, err)
	}

	index := make(map[string]int, len(lines))
	out := make([]PlayerStats, 0, len(lines))
	for _, line := range lines {
		rec, err := line.Record()
		if err != nil {
			p.logger.WithError(err).WithField("stat_line_id", line.ID).Warn("Skipping malformed stat line")
			continue
		}

		if i, ok := index[line.PlayerID]; ok {
			out[i].Stats.Add(rec)
			continue
		}
		player := line.Player
		if player.ID == "" {
			// Lines for players missing from the players table still count.
			player.ID = line.PlayerID
		}
		index[line.PlayerID] = len(out)
		out = append(out, PlayerStats{Player: player, Stats: rec})
	}

	p.logger.WithFields(logrus.Fields{
		"year":    year,
		"week":    week,
		"lines":   len(lines),
		"players": len(out),
	}).Debug("Loaded period stats")

	return out, nil
}

// SaveLines appends game lines.
func (p *DBStatsProvider) SaveLines(ctx context.Context, lines []models.StatLine) error {
	if len(lines) == 0 {
		return nil
	}
	if err := p.db.WithContext(ctx).Omit("Player").Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to save stat lines: %w", err)
	}
	return nil
}
