package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// StatRecord holds one player's statistics for one (year, week), keyed by
// stat name (e.g. "passing_yds").
type StatRecord map[string]float64

// Add merges other into r, summing shared keys.
func (r StatRecord) Add(other StatRecord) {
	for k, v := range other {
		r[k] += v
	}
}

// StatLine is a persisted game line. A player may have more than one line in
// a week; lines are summed when the period is read.
type StatLine struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	PlayerID  string            `gorm:"not null;index:idx_stat_period_player" json:"player_id"`
	Year      int               `gorm:"not null;index:idx_stat_period_player" json:"year"`
	Week      int               `gorm:"not null;index:idx_stat_period_player" json:"week"`
	GameID    string            `json:"game_id"`
	Stats     datatypes.JSONMap `json:"stats"`
	CreatedAt time.Time         `json:"created_at"`

	Player Player `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
}

// TableName specifies the table name for GORM
func (StatLine) TableName() string {
	return "stat_lines"
}

// Record converts the stored JSON map to a StatRecord. Non-numeric values are
// reported as an error rather than silently dropped.
func (l StatLine) Record() (StatRecord, error) {
	rec := make(StatRecord, len(l.Stats))
	for k, v := range l.Stats {
		switch n := v.(type) {
		case float64:
			rec[k] = n
		case int:
			rec[k] = float64(n)
		case int64:
			rec[k] = float64(n)
		default:
			return nil, fmt.Errorf("stat %q for player %s has non-numeric value %v", k, l.PlayerID, v)
		}
	}
	return rec, nil
}

// NewStatLine builds a persistable line from a record.
func NewStatLine(playerID string, year, week int, rec StatRecord) StatLine {
	stats := make(datatypes.JSONMap, len(rec))
	for k, v := range rec {
		stats[k] = v
	}
	return StatLine{PlayerID: playerID, Year: year, Week: week, Stats: stats}
}
