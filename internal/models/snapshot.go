package models

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotRow is one row of a persisted projection table. A nil Points means
// the player was never observed.
type SnapshotRow struct {
	ID              uint           `gorm:"primaryKey" json:"-"`
	Label           string         `gorm:"not null;uniqueIndex:idx_snapshot_label_player" json:"label"`
	PlayerID        string         `gorm:"not null;uniqueIndex:idx_snapshot_label_player" json:"player_id"`
	FullName        string         `json:"full_name"`
	Team            string         `json:"team"`
	Position        string         `json:"position"`
	Points          *float64       `json:"points"`
	SimulationCount int            `json:"simulation_count"`
	PlayerObject    datatypes.JSON `json:"player_object"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SnapshotRow) TableName() string {
	return "projection_snapshots"
}
