package models

import (
	"time"
)

// StatusActive marks a player on an active roster. Only active players make up
// the draftable universe.
const StatusActive = "ACT"

// Player is the identity of an NFL player as loaded from the external data
// source. It is never mutated after load.
type Player struct {
	ID        string    `gorm:"primaryKey" json:"player_id"`
	FullName  string    `gorm:"not null;index" json:"full_name"`
	Team      string    `json:"team"`
	Position  string    `json:"position"`
	Number    int       `json:"number"`
	Status    string    `gorm:"index" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}

// FantasyPosition maps the raw position code to its fantasy position.
func (p Player) FantasyPosition() (FantasyPosition, bool) {
	return ToFantasyPosition(p.Position)
}

// IsActive reports whether the player belongs to the draftable universe.
func (p Player) IsActive() bool {
	return p.Status == StatusActive
}
