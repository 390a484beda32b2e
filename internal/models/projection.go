package models

import (
	"encoding/json"
	"math"
)

// NotObserved is the projection of a player with no recorded activity in any
// sampled period. It sorts below every finite projection.
var NotObserved = math.Inf(-1)

// ProjectedPlayer is a player together with their Monte Carlo projection.
// Values are shared by pointer between the pool and rosters and must not be
// modified once produced.
type ProjectedPlayer struct {
	Player          Player          `json:"player"`
	Position        FantasyPosition `json:"position"`
	ProjectedPoints float64         `json:"projected_points"`
	StdDev          float64         `json:"std_dev"`
	SimulationCount int             `json:"simulation_count"`
}

// IsObserved reports whether the projection is a finite number.
func (p ProjectedPlayer) IsObserved() bool {
	return !math.IsInf(p.ProjectedPoints, 0) && !math.IsNaN(p.ProjectedPoints)
}

// NewProjectedPlayer maps the raw position and returns false when the player
// cannot be rostered at all.
func NewProjectedPlayer(player Player, points, stdDev float64, count int) (ProjectedPlayer, bool) {
	pos, ok := ToFantasyPosition(player.Position)
	return ProjectedPlayer{
		Player:          player,
		Position:        pos,
		ProjectedPoints: points,
		StdDev:          stdDev,
		SimulationCount: count,
	}, ok
}

type projectedPlayerJSON struct {
	Player          Player          `json:"player"`
	Position        FantasyPosition `json:"position"`
	ProjectedPoints *float64        `json:"projected_points"`
	StdDev          float64         `json:"std_dev"`
	SimulationCount int             `json:"simulation_count"`
}

// MarshalJSON writes a never observed projection as null, since JSON has no
// infinities.
func (p ProjectedPlayer) MarshalJSON() ([]byte, error) {
	out := projectedPlayerJSON{
		Player:          p.Player,
		Position:        p.Position,
		StdDev:          p.StdDev,
		SimulationCount: p.SimulationCount,
	}
	if p.IsObserved() {
		points := p.ProjectedPoints
		out.ProjectedPoints = &points
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null points back as NotObserved.
func (p *ProjectedPlayer) UnmarshalJSON(data []byte) error {
	var in projectedPlayerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = ProjectedPlayer{
		Player:          in.Player,
		Position:        in.Position,
		ProjectedPoints: NotObserved,
		StdDev:          in.StdDev,
		SimulationCount: in.SimulationCount,
	}
	if in.ProjectedPoints != nil {
		p.ProjectedPoints = *in.ProjectedPoints
	}
	return nil
}
