package optimizer

import (
	"sort"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// Build greedily extends a copy of roster with the highest projected players
// in pool until the roster is full or the pool runs out. Ties keep the pool's
// order. Players already rostered are skipped. Never-observed players sort
// after every finite projection, so they only fill slots no finite player can.
//
// Greedy by points is an approximation: it does not search for the
// combinatorially best roster. A short result is returned as is; use
// Deficit to see which minimums are unmet.
func Build(roster *Roster, pool []*models.ProjectedPlayer) *Roster {
	result := roster.Clone()

	ranked := make([]*models.ProjectedPlayer, len(pool))
	copy(ranked, pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ProjectedPoints > ranked[j].ProjectedPoints
	})

	for _, candidate := range ranked {
		if result.IsFull() {
			break
		}
		if result.Contains(candidate.Player.ID) {
			continue
		}
		result.Add(candidate)
	}

	return result
}

// BuildWithLocked commits locked players first, in order, then fills the rest
// from pool. Locked players the policy rejects are returned with their
// rejections and left off the roster.
func BuildWithLocked(policy *RosterSlotPolicy, locked []*models.ProjectedPlayer, pool []*models.ProjectedPlayer) (*Roster, map[string]*Rejection) {
	roster := NewRoster(policy)
	rejected := make(map[string]*Rejection)
	for _, p := range locked {
		if rej := roster.Add(p); rej != nil {
			rejected[p.Player.ID] = rej
		}
	}
	return Build(roster, pool), rejected
}

// PoolPointers returns pointers into pool so rosters share its players.
func PoolPointers(pool []models.ProjectedPlayer) []*models.ProjectedPlayer {
	out := make([]*models.ProjectedPlayer, len(pool))
	for i := range pool {
		out[i] = &pool[i]
	}
	return out
}
