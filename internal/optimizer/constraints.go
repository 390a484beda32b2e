package optimizer

import (
	"fmt"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// RejectionReason names the rule a candidate failed. Ineligible positions map
// to no fantasy position; over capacity means the position is at its maximum
// with the flex taken; infeasible means too few open slots would remain for
// the unmet minimums.
type RejectionReason string

const (
	ReasonIneligible   RejectionReason = "ineligible"
	ReasonRosterFull   RejectionReason = "roster_full"
	ReasonOverCapacity RejectionReason = "over_capacity"
	ReasonInfeasible   RejectionReason = "infeasible"
)

// Rejection explains why a candidate cannot join a roster. It is routine
// control flow, not a failure.
type Rejection struct {
	Reason   RejectionReason        `json:"reason"`
	Position string                 `json:"position"`
	Needed   int                    `json:"needed,omitempty"`
	Open     int                    `json:"open,omitempty"`
	Over     models.FantasyPosition `json:"over,omitempty"`
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonIneligible:
		return fmt.Sprintf("position %q is not a fantasy position", r.Position)
	case ReasonRosterFull:
		return "roster is full"
	case ReasonOverCapacity:
		return fmt.Sprintf("no %s slots left for %s", r.Over, r.Position)
	case ReasonInfeasible:
		return fmt.Sprintf("adding %s leaves %d open slots for %d required players", r.Position, r.Open-1, r.Needed)
	}
	return string(r.Reason)
}

// Check decides whether a player at rawPosition can join a roster whose
// committed positions are given in insertion order. The first flex-eligible
// player in the roster occupies the flex slot and does not count against its
// position. A nil result means the candidate is admissible.
func (p *RosterSlotPolicy) Check(roster []models.FantasyPosition, rawPosition string) *Rejection {
	candidate, ok := models.ToFantasyPosition(rawPosition)
	if !ok {
		return &Rejection{Reason: ReasonIneligible, Position: rawPosition}
	}
	if len(roster) >= p.RosterSize {
		return &Rejection{Reason: ReasonRosterFull, Position: rawPosition}
	}

	remaining := make(map[models.FantasyPosition]PositionLimit, len(p.Limits))
	for pos, limit := range p.Limits {
		remaining[pos] = limit
	}
	take := func(pos models.FantasyPosition) {
		r := remaining[pos]
		r.Min--
		r.Max--
		remaining[pos] = r
	}

	flexUsed := false
	for _, pos := range roster {
		if !flexUsed && p.isFlex(pos) {
			flexUsed = true
			continue
		}
		take(pos)
	}
	take(candidate)

	for _, pos := range models.FantasyPositions {
		if remaining[pos].Max < 0 {
			return &Rejection{Reason: ReasonOverCapacity, Position: rawPosition, Over: pos}
		}
	}

	needed := 0
	for _, r := range remaining {
		if r.Min > 0 {
			needed += r.Min
		}
	}
	open := p.RosterSize - len(roster)
	if open <= needed {
		return &Rejection{Reason: ReasonInfeasible, Position: rawPosition, Needed: needed, Open: open}
	}

	return nil
}

// CanAdd reports whether Check admits the candidate.
func (p *RosterSlotPolicy) CanAdd(roster []models.FantasyPosition, rawPosition string) bool {
	return p.Check(roster, rawPosition) == nil
}
