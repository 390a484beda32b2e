package optimizer

import (
	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// SlotFlex marks the entry holding the shared flex slot.
const SlotFlex = "FLEX"

type RosterEntry struct {
	Player *models.ProjectedPlayer `json:"player"`
	Slot   string                  `json:"slot"`
}

// Roster is an ordered set of players. Insertion order decides which player
// takes the flex slot.
type Roster struct {
	policy   *RosterSlotPolicy
	entries  []RosterEntry
	ids      map[string]struct{}
	flexUsed bool
}

func NewRoster(policy *RosterSlotPolicy) *Roster {
	return &Roster{
		policy: policy,
		ids:    make(map[string]struct{}),
	}
}

// Add commits player if the policy admits them and returns the rejection
// otherwise. Players already on the roster are rejected as over capacity.
func (r *Roster) Add(player *models.ProjectedPlayer) *Rejection {
	if _, ok := r.ids[player.Player.ID]; ok {
		return &Rejection{Reason: ReasonOverCapacity, Position: player.Player.Position, Over: player.Position}
	}
	if rej := r.policy.Check(r.Positions(), player.Player.Position); rej != nil {
		return rej
	}
	r.append(player)
	return nil
}

func (r *Roster) append(player *models.ProjectedPlayer) {
	slot := player.Position.String()
	if !r.flexUsed && r.policy.isFlex(player.Position) {
		r.flexUsed = true
		slot = SlotFlex
	}
	r.entries = append(r.entries, RosterEntry{Player: player, Slot: slot})
	r.ids[player.Player.ID] = struct{}{}
}

// Positions returns the fantasy positions in insertion order.
func (r *Roster) Positions() []models.FantasyPosition {
	out := make([]models.FantasyPosition, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Player.Position
	}
	return out
}

func (r *Roster) Entries() []RosterEntry {
	out := make([]RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Roster) Players() []*models.ProjectedPlayer {
	out := make([]*models.ProjectedPlayer, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Player
	}
	return out
}

func (r *Roster) Len() int {
	return len(r.entries)
}

func (r *Roster) IsFull() bool {
	return len(r.entries) >= r.policy.RosterSize
}

func (r *Roster) Contains(playerID string) bool {
	_, ok := r.ids[playerID]
	return ok
}

func (r *Roster) Policy() *RosterSlotPolicy {
	return r.policy
}

// TotalPoints sums the observed projections on the roster.
func (r *Roster) TotalPoints() float64 {
	total := 0.0
	for _, e := range r.entries {
		if e.Player.IsObserved() {
			total += e.Player.ProjectedPoints
		}
	}
	return total
}

// Deficit returns the unmet minimum per position. An empty map means every
// minimum is satisfied.
func (r *Roster) Deficit() map[models.FantasyPosition]int {
	counts := make(map[models.FantasyPosition]int)
	flexUsed := false
	for _, e := range r.entries {
		if !flexUsed && r.policy.isFlex(e.Player.Position) {
			flexUsed = true
			continue
		}
		counts[e.Player.Position]++
	}

	deficit := make(map[models.FantasyPosition]int)
	for pos, limit := range r.policy.Limits {
		if missing := limit.Min - counts[pos]; missing > 0 {
			deficit[pos] = missing
		}
	}
	return deficit
}

// Clone returns a roster with the same entries that can be extended
// independently. Players are shared.
func (r *Roster) Clone() *Roster {
	c := &Roster{
		policy:   r.policy,
		entries:  make([]RosterEntry, len(r.entries)),
		ids:      make(map[string]struct{}, len(r.ids)),
		flexUsed: r.flexUsed,
	}
	copy(c.entries, r.entries)
	for id := range r.ids {
		c.ids[id] = struct{}{}
	}
	return c
}
