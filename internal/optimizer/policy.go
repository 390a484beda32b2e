package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// DefaultRosterSize is the hard cap on roster spots.
const DefaultRosterSize = 16

// PositionLimit bounds how many players of one position a roster holds
// outside the flex slot.
type PositionLimit struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// RosterSlotPolicy holds per-position limits, the positions that may fill the
// single flex slot and the total roster size. The same policy value is shared
// by batch builds and live drafts.
type RosterSlotPolicy struct {
	Limits        map[models.FantasyPosition]PositionLimit `json:"limits"`
	FlexPositions []models.FantasyPosition                 `json:"flex_positions"`
	RosterSize    int                                      `json:"roster_size"`
}

// DefaultPolicy returns the standard 16 man policy with an RB/WR/TE flex.
func DefaultPolicy() *RosterSlotPolicy {
	return &RosterSlotPolicy{
		Limits: map[models.FantasyPosition]PositionLimit{
			models.PositionQB:  {Min: 1, Max: 4},
			models.PositionRB:  {Min: 2, Max: 8},
			models.PositionWR:  {Min: 2, Max: 8},
			models.PositionTE:  {Min: 1, Max: 3},
			models.PositionK:   {Min: 1, Max: 3},
			models.PositionDST: {Min: 1, Max: 3},
		},
		FlexPositions: []models.FantasyPosition{models.PositionRB, models.PositionWR, models.PositionTE},
		RosterSize:    DefaultRosterSize,
	}
}

// NewPolicy builds a policy from a limits string such as
// "QB:1-4,RB:2-8,WR:2-8,TE:1-3,K:1-3,D/ST:1-3".
func NewPolicy(limits string, rosterSize int) (*RosterSlotPolicy, error) {
	parsed, err := ParseLimits(limits)
	if err != nil {
		return nil, err
	}
	policy := DefaultPolicy()
	policy.Limits = parsed
	if rosterSize > 0 {
		policy.RosterSize = rosterSize
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// ParseLimits parses comma separated POSITION:MIN-MAX pairs. Empty parts are
// ignored; positions are checked by Validate.
func ParseLimits(s string) (map[models.FantasyPosition]PositionLimit, error) {
	limits := make(map[models.FantasyPosition]PositionLimit)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pos, bounds, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("limit %q must be POSITION:MIN-MAX", part)
		}
		minStr, maxStr, ok := strings.Cut(bounds, "-")
		if !ok {
			return nil, fmt.Errorf("limit %q must be POSITION:MIN-MAX", part)
		}
		min, err := strconv.Atoi(strings.TrimSpace(minStr))
		if err != nil {
			return nil, fmt.Errorf("invalid minimum in %q: %w", part, err)
		}
		max, err := strconv.Atoi(strings.TrimSpace(maxStr))
		if err != nil {
			return nil, fmt.Errorf("invalid maximum in %q: %w", part, err)
		}
		limits[models.FantasyPosition(strings.TrimSpace(pos))] = PositionLimit{Min: min, Max: max}
	}
	return limits, nil
}

// Validate rejects policies no roster could satisfy.
func (p *RosterSlotPolicy) Validate() error {
	if p.RosterSize <= 0 {
		return fmt.Errorf("roster size must be positive, got %d", p.RosterSize)
	}

	minTotal := 0
	for _, pos := range models.FantasyPositions {
		limit, ok := p.Limits[pos]
		if !ok {
			return fmt.Errorf("missing limit for %s", pos)
		}
		if limit.Min < 0 || limit.Max < limit.Min {
			return fmt.Errorf("invalid limit for %s: %d-%d", pos, limit.Min, limit.Max)
		}
		minTotal += limit.Min
	}
	for pos := range p.Limits {
		if _, ok := models.ToFantasyPosition(string(pos)); !ok && pos != models.PositionDST {
			return fmt.Errorf("unknown position %q in limits", pos)
		}
	}
	if minTotal > p.RosterSize {
		return fmt.Errorf("position minimums (%d) exceed roster size (%d)", minTotal, p.RosterSize)
	}
	return nil
}

func (p *RosterSlotPolicy) isFlex(pos models.FantasyPosition) bool {
	for _, f := range p.FlexPositions {
		if f == pos {
			return true
		}
	}
	return false
}
