package models

// FantasyPosition is the roster position a player occupies in the fantasy game.
type FantasyPosition string

const (
	PositionQB  FantasyPosition = "QB"
	PositionRB  FantasyPosition = "RB"
	PositionWR  FantasyPosition = "WR"
	PositionTE  FantasyPosition = "TE"
	PositionK   FantasyPosition = "K"
	PositionDST FantasyPosition = "D/ST"
)

// FantasyPositions lists every fantasy position in display order.
var FantasyPositions = []FantasyPosition{
	PositionQB,
	PositionRB,
	PositionWR,
	PositionTE,
	PositionK,
	PositionDST,
}

// defensivePositions are the raw codes that score as a team defense.
var defensivePositions = map[string]struct{}{
	"DB":  {},
	"DE":  {},
	"DT":  {},
	"CB":  {},
	"LS":  {},
	"LB":  {},
	"P":   {},
	"ILB": {},
	"OLB": {},
	"T":   {},
	"NT":  {},
}

// ToFantasyPosition converts a raw position code. The second return value is
// false for codes with no fantasy relevance (e.g. "OL", "FB" or "").
func ToFantasyPosition(raw string) (FantasyPosition, bool) {
	switch raw {
	case "QB":
		return PositionQB, true
	case "RB":
		return PositionRB, true
	case "WR":
		return PositionWR, true
	case "TE":
		return PositionTE, true
	case "K":
		return PositionK, true
	}
	if _, ok := defensivePositions[raw]; ok {
		return PositionDST, true
	}
	return "", false
}

// String implements fmt.Stringer.
func (p FantasyPosition) String() string {
	return string(p)
}
