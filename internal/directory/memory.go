package directory

import (
	"context"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// MemoryDirectory matches names against a fixed player list. An exact full
// name match wins over partial matches.
type MemoryDirectory struct {
	players []models.Player
}

// NewMemoryDirectory creates a directory over players.
func NewMemoryDirectory(players []models.Player) *MemoryDirectory {
	return &MemoryDirectory{players: players}
}

// FromProjections builds a directory from a projected pool.
func FromProjections(pool []models.ProjectedPlayer) *MemoryDirectory {
	players := make([]models.Player, 0, len(pool))
	for _, p := range pool {
		players = append(players, p.Player)
	}
	return NewMemoryDirectory(players)
}

// Find implements Directory.
func (d *MemoryDirectory) Find(ctx context.Context, query string) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := normalize(query)
	if q == "" {
		return nil, nil
	}

	var exact, partial []models.Player
	for _, p := range d.players {
		name := normalize(p.FullName)
		switch {
		case name == q:
			exact = append(exact, p)
		case containsWord(name, q):
			partial = append(partial, p)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return partial, nil
}

// containsWord reports whether q occurs in name on word boundaries, so
// "bell" finds "Le'Veon Bell" but not "Campbell".
func containsWord(name, q string) bool {
	for i := 0; i+len(q) <= len(name); i++ {
		if name[i:i+len(q)] != q {
			continue
		}
		startOK := i == 0 || name[i-1] == ' '
		end := i + len(q)
		endOK := end == len(name) || name[end] == ' '
		if startOK && endOK {
			return true
		}
	}
	return false
}
