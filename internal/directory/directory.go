package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// ErrNotFound is returned when a name matches no player.
var ErrNotFound = errors.New("player not found")

// NoSelection tells Resolve that the caller has not chosen among matches.
const NoSelection = -1

// Directory finds players by name. Zero, one or many matches are all normal
// results.
type Directory interface {
	Find(ctx context.Context, query string) ([]models.Player, error)
}

// AmbiguousError carries the candidates of a name that matched several
// players, so the caller can ask for a selection.
type AmbiguousError struct {
	Query      string          `json:"query"`
	Candidates []models.Player `json:"candidates"`
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("found %d matches for %q", len(e.Candidates), e.Query)
}

// Resolve picks one player from the matches of query. selection indexes
// matches and is only consulted when there is more than one match.
func Resolve(query string, matches []models.Player, selection int) (models.Player, error) {
	switch {
	case len(matches) == 0:
		return models.Player{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	case len(matches) == 1:
		return matches[0], nil
	case selection == NoSelection:
		return models.Player{}, &AmbiguousError{Query: query, Candidates: matches}
	case selection < 0 || selection >= len(matches):
		return models.Player{}, fmt.Errorf("selection %d out of range for %d matches of %q", selection, len(matches), query)
	}
	return matches[selection], nil
}

// Lookup runs Find followed by Resolve.
func Lookup(ctx context.Context, dir Directory, query string, selection int) (models.Player, error) {
	matches, err := dir.Find(ctx, query)
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to look up %q: %w", query, err)
	}
	return Resolve(query, matches, selection)
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
