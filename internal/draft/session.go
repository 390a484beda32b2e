package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
)

var (
	// ErrComplete is returned for picks made after the user roster is full.
	ErrComplete = errors.New("draft is complete")
	// ErrNotInPool is returned when a resolved player was already drafted.
	ErrNotInPool = errors.New("player is no longer available")
)

type State string

const (
	StateCollecting   State = "collecting"
	StateRecommending State = "recommending"
	StateComplete     State = "complete"
)

type PickKind string

const (
	PickExternal PickKind = "external"
	PickUser     PickKind = "user"
)

type Pick struct {
	Kind     PickKind               `json:"kind"`
	PlayerID string                 `json:"player_id"`
	FullName string                 `json:"full_name"`
	Position models.FantasyPosition `json:"position"`
	Points   *float64               `json:"points"`
	At       time.Time              `json:"at"`
}

// RecommendedPlayer is one row of the recommended roster. Picked marks players
// the user has already drafted.
type RecommendedPlayer struct {
	Player *models.ProjectedPlayer `json:"player"`
	Slot   string                  `json:"slot"`
	Picked bool                    `json:"picked"`
}

// Update is published after every transition.
type Update struct {
	SessionID      uuid.UUID                      `json:"session_id"`
	State          State                          `json:"state"`
	LastPick       *Pick                          `json:"last_pick,omitempty"`
	Recommendation []RecommendedPlayer            `json:"recommendation"`
	Deficit        map[models.FantasyPosition]int `json:"deficit"`
	Available      int                            `json:"available"`
}

// Notifier receives session updates.
type Notifier interface {
	Notify(update Update)
}

// Session tracks one live draft: the pool of available players, the user's
// committed roster and the roster recommended from what is left.
type Session struct {
	id        uuid.UUID
	policy    *optimizer.RosterSlotPolicy
	directory directory.Directory
	notifier  Notifier
	logger    *logrus.Entry

	mu             sync.Mutex
	pool           []*models.ProjectedPlayer
	available      map[string]*models.ProjectedPlayer
	roster         *optimizer.Roster
	recommendation *optimizer.Roster
	state          State
	history        []Pick
	createdAt      time.Time
}

// NewSession starts a draft over pool. Players are looked up in dir; when dir
// is nil the pool itself is searched.
func NewSession(policy *optimizer.RosterSlotPolicy, pool []models.ProjectedPlayer, dir directory.Directory, notifier Notifier, logger *logrus.Logger) *Session {
	if dir == nil {
		dir = directory.FromProjections(pool)
	}

	owned := make([]models.ProjectedPlayer, len(pool))
	copy(owned, pool)
	players := optimizer.PoolPointers(owned)
	available := make(map[string]*models.ProjectedPlayer, len(players))
	for _, p := range players {
		available[p.Player.ID] = p
	}

	id := uuid.New()
	s := &Session{
		id:        id,
		policy:    policy,
		directory: dir,
		notifier:  notifier,
		logger:    logger.WithFields(logrus.Fields{"component": "draft", "session_id": id.String()}),
		pool:      players,
		available: available,
		roster:    optimizer.NewRoster(policy),
		state:     StateCollecting,
		createdAt: time.Now(),
	}

	s.mu.Lock()
	update := s.refreshLocked(nil)
	s.mu.Unlock()
	s.notify(update)

	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// ExternalPick removes a player drafted by someone else from the pool.
func (s *Session) ExternalPick(ctx context.Context, name string, selection int) (*Pick, error) {
	player, err := directory.Lookup(ctx, s.directory, name, selection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateComplete {
		s.mu.Unlock()
		return nil, ErrComplete
	}
	pp, ok := s.available[player.ID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotInPool, player.FullName)
	}

	s.removeLocked(pp)
	pick := s.recordLocked(PickExternal, pp)
	update := s.refreshLocked(&pick)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"player":    pp.Player.FullName,
		"position":  pp.Position,
		"available": update.Available,
	}).Info("External pick")
	s.notify(update)

	return &pick, nil
}

// UserPick moves a player from the pool to the user's roster. A player the
// policy cannot admit is reported as *optimizer.Rejection and the session is
// unchanged.
func (s *Session) UserPick(ctx context.Context, name string, selection int) (*Pick, error) {
	player, err := directory.Lookup(ctx, s.directory, name, selection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateComplete {
		s.mu.Unlock()
		return nil, ErrComplete
	}
	pp, ok := s.available[player.ID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotInPool, player.FullName)
	}
	if rej := s.roster.Add(pp); rej != nil {
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{
			"player": pp.Player.FullName,
			"reason": rej.Reason,
		}).Debug("User pick rejected")
		return nil, rej
	}

	s.removeLocked(pp)
	s.recommendation = nil
	pick := s.recordLocked(PickUser, pp)
	update := s.refreshLocked(&pick)
	rosterLen := s.roster.Len()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"player":   pp.Player.FullName,
		"position": pp.Position,
		"roster":   rosterLen,
		"state":    update.State,
	}).Info("User pick")
	s.notify(update)

	return &pick, nil
}

// Continue recomputes the recommendation without a pick.
func (s *Session) Continue() Update {
	s.mu.Lock()
	update := s.refreshLocked(nil)
	s.mu.Unlock()
	s.notify(update)
	return update
}

// Recommendation returns the current recommended roster.
func (s *Session) Recommendation() []RecommendedPlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowsLocked()
}

// Snapshot returns the current state without recomputing.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(nil)
}

// UserRoster returns the user's committed roster entries in pick order.
func (s *Session) UserRoster() []optimizer.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Entries()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) History() []Pick {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pick, len(s.history))
	copy(out, s.history)
	return out
}

// Available returns the number of players left in the pool.
func (s *Session) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.available)
}

func (s *Session) removeLocked(pp *models.ProjectedPlayer) {
	delete(s.available, pp.Player.ID)
	for i, p := range s.pool {
		if p == pp {
			s.pool = append(s.pool[:i], s.pool[i+1:]...)
			break
		}
	}
}

func (s *Session) recordLocked(kind PickKind, pp *models.ProjectedPlayer) Pick {
	pick := Pick{
		Kind:     kind,
		PlayerID: pp.Player.ID,
		FullName: pp.Player.FullName,
		Position: pp.Position,
		At:       time.Now(),
	}
	if pp.IsObserved() {
		points := pp.ProjectedPoints
		pick.Points = &points
	}
	s.history = append(s.history, pick)
	return pick
}

// refreshLocked rebuilds the recommendation from the user's roster and the
// remaining pool, then settles the state.
func (s *Session) refreshLocked(last *Pick) Update {
	if s.roster.IsFull() {
		s.state = StateComplete
		s.recommendation = s.roster.Clone()
		return s.updateLocked(last)
	}

	s.state = StateRecommending
	s.recommendation = optimizer.Build(s.roster, s.pool)
	s.state = StateCollecting
	return s.updateLocked(last)
}

func (s *Session) rowsLocked() []RecommendedPlayer {
	if s.recommendation == nil {
		return nil
	}
	entries := s.recommendation.Entries()
	rows := make([]RecommendedPlayer, len(entries))
	for i, e := range entries {
		rows[i] = RecommendedPlayer{
			Player: e.Player,
			Slot:   e.Slot,
			Picked: s.roster.Contains(e.Player.Player.ID),
		}
	}
	return rows
}

func (s *Session) updateLocked(last *Pick) Update {
	var deficit map[models.FantasyPosition]int
	if s.recommendation != nil {
		deficit = s.recommendation.Deficit()
	}
	return Update{
		SessionID:      s.id,
		State:          s.state,
		LastPick:       last,
		Recommendation: s.rowsLocked(),
		Deficit:        deficit,
		Available:      len(s.available),
	}
}

func (s *Session) notify(update Update) {
	if s.notifier != nil {
		s.notifier.Notify(update)
	}
}
