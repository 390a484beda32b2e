package draft

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
)

var ErrSessionNotFound = errors.New("draft session not found")

// Manager keeps live draft sessions by id.
type Manager struct {
	policy   *optimizer.RosterSlotPolicy
	notifier Notifier
	logger   *logrus.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(policy *optimizer.RosterSlotPolicy, notifier Notifier, logger *logrus.Logger) *Manager {
	return &Manager{
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a session over pool. dir may be nil.
func (m *Manager) Create(pool []models.ProjectedPlayer, dir directory.Directory) *Session {
	session := NewSession(m.policy, pool, dir, m.notifier, m.logger)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"component":  "draft_manager",
		"session_id": session.ID().String(),
		"pool":       len(pool),
		"sessions":   count,
	}).Info("Created draft session")

	return session
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune drops sessions created before cutoff and returns how many were removed.
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.CreatedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"component": "draft_manager",
			"removed":   removed,
			"remaining": len(m.sessions),
		}).Info("Pruned draft sessions")
	}
	return removed
}
