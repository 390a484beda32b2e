package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// PlayerSource supplies the draftable universe.
type PlayerSource interface {
	ActivePlayers(ctx context.Context) ([]models.Player, error)
}

// PoolProjector projects a player universe.
type PoolProjector interface {
	ProjectPool(ctx context.Context, players []models.Player) ([]models.ProjectedPlayer, error)
}

// SnapshotStore persists projected pools by label.
type SnapshotStore interface {
	Save(ctx context.Context, label string, players []models.ProjectedPlayer) error
	Load(ctx context.Context, label string) ([]models.ProjectedPlayer, error)
	Labels(ctx context.Context) ([]string, error)
}

// PoolCache caches loaded pools.
type PoolCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// ProjectionService produces projected pools and serves stored ones.
type ProjectionService struct {
	players   PlayerSource
	projector PoolProjector
	store     SnapshotStore
	cache     PoolCache
	ttl       time.Duration
	logger    *logrus.Entry
}

// NewProjectionService creates a projection service. cache may be nil.
func NewProjectionService(players PlayerSource, projector PoolProjector, store SnapshotStore, cache PoolCache, ttl time.Duration, logger *logrus.Logger) *ProjectionService {
	return &ProjectionService{
		players:   players,
		projector: projector,
		store:     store,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.WithField("component", "projection_service"),
	}
}

// Refresh projects the active universe and stores it under label.
func (s *ProjectionService) Refresh(ctx context.Context, label string) ([]models.ProjectedPlayer, error) {
	start := time.Now()

	players, err := s.players.ActivePlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player universe: %w", err)
	}

	pool, err := s.projector.ProjectPool(ctx, players)
	if err != nil {
		return nil, fmt.Errorf("failed to project players: %w", err)
	}

	if err := s.save(ctx, label, pool); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"label":    label,
		"universe": len(players),
		"pool":     len(pool),
		"duration": time.Since(start),
	}).Info("Refreshed projections")

	return pool, nil
}

// Pool returns the pool stored under label, from cache when possible.
func (s *ProjectionService) Pool(ctx context.Context, label string) ([]models.ProjectedPlayer, error) {
	key := ProjectionPoolCacheKey(label)

	if s.cache != nil {
		var cached []models.ProjectedPlayer
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.WithError(err).WithField("cache_key", key).Warn("Cache read failed")
		}
	}

	pool, err := s.store.Load(ctx, label)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, pool, s.ttl); err != nil {
			s.logger.WithError(err).WithField("cache_key", key).Warn("Failed to cache pool")
		}
	}
	return pool, nil
}

// Import stores an externally produced pool, such as a sweep CSV, under label.
func (s *ProjectionService) Import(ctx context.Context, label string, pool []models.ProjectedPlayer) error {
	if len(pool) == 0 {
		return fmt.Errorf("refusing to store empty pool under %q", label)
	}
	if err := s.save(ctx, label, pool); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"label": label,
		"pool":  len(pool),
	}).Info("Imported projections")
	return nil
}

// Labels lists the stored pools.
func (s *ProjectionService) Labels(ctx context.Context) ([]string, error) {
	return s.store.Labels(ctx)
}

func (s *ProjectionService) save(ctx context.Context, label string, pool []models.ProjectedPlayer) error {
	if err := s.store.Save(ctx, label, pool); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, ProjectionPoolCacheKey(label)); err != nil {
			s.logger.WithError(err).WithField("label", label).Warn("Failed to invalidate cached pool")
		}
	}
	return nil
}
