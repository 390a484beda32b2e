package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

var ErrLabelNotFound = errors.New("projection snapshot not found")

// Store persists projected pools under a label in the projection_snapshots
// table.
type Store struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewStore(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.WithField("component", "snapshot_store"),
	}
}

// Save replaces the snapshot stored under label.
func (s *Store) Save(ctx context.Context, label string, players []models.ProjectedPlayer) error {
	rows := make([]models.SnapshotRow, 0, len(players))
	for _, p := range players {
		object, err := json.Marshal(p.Player)
		if err != nil {
			return fmt.Errorf("failed to encode player %s: %w", p.Player.ID, err)
		}
		row := models.SnapshotRow{
			Label:           label,
			PlayerID:        p.Player.ID,
			FullName:        p.Player.FullName,
			Team:            p.Player.Team,
			Position:        p.Position.String(),
			SimulationCount: p.SimulationCount,
			PlayerObject:    datatypes.JSON(object),
		}
		if p.IsObserved() {
			points := p.ProjectedPoints
			row.Points = &points
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("label = ?", label).Delete(&models.SnapshotRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear snapshot %q: %w", label, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to save snapshot %q: %w", label, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"label":   label,
		"players": len(rows),
	}).Info("Saved projection snapshot")
	return nil
}

// Load returns the snapshot stored under label in insertion order.
func (s *Store) Load(ctx context.Context, label string) ([]models.ProjectedPlayer, error) {
	var rows []models.SnapshotRow
	if err := s.db.WithContext(ctx).
		Where("label = ?", label).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", label, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
	}

	players := make([]models.ProjectedPlayer, 0, len(rows))
	for _, row := range rows {
		var player models.Player
		if err := json.Unmarshal(row.PlayerObject, &player); err != nil {
			return nil, fmt.Errorf("invalid player_object for %s: %w", row.PlayerID, err)
		}
		points := models.NotObserved
		if row.Points != nil {
			points = *row.Points
		}
		projected, ok := models.NewProjectedPlayer(player, points, 0, row.SimulationCount)
		if !ok {
			s.logger.WithField("player_id", row.PlayerID).Warn("Skipping snapshot row without fantasy position")
			continue
		}
		players = append(players, projected)
	}
	return players, nil
}

// Labels lists stored snapshot labels.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	var labels []string
	if err := s.db.WithContext(ctx).
		Model(&models.SnapshotRow{}).
		Distinct("label").
		Order("label").
		Pluck("label", &labels).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return labels, nil
}
