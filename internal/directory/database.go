package directory

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// DBDirectory looks players up in the players table.
type DBDirectory struct {
	db *gorm.DB
}

func NewDBDirectory(db *gorm.DB) *DBDirectory {
	return &DBDirectory{db: db}
}

// Find returns exact (case-insensitive) full name matches, or substring
// matches when there is no exact one.
func (d *DBDirectory) Find(ctx context.Context, query string) ([]models.Player, error) {
	q := normalize(query)
	if q == "" {
		return nil, nil
	}

	var exact []models.Player
	if err := d.db.WithContext(ctx).
		Where("LOWER(full_name) = ?", q).
		Order("id").
		Find(&exact).Error; err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	if len(exact) > 0 {
		return exact, nil
	}

	var partial []models.Player
	if err := d.db.WithContext(ctx).
		Where("LOWER(full_name) LIKE ?", "%"+q+"%").
		Order("id").
		Find(&partial).Error; err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	return partial, nil
}

// ActivePlayers returns the draftable universe.
func (d *DBDirectory) ActivePlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := d.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("id").
		Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load active players: %w", err)
	}
	return players, nil
}

// ByIDs loads players by id, in no particular order.
func (d *DBDirectory) ByIDs(ctx context.Context, ids []string) ([]models.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var players []models.Player
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	return players, nil
}

// Upsert inserts players, replacing the stored identity of any existing id.
func (d *DBDirectory) Upsert(ctx context.Context, players []models.Player) error {
	if len(players) == 0 {
		return nil
	}
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "team", "position", "number", "status", "updated_at"}),
		}).
		CreateInBatches(players, 500).Error
	if err != nil {
		return fmt.Errorf("failed to upsert players: %w", err)
	}
	return nil
}
