package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

var players = []models.Player{
	{ID: "1", FullName: "David Johnson", Team: "ARI", Position: "RB", Number: 31, Status: models.StatusActive},
	{ID: "2", FullName: "Duke Johnson", Team: "CLE", Position: "RB", Number: 29, Status: models.StatusActive},
	{ID: "3", FullName: "Le'Veon Bell", Team: "PIT", Position: "RB", Number: 26, Status: models.StatusActive},
	{ID: "4", FullName: "Josh Campbell", Team: "FA", Position: "DE", Number: 99, Status: "RET"},
	{ID: "5", FullName: "David Johnson", Team: "PIT", Position: "TE", Number: 82, Status: models.StatusActive},
}

func TestResolve(t *testing.T) {
	_, err := Resolve("nobody", nil, NoSelection)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := Resolve("bell", players[2:3], NoSelection)
	require.NoError(t, err)
	assert.Equal(t, "3", p.ID)

	_, err = Resolve("johnson", players[:2], NoSelection)
	var ambiguous *AmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.Len(t, ambiguous.Candidates, 2)
	assert.False(t, errors.Is(err, ErrNotFound))

	p, err = Resolve("johnson", players[:2], 1)
	require.NoError(t, err)
	assert.Equal(t, "2", p.ID)

	_, err = Resolve("johnson", players[:2], 2)
	assert.Error(t, err)
}

func TestMemoryDirectory_Find(t *testing.T) {
	dir := NewMemoryDirectory(players)
	ctx := context.Background()

	matches, err := dir.Find(ctx, "  le'veon   BELL ")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	matches, err = dir.Find(ctx, "bell")
	require.NoError(t, err)
	require.Len(t, matches, 1, "word match must not hit Campbell")
	assert.Equal(t, "3", matches[0].ID)

	matches, err = dir.Find(ctx, "johnson")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = dir.Find(ctx, "david johnson")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = dir.Find(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLookup(t *testing.T) {
	dir := NewMemoryDirectory(players)
	p, err := Lookup(context.Background(), dir, "david johnson", 1)
	require.NoError(t, err)
	assert.Equal(t, "PIT", p.Team)

	_, err = Lookup(context.Background(), dir, "tom brady", NoSelection)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDBDirectory(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Player{}))
	require.NoError(t, db.Create(&players).Error)

	dir := NewDBDirectory(db)
	ctx := context.Background()

	matches, err := dir.Find(ctx, "David Johnson")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = dir.Find(ctx, "campb")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "4", matches[0].ID)

	active, err := dir.ActivePlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 4)

	byID, err := dir.ByIDs(ctx, []string{"1", "3"})
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	require.NoError(t, dir.Upsert(ctx, []models.Player{
		{ID: "4", FullName: "Josh Campbell", Team: "DET", Position: "DE", Number: 99, Status: models.StatusActive},
		{ID: "6", FullName: "Tyreek Hill", Team: "KC", Position: "WR", Number: 10, Status: models.StatusActive},
	}))
	require.NoError(t, dir.Upsert(ctx, nil))

	active, err = dir.ActivePlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 6)

	byID, err = dir.ByIDs(ctx, []string{"4"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "DET", byID[0].Team)
}
