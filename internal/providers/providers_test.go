package providers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var (
	brady = models.Player{ID: "00-0019596", FullName: "Tom Brady", Team: "NE", Position: "QB", Status: models.StatusActive}
	gronk = models.Player{ID: "00-0027656", FullName: "Rob Gronkowski", Team: "NE", Position: "TE", Status: models.StatusActive}
)

func TestMemoryStatsProvider(t *testing.T) {
	p := NewMemoryStatsProvider()
	p.Add(2017, 1, brady, models.StatRecord{"passing_yds": 267})
	p.Add(2017, 1, gronk, models.StatRecord{"receiving_rec": 2})
	p.Add(2017, 1, brady, models.StatRecord{"passing_yds": 10, "passing_tds": 1})

	stats, err := p.GetPeriodStats(context.Background(), 2017, 1)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, brady.ID, stats[0].Player.ID)
	assert.Equal(t, 277.0, stats[0].Stats["passing_yds"])
	assert.Equal(t, 1.0, stats[0].Stats["passing_tds"])

	// Returned records are copies.
	stats[0].Stats["passing_yds"] = 0
	again, err := p.GetPeriodStats(context.Background(), 2017, 1)
	require.NoError(t, err)
	assert.Equal(t, 277.0, again[0].Stats["passing_yds"])

	empty, err := p.GetPeriodStats(context.Background(), 2014, 9)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

type DBStatsProviderTestSuite struct {
	suite.Suite
	db       *gorm.DB
	provider *DBStatsProvider
}

func (s *DBStatsProviderTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(&models.Player{}, &models.StatLine{}))
	s.Require().NoError(db.Create(&[]models.Player{brady, gronk}).Error)

	s.db = db
	s.provider = NewDBStatsProvider(db, quietLogger())
}

func (s *DBStatsProviderTestSuite) TestAggregatesLinesPerPlayer() {
	ctx := context.Background()
	s.Require().NoError(s.provider.SaveLines(ctx, []models.StatLine{
		models.NewStatLine(brady.ID, 2016, 5, models.StatRecord{"passing_yds": 406, "passing_tds": 3}),
		models.NewStatLine(gronk.ID, 2016, 5, models.StatRecord{"receiving_yds": 162}),
		models.NewStatLine(brady.ID, 2016, 5, models.StatRecord{"rushing_yds": 4}),
		models.NewStatLine(brady.ID, 2016, 6, models.StatRecord{"passing_yds": 376}),
	}))

	stats, err := s.provider.GetPeriodStats(ctx, 2016, 5)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)

	s.Equal("Tom Brady", stats[0].Player.FullName)
	s.Equal(406.0, stats[0].Stats["passing_yds"])
	s.Equal(4.0, stats[0].Stats["rushing_yds"])
	s.Equal("Rob Gronkowski", stats[1].Player.FullName)
}

func (s *DBStatsProviderTestSuite) TestLineWithoutPlayerRowKeepsID() {
	ctx := context.Background()
	s.Require().NoError(s.provider.SaveLines(ctx, []models.StatLine{
		models.NewStatLine("00-0099999", 2016, 7, models.StatRecord{"rushing_yds": 52}),
	}))

	stats, err := s.provider.GetPeriodStats(ctx, 2016, 7)
	s.Require().NoError(err)
	s.Require().Len(stats, 1)
	s.Equal("00-0099999", stats[0].Player.ID)
	s.Equal(52.0, stats[0].Stats["rushing_yds"])
}

func (s *DBStatsProviderTestSuite) TestEmptyWeek() {
	stats, err := s.provider.GetPeriodStats(context.Background(), 2015, 17)
	s.NoError(err)
	s.Empty(stats)
}

func TestDBStatsProviderTestSuite(t *testing.T) {
	suite.Run(t, new(DBStatsProviderTestSuite))
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func TestCachedStatsProvider_MissThenStore(t *testing.T) {
	inner := NewMemoryStatsProvider()
	inner.Add(2017, 2, brady, models.StatRecord{"passing_tds": 2})

	cache := new(MockCacheService)
	cache.On("Get", mock.Anything, "stats:period:2017:2", mock.Anything).Return(errors.New("key not found"))
	cache.On("Set", mock.Anything, "stats:period:2017:2", mock.Anything, time.Hour).Return(nil)

	p := NewCachedStatsProvider(inner, cache, time.Hour, quietLogger())
	stats, err := p.GetPeriodStats(context.Background(), 2017, 2)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
	cache.AssertExpectations(t)
}

func TestCachedStatsProvider_Hit(t *testing.T) {
	inner := StatsProviderFunc(func(ctx context.Context, year, week int) ([]PlayerStats, error) {
		t.Fatal("inner provider must not be called on a cache hit")
		return nil, nil
	})

	cache := new(MockCacheService)
	cache.On("Get", mock.Anything, "stats:period:2015:3", mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]PlayerStats)
			*dest = []PlayerStats{{Player: gronk, Stats: models.StatRecord{"receiving_tds": 1}}}
		}).
		Return(nil)

	p := NewCachedStatsProvider(inner, cache, time.Hour, quietLogger())
	stats, err := p.GetPeriodStats(context.Background(), 2015, 3)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, gronk.ID, stats[0].Player.ID)
}

func TestBreakerStatsProvider_OpensAfterFailures(t *testing.T) {
	calls := 0
	failing := StatsProviderFunc(func(ctx context.Context, year, week int) ([]PlayerStats, error) {
		calls++
		return nil, errors.New("upstream down")
	})

	p := NewBreakerStatsProvider(failing, 3, time.Minute, quietLogger())
	for i := 0; i < 3; i++ {
		_, err := p.GetPeriodStats(context.Background(), 2017, 1)
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	_, err := p.GetPeriodStats(context.Background(), 2017, 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestBreakerStatsProvider_CancellationDoesNotTrip(t *testing.T) {
	cancelled := StatsProviderFunc(func(ctx context.Context, year, week int) ([]PlayerStats, error) {
		return nil, context.Canceled
	})

	p := NewBreakerStatsProvider(cancelled, 2, time.Minute, quietLogger())
	for i := 0; i < 5; i++ {
		_, err := p.GetPeriodStats(context.Background(), 2017, 1)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestLimitedStatsProvider(t *testing.T) {
	inner := NewMemoryStatsProvider()
	p := NewLimitedStatsProvider(inner, 0, 0)

	for i := 0; i < 10; i++ {
		_, err := p.GetPeriodStats(context.Background(), 2017, 1)
		require.NoError(t, err)
	}

	slow := NewLimitedStatsProvider(inner, 0.001, 1)
	_, err := slow.GetPeriodStats(context.Background(), 2017, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.GetPeriodStats(ctx, 2017, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewChain(t *testing.T) {
	inner := NewMemoryStatsProvider()
	inner.Add(2016, 4, gronk, models.StatRecord{"receiving_rec": 6})

	bare := NewChain(inner, nil, ChainConfig{BreakerThreshold: 3, BreakerTimeout: time.Minute}, quietLogger())
	_, isBreaker := bare.(*BreakerStatsProvider)
	assert.True(t, isBreaker, "without a cache the breaker is outermost")

	cache := new(MockCacheService)
	cache.On("Get", mock.Anything, "stats:period:2016:4", mock.Anything).Return(errors.New("key not found"))
	cache.On("Set", mock.Anything, "stats:period:2016:4", mock.Anything, time.Hour).Return(nil)

	cached := NewChain(inner, cache, ChainConfig{CacheTTL: time.Hour}, quietLogger())
	stats, err := cached.GetPeriodStats(context.Background(), 2016, 4)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, gronk.ID, stats[0].Player.ID)
	cache.AssertExpectations(t)
}
