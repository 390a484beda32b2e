package services

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheService(client, quietLogger()), mr
}

func TestCacheService(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var miss map[string]int
	assert.ErrorIs(t, cache.Get(ctx, "absent", &miss), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	ok, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetWithRetry(ctx, "r", "v", 0, 3))
	require.NoError(t, cache.Delete(ctx, "r"))
	ok, _ = cache.Exists(ctx, "r")
	assert.False(t, ok)

	assert.Error(t, cache.Set(ctx, "bad", math.Inf(1), 0), "infinities are not JSON")
	assert.NoError(t, cache.Ping(ctx))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "://nope")
	assert.Error(t, err)
}

type MockProjector struct {
	mock.Mock
}

func (m *MockProjector) ProjectPool(ctx context.Context, players []models.Player) ([]models.ProjectedPlayer, error) {
	args := m.Called(ctx, players)
	pool, _ := args.Get(0).([]models.ProjectedPlayer)
	return pool, args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Save(ctx context.Context, label string, players []models.ProjectedPlayer) error {
	args := m.Called(ctx, label, players)
	return args.Error(0)
}

func (m *MockSnapshotStore) Load(ctx context.Context, label string) ([]models.ProjectedPlayer, error) {
	args := m.Called(ctx, label)
	pool, _ := args.Get(0).([]models.ProjectedPlayer)
	return pool, args.Error(1)
}

func (m *MockSnapshotStore) Labels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	labels, _ := args.Get(0).([]string)
	return labels, args.Error(1)
}

type staticPlayers []models.Player

func (s staticPlayers) ActivePlayers(ctx context.Context) ([]models.Player, error) {
	return s, nil
}

func testPool() []models.ProjectedPlayer {
	qb, _ := models.NewProjectedPlayer(models.Player{ID: "1", FullName: "Drew Brees", Position: "QB"}, 19.5, 6, 50)
	ghost, _ := models.NewProjectedPlayer(models.Player{ID: "2", FullName: "Nobody", Position: "K"}, models.NotObserved, 0, 50)
	return []models.ProjectedPlayer{qb, ghost}
}

func TestProjectionService_RefreshSavesAndInvalidates(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	universe := staticPlayers{{ID: "1", FullName: "Drew Brees", Position: "QB"}, {ID: "2", FullName: "Nobody", Position: "K"}}
	pool := testPool()

	projector := new(MockProjector)
	projector.On("ProjectPool", mock.Anything, []models.Player(universe)).Return(pool, nil).Once()
	store := new(MockSnapshotStore)
	store.On("Save", mock.Anything, "weekly", pool).Return(nil).Once()

	require.NoError(t, mr.Set(ProjectionPoolCacheKey("weekly"), "stale"))

	service := NewProjectionService(universe, projector, store, cache, time.Hour, quietLogger())
	got, err := service.Refresh(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, pool, got)
	assert.False(t, mr.Exists(ProjectionPoolCacheKey("weekly")))

	projector.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestProjectionService_RefreshFailure(t *testing.T) {
	projector := new(MockProjector)
	projector.On("ProjectPool", mock.Anything, mock.Anything).Return(nil, errors.New("stats backend down"))
	store := new(MockSnapshotStore)

	service := NewProjectionService(staticPlayers{}, projector, store, nil, time.Hour, quietLogger())
	_, err := service.Refresh(context.Background(), "weekly")
	assert.ErrorContains(t, err, "stats backend down")
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectionService_PoolReadsThroughCache(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	pool := testPool()

	store := new(MockSnapshotStore)
	store.On("Load", mock.Anything, "weekly").Return(pool, nil).Once()

	service := NewProjectionService(staticPlayers{}, new(MockProjector), store, cache, time.Hour, quietLogger())

	first, err := service.Pool(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, pool, first)
	assert.True(t, mr.Exists(ProjectionPoolCacheKey("weekly")))

	second, err := service.Pool(ctx, "weekly")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, pool[0], second[0])
	assert.True(t, math.IsInf(second[1].ProjectedPoints, -1))

	store.AssertExpectations(t)
}

func TestProjectionService_ImportAndLabels(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	pool := testPool()

	store := new(MockSnapshotStore)
	store.On("Save", mock.Anything, "sweep-100", pool).Return(nil).Once()
	store.On("Labels", mock.Anything).Return([]string{"sweep-100", "weekly"}, nil).Once()

	require.NoError(t, mr.Set(ProjectionPoolCacheKey("sweep-100"), "stale"))

	service := NewProjectionService(staticPlayers{}, new(MockProjector), store, cache, time.Hour, quietLogger())
	require.NoError(t, service.Import(ctx, "sweep-100", pool))
	assert.False(t, mr.Exists(ProjectionPoolCacheKey("sweep-100")))

	assert.Error(t, service.Import(ctx, "empty", nil))

	labels, err := service.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sweep-100", "weekly"}, labels)

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestScheduler_RunNowAndOverlap(t *testing.T) {
	scheduler := NewScheduler(time.Second, quietLogger())

	var runs int32
	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		close(started)
		<-release
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.RunNow("refresh", slow)
	}()
	<-started

	// overlapping run of the same job is skipped
	scheduler.RunNow("refresh", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	lastRuns := scheduler.Status()["last_runs"].(map[string]time.Time)
	assert.Contains(t, lastRuns, "refresh")
}

func TestScheduler_JobContextHasTimeout(t *testing.T) {
	scheduler := NewScheduler(50*time.Millisecond, quietLogger())

	var deadline bool
	scheduler.RunNow("prune", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, deadline)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(time.Second, quietLogger())

	assert.Error(t, scheduler.AddJob("bad", "not a schedule", func(ctx context.Context) error { return nil }))
	require.NoError(t, scheduler.AddJob("prune", "@every 1h", func(ctx context.Context) error { return nil }))

	require.NoError(t, scheduler.Start())
	assert.Error(t, scheduler.Start())

	status := scheduler.Status()
	assert.Equal(t, true, status["is_running"])
	assert.Equal(t, 1, status["cron_jobs"])

	scheduler.Stop()
	assert.Equal(t, false, scheduler.Status()["is_running"])
	scheduler.Stop()
}

func TestScheduler_RecordsJobRuns(t *testing.T) {
	s := NewScheduler(time.Second, quietLogger())
	rec := metrics.NewRecorder()
	s.SetRecorder(rec)

	s.RunNow("draft_prune", func(ctx context.Context) error { return nil })
	s.RunNow("projection_refresh", func(ctx context.Context) error { return errors.New("stats source down") })

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `ff_draft_sim_scheduler_job_runs_total{job="draft_prune",result="ok"} 1`)
	assert.Contains(t, body, `ff_draft_sim_scheduler_job_runs_total{job="projection_refresh",result="error"} 1`)
}
