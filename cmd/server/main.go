package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/api"
	"github.com/stitts-dev/ff-draft-sim/internal/api/handlers"
	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/draft"
	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/internal/providers"
	"github.com/stitts-dev/ff-draft-sim/internal/scoring"
	"github.com/stitts-dev/ff-draft-sim/internal/services"
	"github.com/stitts-dev/ff-draft-sim/internal/simulator"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/internal/websocket"
	"github.com/stitts-dev/ff-draft-sim/pkg/config"
	"github.com/stitts-dev/ff-draft-sim/pkg/database"
	"github.com/stitts-dev/ff-draft-sim/pkg/logger"
)

const (
	sessionTTL    = 12 * time.Hour
	pruneSchedule = "@every 15m"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"simulations": cfg.Simulations,
	}).Info("Starting draft simulator")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	healthChecks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis is optional; without it stats and pools are read straight from
	// the database.
	var statsCache providers.CacheProvider
	var poolCache services.PoolCache
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		cacheService := services.NewCacheService(redisClient, log)
		statsCache = cacheService
		poolCache = cacheService
		healthChecks["redis"] = cacheService.Ping
	} else {
		log.Warn("REDIS_URL not set, caching disabled")
	}

	stats := providers.NewChain(providers.NewDBStatsProvider(db.DB, log), statsCache, providers.ChainConfig{
		RateLimit:        cfg.StatsRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.ExternalAPITimeout,
		CacheTTL:         cfg.StatsCacheTTL,
	}, log)

	projector, err := newProjector(cfg, stats, log)
	if err != nil {
		log.Fatalf("Failed to configure projector: %v", err)
	}

	policy, err := optimizer.NewPolicy(cfg.RosterLimits, cfg.RosterSize)
	if err != nil {
		log.Fatalf("Invalid roster policy: %v", err)
	}

	players := directory.NewDBDirectory(db.DB)
	store := snapshot.NewStore(db.DB, log)
	projections := services.NewProjectionService(players, projector, store, poolCache, cfg.StatsCacheTTL, log)

	// The hub looks sessions up through the manager, which notifies the hub.
	var drafts *draft.Manager
	hub := websocket.NewHub(func(id uuid.UUID) (draft.Update, bool) {
		session, err := drafts.Get(id)
		if err != nil {
			return draft.Update{}, false
		}
		return session.Snapshot(), true
	}, log)
	drafts = draft.NewManager(policy, hub, log)
	go hub.Run(ctx)

	recorder := metrics.NewRecorder()
	recorder.RegisterSessionGauge(drafts.Count)

	scheduler := services.NewScheduler(cfg.ExternalAPITimeout*10, log)
	scheduler.SetRecorder(recorder)
	if cfg.ProjectionRefreshSchedule != "" {
		if err := scheduler.AddJob("projection_refresh", cfg.ProjectionRefreshSchedule, services.RefreshJob(projections, cfg.SnapshotLabel)); err != nil {
			log.Fatalf("Failed to schedule projection refresh: %v", err)
		}
	}
	if err := scheduler.AddJob("draft_prune", pruneSchedule, func(ctx context.Context) error {
		drafts.Prune(time.Now().Add(-sessionTTL))
		return nil
	}); err != nil {
		log.Fatalf("Failed to schedule draft pruning: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Dependencies{
		Pools:        projections,
		Snapshots:    projections,
		Policy:       policy,
		Drafts:       drafts,
		Hub:          hub,
		DefaultLabel: cfg.SnapshotLabel,
		HealthChecks: healthChecks,
		Status:       scheduler.Status,
		Metrics:      recorder,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	stop()

	log.Info("Server exited")
}

func newProjector(cfg *config.Config, stats providers.StatsProvider, log *logrus.Logger) (*simulator.Projector, error) {
	years, err := simulator.ParseYearWeights(cfg.SampleYears)
	if err != nil {
		return nil, err
	}

	sampler, err := simulator.NewSampler(stats, scoring.DefaultTable, simulator.SamplerConfig{
		Years:       years,
		FirstWeek:   cfg.SampleFirstWeek,
		LastWeek:    cfg.SampleLastWeek,
		MaxAttempts: cfg.SampleMaxAttempts,
	}, log)
	if err != nil {
		return nil, err
	}

	return simulator.NewProjector(sampler, simulator.ProjectorConfig{
		Simulations: cfg.Simulations,
		Workers:     cfg.SimulationWorkers,
		Budget:      cfg.SimulationBudget,
		Seed:        cfg.SimulationSeed,
	}, log), nil
}
