package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/internal/providers"
	"github.com/stitts-dev/ff-draft-sim/internal/scoring"
	"github.com/stitts-dev/ff-draft-sim/internal/simulator"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/pkg/config"
	"github.com/stitts-dev/ff-draft-sim/pkg/database"
	"github.com/stitts-dev/ff-draft-sim/pkg/logger"
)

// evolution projects the player universe once per simulation count and writes
// the projected pool and the optimal roster for each count, showing how the
// roster settles as the number of simulations grows.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	desired := pflag.StringSlice("desired", nil, "player ids committed to every roster before building")
	counts := pflag.IntSlice("simulations", cfg.SweepSimulations, "simulation counts to sweep")
	outDir := pflag.String("out", cfg.SnapshotDir, "directory for the CSV snapshots")
	store := pflag.Bool("store", false, "also save each projected pool to the database as sweep-<N>")
	pflag.Parse()

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	policy, err := optimizer.NewPolicy(cfg.RosterLimits, cfg.RosterSize)
	if err != nil {
		log.Fatalf("Invalid roster policy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	players := directory.NewDBDirectory(db.DB)
	universe, err := players.ActivePlayers(ctx)
	if err != nil {
		log.Fatalf("Failed to load players: %v", err)
	}
	if err := checkDesired(ctx, players, universe, *desired); err != nil {
		log.Fatalf("Invalid desired players: %v", err)
	}

	stats := providers.NewChain(providers.NewDBStatsProvider(db.DB, log), nil, providers.ChainConfig{
		RateLimit:        cfg.StatsRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.ExternalAPITimeout,
	}, log)

	years, err := simulator.ParseYearWeights(cfg.SampleYears)
	if err != nil {
		log.Fatalf("Invalid SAMPLE_YEARS: %v", err)
	}
	// One sampler for the whole sweep so every period is fetched once.
	sampler, err := simulator.NewSampler(stats, scoring.DefaultTable, simulator.SamplerConfig{
		Years:       years,
		FirstWeek:   cfg.SampleFirstWeek,
		LastWeek:    cfg.SampleLastWeek,
		MaxAttempts: cfg.SampleMaxAttempts,
	}, log)
	if err != nil {
		log.Fatalf("Failed to configure sampler: %v", err)
	}

	var snapshots *snapshot.Store
	if *store {
		if err := db.Migrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		snapshots = snapshot.NewStore(db.DB, log)
	}

	for _, n := range *counts {
		runLog := logger.WithProjectionContext(uuid.NewString(), n)
		start := time.Now()

		projector := simulator.NewProjector(sampler, simulator.ProjectorConfig{
			Simulations: n,
			Workers:     cfg.SimulationWorkers,
			Budget:      cfg.SimulationBudget,
			Seed:        cfg.SimulationSeed,
		}, log)
		pool, err := projector.ProjectPool(ctx, universe)
		if err != nil {
			runLog.Fatalf("Projection failed: %v", err)
		}

		team, rejected := buildTeam(policy, pool, *desired)
		for id, rej := range rejected {
			runLog.WithField("player_id", id).Warnf("Desired player skipped: %v", rej)
		}

		poolPath := filepath.Join(*outDir, fmt.Sprintf("%diter_sim_all_players.csv", n))
		if err := snapshot.SaveFile(poolPath, pool); err != nil {
			runLog.Fatalf("Failed to write pool: %v", err)
		}
		teamPath := filepath.Join(*outDir, fmt.Sprintf("%d_iter_sim_optimal_team.csv", n))
		if err := snapshot.SaveFile(teamPath, team); err != nil {
			runLog.Fatalf("Failed to write team: %v", err)
		}
		if snapshots != nil {
			if err := snapshots.Save(ctx, fmt.Sprintf("sweep-%d", n), pool); err != nil {
				runLog.Fatalf("Failed to store pool: %v", err)
			}
		}

		runLog.WithFields(logrus.Fields{
			"players":  len(pool),
			"roster":   len(team),
			"duration": time.Since(start).String(),
			"pool":     poolPath,
			"team":     teamPath,
		}).Info("Simulation count complete")
	}
}

// checkDesired reports ids that are unknown or not in the active universe.
func checkDesired(ctx context.Context, dir *directory.DBDirectory, universe []models.Player, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := dir.ByIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[string]models.Player, len(found))
	for _, p := range found {
		known[p.ID] = p
	}
	active := make(map[string]bool, len(universe))
	for _, p := range universe {
		active[p.ID] = true
	}
	for _, id := range ids {
		p, ok := known[id]
		if !ok {
			return fmt.Errorf("unknown player id %q", id)
		}
		if !active[id] {
			return fmt.Errorf("%s (%s) is not active", p.FullName, id)
		}
	}
	return nil
}

// buildTeam commits the desired players, fills the roster greedily and returns
// it sorted by projected points.
func buildTeam(policy *optimizer.RosterSlotPolicy, pool []models.ProjectedPlayer, desired []string) ([]models.ProjectedPlayer, map[string]*optimizer.Rejection) {
	players := optimizer.PoolPointers(pool)
	byID := make(map[string]*models.ProjectedPlayer, len(players))
	for _, p := range players {
		byID[p.Player.ID] = p
	}

	locked := make([]*models.ProjectedPlayer, 0, len(desired))
	rejected := make(map[string]*optimizer.Rejection)
	for _, id := range desired {
		p, ok := byID[id]
		if !ok {
			// Active players without a fantasy position never reach the pool.
			rejected[id] = &optimizer.Rejection{Reason: optimizer.ReasonIneligible}
			continue
		}
		locked = append(locked, p)
	}

	roster, lockRejections := optimizer.BuildWithLocked(policy, locked, players)
	for id, rej := range lockRejections {
		rejected[id] = rej
	}

	team := make([]models.ProjectedPlayer, 0, roster.Len())
	for _, p := range roster.Players() {
		team = append(team, *p)
	}
	sort.SliceStable(team, func(i, j int) bool {
		return team[i].ProjectedPoints > team[j].ProjectedPoints
	})
	return team, rejected
}
