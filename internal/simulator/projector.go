package simulator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// ProjectorConfig represents configuration for Monte Carlo projection
type ProjectorConfig struct {
	// Simulations is the number of draws per player. Zero is allowed and
	// projects every player as not observed.
	Simulations int
	Workers     int
	// Budget caps the wall time of ProjectPool. Zero means no cap.
	Budget time.Duration
	Seed   int64
}

// Projection is the outcome of projecting one player.
type Projection struct {
	Mean      float64
	StdDev    float64
	Trials    int
	Observed  int
	Truncated bool
}

// Projector runs the sampler many times per player and averages the draws.
type Projector struct {
	sampler *Sampler
	config  ProjectorConfig
	logger  *logrus.Entry
}

// NewProjector creates a new Monte Carlo projector
func NewProjector(sampler *Sampler, config ProjectorConfig, logger *logrus.Logger) *Projector {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Simulations < 0 {
		config.Simulations = 0
	}
	return &Projector{
		sampler: sampler,
		config:  config,
		logger:  logger.WithField("component", "projector"),
	}
}

// Config returns the effective configuration.
func (p *Projector) Config() ProjectorConfig {
	return p.config
}

// Project draws n samples for player and returns the mean of the observed
// draws. If every draw misses, or n is zero, the mean is models.NotObserved.
// Cancellation stops early and keeps the draws completed so far; only
// provider failures are returned as errors.
func (p *Projector) Project(ctx context.Context, rng *rand.Rand, player models.Player, n int) (Projection, error) {
	finite := make([]float64, 0, n)
	result := Projection{Mean: models.NotObserved}

	for i := 0; i < n; i++ {
		score, err := p.sampler.Sample(ctx, rng, player)
		if err != nil {
			if isCancellation(err) {
				result.Truncated = true
				break
			}
			return result, err
		}
		result.Trials++
		if !math.IsInf(score, -1) {
			finite = append(finite, score)
		}
	}

	result.Observed = len(finite)
	if len(finite) > 0 {
		result.Mean = stat.Mean(finite, nil)
	}
	if len(finite) > 1 {
		result.StdDev = stat.StdDev(finite, nil)
	}
	return result, nil
}

type projectionJob struct {
	index  int
	player models.Player
}

// ProjectPool projects every rosterable player concurrently. Each player has
// its own random source seeded from Seed and the player's index, so results
// do not depend on scheduling. Players with no fantasy position are dropped.
// When the Budget expires, remaining players keep the draws they completed;
// players never reached are returned as not observed with zero simulations.
func (p *Projector) ProjectPool(ctx context.Context, players []models.Player) ([]models.ProjectedPlayer, error) {
	start := time.Now()

	runCtx := ctx
	if p.config.Budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.config.Budget)
		defer cancel()
	}

	results := make([]Projection, len(players))
	jobs := make(chan projectionJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	failCtx, fail := context.WithCancel(runCtx)
	defer fail()

	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				rng := rand.New(rand.NewSource(p.config.Seed + int64(job.index)))
				proj, err := p.Project(failCtx, rng, job.player, p.config.Simulations)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						fail()
					})
					continue
				}
				results[job.index] = proj
			}
		}()
	}

	queued := make([]bool, len(players))
	for i, player := range players {
		if _, ok := player.FantasyPosition(); !ok {
			continue
		}
		if failCtx.Err() != nil {
			break
		}
		select {
		case jobs <- projectionJob{index: i, player: player}:
			queued[i] = true
		case <-failCtx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	pool := make([]models.ProjectedPlayer, 0, len(players))
	truncated := 0
	for i, player := range players {
		proj := results[i]
		if !queued[i] {
			proj = Projection{Mean: models.NotObserved, Truncated: true}
		}
		if proj.Truncated {
			truncated++
		}
		projected, ok := models.NewProjectedPlayer(player, proj.Mean, proj.StdDev, proj.Trials)
		if !ok {
			continue
		}
		pool = append(pool, projected)
	}

	fields := logrus.Fields{
		"players":     len(pool),
		"simulations": p.config.Simulations,
		"workers":     p.config.Workers,
		"duration":    time.Since(start),
		"periods":     p.sampler.CachedPeriods(),
	}
	if truncated > 0 {
		fields["truncated"] = truncated
		p.logger.WithFields(fields).Warn("Projection budget exhausted, returning partial means")
	} else {
		p.logger.WithFields(fields).Info("Projected player pool")
	}

	return pool, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
