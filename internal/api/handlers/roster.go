package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/pkg/utils"
)

// PoolSource loads a stored projection pool by label.
type PoolSource interface {
	Pool(ctx context.Context, label string) ([]models.ProjectedPlayer, error)
}

type RosterHandler struct {
	pools        PoolSource
	policy       *optimizer.RosterSlotPolicy
	defaultLabel string
	logger       *logrus.Entry
}

func NewRosterHandler(pools PoolSource, policy *optimizer.RosterSlotPolicy, defaultLabel string, logger *logrus.Logger) *RosterHandler {
	return &RosterHandler{
		pools:        pools,
		policy:       policy,
		defaultLabel: defaultLabel,
		logger:       logger.WithField("component", "roster_handler"),
	}
}

type RosterResponse struct {
	Label       string                          `json:"label"`
	Roster      []optimizer.RosterEntry         `json:"roster"`
	TotalPoints float64                         `json:"total_points"`
	Full        bool                            `json:"full"`
	Deficit     map[models.FantasyPosition]int  `json:"deficit"`
	Rejected    map[string]*optimizer.Rejection `json:"rejected,omitempty"`
}

// BuildRoster builds the best greedy roster from a stored pool, committing
// locked players first.
func (h *RosterHandler) BuildRoster(c *gin.Context) {
	var req struct {
		Label           string   `json:"label"`
		LockedPlayerIDs []string `json:"locked_player_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Label == "" {
		req.Label = h.defaultLabel
	}

	pool, ok := loadPool(c, h.pools, req.Label)
	if !ok {
		return
	}

	players := optimizer.PoolPointers(pool)
	byID := make(map[string]*models.ProjectedPlayer, len(players))
	for _, p := range players {
		byID[p.Player.ID] = p
	}

	locked := make([]*models.ProjectedPlayer, 0, len(req.LockedPlayerIDs))
	var unknown []string
	for _, id := range req.LockedPlayerIDs {
		p, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		locked = append(locked, p)
	}
	if len(unknown) > 0 {
		utils.SendUnprocessable(c, "Locked players are not in the pool", gin.H{"player_ids": unknown})
		return
	}

	roster, rejected := optimizer.BuildWithLocked(h.policy, locked, players)

	h.logger.WithFields(logrus.Fields{
		"label":    req.Label,
		"pool":     len(pool),
		"locked":   len(locked),
		"rejected": len(rejected),
		"roster":   roster.Len(),
	}).Info("Built roster")

	resp := RosterResponse{
		Label:       req.Label,
		Roster:      roster.Entries(),
		TotalPoints: roster.TotalPoints(),
		Full:        roster.IsFull(),
		Deficit:     roster.Deficit(),
	}
	if len(rejected) > 0 {
		resp.Rejected = rejected
	}
	utils.SendSuccess(c, resp)
}

func loadPool(c *gin.Context, pools PoolSource, label string) ([]models.ProjectedPlayer, bool) {
	pool, err := pools.Pool(c.Request.Context(), label)
	if err != nil {
		if errors.Is(err, snapshot.ErrLabelNotFound) {
			utils.SendNotFound(c, "Projection snapshot not found")
			return nil, false
		}
		c.Error(err)
		utils.SendInternalError(c, "Failed to load projections")
		return nil, false
	}
	return pool, true
}
