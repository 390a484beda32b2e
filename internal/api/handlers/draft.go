package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/draft"
	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/pkg/utils"
)

type DraftHandler struct {
	manager      *draft.Manager
	pools        PoolSource
	defaultLabel string
	metrics      *metrics.Recorder
	logger       *logrus.Entry
}

// NewDraftHandler creates the draft endpoints. rec may be nil.
func NewDraftHandler(manager *draft.Manager, pools PoolSource, defaultLabel string, rec *metrics.Recorder, logger *logrus.Logger) *DraftHandler {
	return &DraftHandler{
		manager:      manager,
		pools:        pools,
		defaultLabel: defaultLabel,
		metrics:      rec,
		logger:       logger.WithField("component", "draft_handler"),
	}
}

type DraftResponse struct {
	draft.Update
	UserRoster []optimizer.RosterEntry `json:"user_roster"`
	History    []draft.Pick            `json:"history"`
}

type pickRequest struct {
	Name      string `json:"name" binding:"required"`
	Selection *int   `json:"selection"`
}

func (r pickRequest) selection() int {
	if r.Selection == nil {
		return directory.NoSelection
	}
	return *r.Selection
}

// CreateDraft starts a live draft over a stored projection pool.
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}
	if req.Label == "" {
		req.Label = h.defaultLabel
	}

	pool, ok := loadPool(c, h.pools, req.Label)
	if !ok {
		return
	}

	session := h.manager.Create(pool, nil)
	utils.SendCreated(c, h.response(session))
}

// GetDraft returns the session state.
func (h *DraftHandler) GetDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	utils.SendSuccess(c, h.response(session))
}

// ContinueDraft recomputes the recommendation without a pick.
func (h *DraftHandler) ContinueDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Continue()
	utils.SendSuccess(c, h.response(session))
}

// ExternalPick records a player drafted by another team.
func (h *DraftHandler) ExternalPick(c *gin.Context) {
	h.pick(c, draft.PickExternal, func(ctx context.Context, session *draft.Session, req pickRequest) (*draft.Pick, error) {
		return session.ExternalPick(ctx, req.Name, req.selection())
	})
}

// UserPick commits a player to the user's roster.
func (h *DraftHandler) UserPick(c *gin.Context) {
	h.pick(c, draft.PickUser, func(ctx context.Context, session *draft.Session, req pickRequest) (*draft.Pick, error) {
		return session.UserPick(ctx, req.Name, req.selection())
	})
}

type pickFunc func(ctx context.Context, session *draft.Session, req pickRequest) (*draft.Pick, error)

func (h *DraftHandler) pick(c *gin.Context, kind draft.PickKind, do pickFunc) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	_, err := do(c.Request.Context(), session, req)
	var rejection *optimizer.Rejection
	h.metrics.RecordPick(string(kind), err, errors.As(err, &rejection))
	if err != nil {
		h.sendPickError(c, err)
		return
	}
	utils.SendSuccess(c, h.response(session))
}

func (h *DraftHandler) sendPickError(c *gin.Context, err error) {
	var ambiguous *directory.AmbiguousError
	var rejection *optimizer.Rejection

	switch {
	case errors.As(err, &ambiguous):
		utils.SendConflict(c, "Multiple players match", gin.H{"candidates": ambiguous.Candidates})
	case errors.Is(err, directory.ErrNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.As(err, &rejection):
		utils.SendUnprocessable(c, "Cannot add player", rejection)
	case errors.Is(err, draft.ErrNotInPool), errors.Is(err, draft.ErrComplete):
		utils.SendUnprocessable(c, err.Error())
	default:
		c.Error(err)
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(utils.ErrCodeValidation, err.Error()))
	}
}

func (h *DraftHandler) session(c *gin.Context) (*draft.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid session ID", err.Error())
		return nil, false
	}
	session, err := h.manager.Get(id)
	if err != nil {
		utils.SendNotFound(c, "Draft session not found")
		return nil, false
	}
	return session, true
}

func (h *DraftHandler) response(session *draft.Session) DraftResponse {
	return DraftResponse{
		Update:     session.Snapshot(),
		UserRoster: session.UserRoster(),
		History:    session.History(),
	}
}
