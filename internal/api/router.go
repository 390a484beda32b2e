package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/api/handlers"
	"github.com/stitts-dev/ff-draft-sim/internal/api/middleware"
	"github.com/stitts-dev/ff-draft-sim/internal/draft"
	"github.com/stitts-dev/ff-draft-sim/internal/metrics"
	"github.com/stitts-dev/ff-draft-sim/internal/optimizer"
	"github.com/stitts-dev/ff-draft-sim/internal/websocket"
)

// Dependencies are the components the HTTP layer serves.
type Dependencies struct {
	Pools        handlers.PoolSource
	Snapshots    handlers.SnapshotCatalog
	Policy       *optimizer.RosterSlotPolicy
	Drafts       *draft.Manager
	Hub          *websocket.Hub
	DefaultLabel string
	HealthChecks map[string]handlers.HealthCheck
	Status       func() map[string]interface{}
	Metrics      *metrics.Recorder
	Logger       *logrus.Logger
}

// NewRouter creates the gin engine with middleware and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures all routes on the given router
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks, deps.Status)
	rosterHandler := handlers.NewRosterHandler(deps.Pools, deps.Policy, deps.DefaultLabel, deps.Logger)
	draftHandler := handlers.NewDraftHandler(deps.Drafts, deps.Pools, deps.DefaultLabel, deps.Metrics, deps.Logger)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/rosters/build", rosterHandler.BuildRoster)

		if deps.Snapshots != nil {
			snapshotHandler := handlers.NewSnapshotHandler(deps.Snapshots, deps.Logger)
			v1.GET("/snapshots", snapshotHandler.ListSnapshots)
			v1.PUT("/snapshots/:label", snapshotHandler.ImportSnapshot)
		}

		v1.POST("/drafts", draftHandler.CreateDraft)
		v1.GET("/drafts/:id", draftHandler.GetDraft)
		v1.POST("/drafts/:id/continue", draftHandler.ContinueDraft)
		v1.POST("/drafts/:id/external-picks", draftHandler.ExternalPick)
		v1.POST("/drafts/:id/user-picks", draftHandler.UserPick)
	}

	if deps.Hub != nil {
		router.GET("/ws/drafts/:id", deps.Hub.HandleWebSocket)
	}
}
