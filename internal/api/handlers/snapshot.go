package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/pkg/utils"
)

const maxSnapshotBytes = 32 << 20

// SnapshotCatalog lists stored pools and accepts imported ones.
type SnapshotCatalog interface {
	Labels(ctx context.Context) ([]string, error)
	Import(ctx context.Context, label string, pool []models.ProjectedPlayer) error
}

type SnapshotHandler struct {
	catalog SnapshotCatalog
	logger  *logrus.Entry
}

func NewSnapshotHandler(catalog SnapshotCatalog, logger *logrus.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		catalog: catalog,
		logger:  logger.WithField("component", "snapshot_handler"),
	}
}

func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	labels, err := h.catalog.Labels(c.Request.Context())
	if err != nil {
		c.Error(err)
		utils.SendInternalError(c, "Failed to list projection snapshots")
		return
	}
	if labels == nil {
		labels = []string{}
	}
	utils.SendSuccess(c, gin.H{"labels": labels})
}

// ImportSnapshot stores a projection table in CSV form, as written by the
// sweep, under the label in the path. An existing pool with that label is
// replaced.
func (h *SnapshotHandler) ImportSnapshot(c *gin.Context) {
	label := strings.TrimSpace(c.Param("label"))
	if label == "" {
		utils.SendValidationError(c, "Invalid label", "label must not be empty")
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxSnapshotBytes)
	pool, err := snapshot.ReadCSV(body)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection table", err.Error())
		return
	}
	if len(pool) == 0 {
		utils.SendValidationError(c, "Invalid projection table", "table has no players")
		return
	}

	if err := h.catalog.Import(c.Request.Context(), label, pool); err != nil {
		c.Error(err)
		utils.SendInternalError(c, "Failed to store projection snapshot")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"label":   label,
		"players": len(pool),
	}).Info("Imported projection snapshot")

	utils.SendCreated(c, gin.H{"label": label, "players": len(pool)})
}
