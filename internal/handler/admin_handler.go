package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/audit"
)

type VariantSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type IncidentLister interface {
	ListOpen(ctx context.Context) ([]audit.Incident, error)
}

type AdminHandler struct {
	sweeper   VariantSweeper
	incidents IncidentLister
	logger    *zap.Logger
}

func NewAdminHandler(sweeper VariantSweeper, incidents IncidentLister, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sweeper:   sweeper,
		incidents: incidents,
		logger:    logger,
	}
}

// TriggerSweep runs one eviction sweep. Parameterless; ceiling and buffer
// come from config. Intended for an external scheduler.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	deleted, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("Sweep failed", zap.Int("deleted_before_failure", deleted), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Sweep failed",
			"code":  "upstream_failure",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListIncidents returns open mark-failure incidents for operator review.
func (h *AdminHandler) ListIncidents(c *gin.Context) {
	if h.incidents == nil {
		c.JSON(http.StatusOK, gin.H{"incidents": []audit.Incident{}})
		return
	}

	incidents, err := h.incidents.ListOpen(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list incidents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list incidents",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}
