package handler

import (
	"net/http"

	"github.com/yourorg/bloodlink/internal/model"
	"github.com/yourorg/bloodlink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InventoryHandler handles hospital stock HTTP requests
type InventoryHandler struct {
	inventoryService *service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// Get returns a hospital's stock
// GET /api/v1/inventory?hospitalId=
func (h *InventoryHandler) Get(c *gin.Context) {
	hospitalID := c.Query("hospitalId")
	if hospitalID == "" {
		hospitalID = currentUserID(c)
	}

	resp, err := h.inventoryService.Get(c.Request.Context(), hospitalID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Set stores an absolute unit count for one blood group
// PUT /api/v1/inventory
func (h *InventoryHandler) Set(c *gin.Context) {
	var in model.InventoryUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hospitalID := c.Query("hospitalId")
	if hospitalID == "" {
		hospitalID = currentUserID(c)
	}

	if err := h.inventoryService.Set(c.Request.Context(), currentUserID(c), hospitalID, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
