package handler

import (
	"net/http"
	"strings"

	"github.com/yourorg/bloodlink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DonorHandler handles donor eligibility search
type DonorHandler struct {
	donorService *service.DonorService
	logger       *zap.Logger
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(donorService *service.DonorService, logger *zap.Logger) *DonorHandler {
	return &DonorHandler{
		donorService: donorService,
		logger:       logger,
	}
}

// Search returns donors matching a blood group and city set
// GET /api/v1/donors?bloodGroup=&cities=&eligibleOnly=
func (h *DonorHandler) Search(c *gin.Context) {
	bloodGroup := c.Query("bloodGroup")
	eligibleOnly := c.Query("eligibleOnly") == "true"

	var cities []string
	if raw := c.Query("cities"); raw != "" {
		for _, city := range strings.Split(raw, ",") {
			if city = strings.TrimSpace(city); city != "" {
				cities = append(cities, city)
			}
		}
	}

	donors, err := h.donorService.Search(c.Request.Context(), bloodGroup, cities, eligibleOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"donors": donors, "total": len(donors)})
}
