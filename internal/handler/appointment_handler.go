package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/bloodlink/internal/model"
	"github.com/yourorg/bloodlink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppointmentHandler handles donation scheduling HTTP requests
type AppointmentHandler struct {
	appointmentService *service.AppointmentService
	logger             *zap.Logger
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointmentService *service.AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
		logger:             logger,
	}
}

// Create schedules a donation
// POST /api/v1/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	var in model.AppointmentCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.appointmentService.Create(c.Request.Context(), currentUserID(c), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

// List returns the caller's appointments
// GET /api/v1/appointments
func (h *AppointmentHandler) List(c *gin.Context) {
	appts, err := h.appointmentService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appts, "total": len(appts)})
}

// Accept confirms a scheduled appointment
// PUT /api/v1/appointments/:id/accept
func (h *AppointmentHandler) Accept(c *gin.Context) {
	h.transition(c, h.appointmentService.Accept)
}

// Reject declines a scheduled appointment
// PUT /api/v1/appointments/:id/reject
func (h *AppointmentHandler) Reject(c *gin.Context) {
	h.transition(c, h.appointmentService.Reject)
}

// Cancel withdraws an appointment
// PUT /api/v1/appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.appointmentService.Cancel)
}

// Complete marks the donation done
// PUT /api/v1/appointments/:id/complete
func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.appointmentService.Complete)
}

func (h *AppointmentHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, actorID, id string) (*model.Appointment, error),
) {
	appt, err := op(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}
