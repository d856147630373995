package handler

import (
	"net/http"

	"github.com/yourorg/bloodlink/internal/model"
	"github.com/yourorg/bloodlink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestHandler handles blood-request HTTP requests
type RequestHandler struct {
	requestService *service.RequestService
	logger         *zap.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requestService *service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		logger:         logger,
	}
}

// List returns the viewer's role-scoped feed
// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	resp, err := h.requestService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Create opens a new request
// POST /api/v1/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var in model.RequestCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requestService.Create(c.Request.Context(), currentUserID(c), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// Get returns one request if visible to the viewer
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.requestService.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Accept claims an open request for the caller
// PUT /api/v1/requests/:id/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	var in model.RequestAccept
	if err := c.ShouldBindJSON(&in); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requestService.Accept(c.Request.Context(), currentUserID(c), c.Param("id"), in.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Reject declines a request with a required reason
// PUT /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var in model.RequestReject
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requestService.Reject(c.Request.Context(), currentUserID(c), c.Param("id"), in.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Ignore dismisses the caller's notification for a request
// PUT /api/v1/requests/:id/ignore
func (h *RequestHandler) Ignore(c *gin.Context) {
	if err := h.requestService.Ignore(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Dispatch records shipment of an accepted request
// PUT /api/v1/requests/:id/dispatch
func (h *RequestHandler) Dispatch(c *gin.Context) {
	var in model.RequestDispatch
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requestService.Dispatch(c.Request.Context(), currentUserID(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Complete confirms physical receipt by the requester
// PUT /api/v1/requests/:id/complete
func (h *RequestHandler) Complete(c *gin.Context) {
	req, err := h.requestService.Complete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Cancel withdraws a request by its requester
// PUT /api/v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	req, err := h.requestService.Cancel(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Delete removes an unaccepted broadcast owned by the caller
// DELETE /api/v1/requests/:id
func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
