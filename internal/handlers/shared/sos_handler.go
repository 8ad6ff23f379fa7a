package handlers

import (
	"rescuelink/internal/models"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SOSHandler struct {
	sosService services.SOSService
	logger     *logger.Logger
}

func NewSOSHandler(sosService services.SOSService, log *logger.Logger) *SOSHandler {
	return &SOSHandler{
		sosService: sosService,
		logger:     log,
	}
}

// RaiseSOS creates a case and alerts volunteers or emergency contacts
func (h *SOSHandler) RaiseSOS(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var request models.RaiseSOSRequest
	if !bindJSON(c, &request) {
		return
	}

	result, err := h.sosService.Raise(c.Request.Context(), userID, &request)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "SOS raised successfully", result)
}

// GetActiveSOS lists open cases addressed to volunteers
func (h *SOSHandler) GetActiveSOS(c *gin.Context) {
	cases, err := h.sosService.ListActive(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Active SOS retrieved successfully", cases, &utils.Meta{Count: len(cases)})
}

func (h *SOSHandler) GetMySOS(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	cases, err := h.sosService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "SOS history retrieved successfully", cases, &utils.Meta{Count: len(cases)})
}

// GetSOS returns a case with its read receipts. A volunteer viewing it
// records their own receipt.
func (h *SOSHandler) GetSOS(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	sosID, ok := paramObjectID(c, "id", "SOS ID")
	if !ok {
		return
	}

	detail, err := h.sosService.GetByID(c.Request.Context(), sosID, userID, role)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS retrieved successfully", detail)
}

func (h *SOSHandler) MarkSOSRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	sosID, ok := paramObjectID(c, "id", "SOS ID")
	if !ok {
		return
	}

	updated, err := h.sosService.MarkRead(c.Request.Context(), sosID, userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS marked as read", gin.H{"updated": updated})
}

func (h *SOSHandler) AcceptSOS(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	sosID, ok := paramObjectID(c, "id", "SOS ID")
	if !ok {
		return
	}

	result, err := h.sosService.Accept(c.Request.Context(), sosID, userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS accepted successfully", result)
}

func (h *SOSHandler) ResolveSOS(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	sosID, ok := paramObjectID(c, "id", "SOS ID")
	if !ok {
		return
	}

	sos, err := h.sosService.Resolve(c.Request.Context(), sosID, userID, role)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS resolved successfully", sos)
}
