package handlers

import (
	"context"
	"strconv"
	"time"

	"rescuelink/internal/middleware"
	"rescuelink/internal/models"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const reportDateLayout = "2006-01-02"

type AdminHandler struct {
	adminService services.AdminService
	logger       *logger.Logger
}

func NewAdminHandler(adminService services.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       log,
	}
}

// ListSOS returns every case, optionally filtered by ?is_resolved and ?is_contact
func (h *AdminHandler) ListSOS(c *gin.Context) {
	var filter models.SOSFilter
	for param, target := range map[string]**bool{
		"is_resolved": &filter.IsResolved,
		"is_contact":  &filter.IsContact,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid "+param+" filter")
			return
		}
		*target = &v
	}

	cases, err := h.adminService.ListSOS(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "SOS retrieved successfully", cases, &utils.Meta{Count: len(cases)})
}

func (h *AdminHandler) GetSOSStats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS statistics retrieved successfully", stats)
}

func (h *AdminHandler) DeleteSOS(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	sosID, ok := paramObjectID(c, "id", "SOS ID")
	if !ok {
		return
	}

	if err := h.adminService.DeleteSOS(c.Request.Context(), sosID, adminID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "SOS deleted successfully", nil)
}

// GetSafetyReport lists cases between ?start and ?end (YYYY-MM-DD, inclusive)
func (h *AdminHandler) GetSafetyReport(c *gin.Context) {
	start, ok := queryDate(c, "start")
	if !ok {
		return
	}
	end, ok := queryDate(c, "end")
	if !ok {
		return
	}

	rows, err := h.adminService.SafetyReport(c.Request.Context(), start, end)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Safety report generated successfully", rows, &utils.Meta{Count: len(rows)})
}

func (h *AdminHandler) ApproveUser(c *gin.Context) {
	h.moderate(c, "User approved successfully", h.adminService.ApproveUser)
}

func (h *AdminHandler) BlacklistUser(c *gin.Context) {
	h.moderate(c, "User blacklisted successfully", h.adminService.Blacklist)
}

func (h *AdminHandler) RemoveFromBlacklist(c *gin.Context) {
	h.moderate(c, "User removed from blacklist successfully", h.adminService.Unblacklist)
}

// RejectUser notifies the applicant and deletes the account
func (h *AdminHandler) RejectUser(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	userID, ok := paramObjectID(c, "id", "user ID")
	if !ok {
		return
	}

	if err := h.adminService.RejectUser(c.Request.Context(), userID, adminID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "User rejected and deleted successfully", nil)
}

func (h *AdminHandler) ListBlacklisted(c *gin.Context) {
	users, err := h.adminService.ListBlacklisted(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Blacklisted users retrieved successfully", users, &utils.Meta{Count: len(users)})
}

type moderationFunc func(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error)

func (h *AdminHandler) moderate(c *gin.Context, message string, action moderationFunc) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	userID, ok := paramObjectID(c, "id", "user ID")
	if !ok {
		return
	}

	user, err := action(c.Request.Context(), userID, adminID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, message, user)
}

func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(reportDateLayout, raw)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name+" date, expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}
