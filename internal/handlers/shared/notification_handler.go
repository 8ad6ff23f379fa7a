package handlers

import (
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/pkg/logger"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService services.NotificationService
	logger              *logger.Logger
}

func NewNotificationHandler(notificationService services.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              log,
	}
}

// GetNotifications returns the newest notifications for the caller
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", notifications, &utils.Meta{Count: len(notifications)})
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved successfully", gin.H{"unread": count})
}

func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	notificationID, ok := paramObjectID(c, "id", "notification ID")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(c.Request.Context(), notificationID, userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", notification)
}

func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "All notifications marked as read", gin.H{"updated": updated})
}
