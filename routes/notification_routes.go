package routes

import (
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupNotificationRoutes(r *gin.RouterGroup, notificationHandler *handlers.NotificationHandler, jwtSecret string) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthRequired(jwtSecret))
	{
		notifications.GET("", notificationHandler.GetNotifications)
		notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
		notifications.PUT("/read-all", notificationHandler.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", notificationHandler.MarkNotificationRead)
	}
}
