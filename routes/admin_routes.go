package routes

import (
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes sets up case oversight, reporting and user moderation for admins
func SetupAdminRoutes(r *gin.RouterGroup, adminHandler *handlers.AdminHandler, jwtSecret string) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())

	sos := admin.Group("/sos")
	{
		sos.GET("", adminHandler.ListSOS)
		sos.GET("/stats", adminHandler.GetSOSStats)
		sos.GET("/report", adminHandler.GetSafetyReport)
		sos.DELETE("/:id", adminHandler.DeleteSOS)
	}

	users := admin.Group("/users")
	{
		users.GET("/blacklisted", adminHandler.ListBlacklisted)
		users.PUT("/:id/approve", adminHandler.ApproveUser)
		users.DELETE("/:id/reject", adminHandler.RejectUser)
		users.PUT("/:id/blacklist", adminHandler.BlacklistUser)
		users.DELETE("/:id/blacklist", adminHandler.RemoveFromBlacklist)
	}
}
