package routes

import (
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSOSRoutes sets up routes for raising and responding to SOS cases
func SetupSOSRoutes(r *gin.RouterGroup, sosHandler *handlers.SOSHandler, jwtSecret string) {
	sos := r.Group("/sos")
	sos.Use(middleware.AuthRequired(jwtSecret))
	{
		sos.POST("", sosHandler.RaiseSOS)
		sos.GET("/active", sosHandler.GetActiveSOS)
		sos.GET("/mine", sosHandler.GetMySOS)
		sos.GET("/:id", sosHandler.GetSOS)
		sos.POST("/:id/resolve", sosHandler.ResolveSOS)

		// Volunteer actions
		sos.PUT("/:id/read", middleware.VolunteerRequired(), sosHandler.MarkSOSRead)
		sos.POST("/:id/accept", middleware.VolunteerRequired(), sosHandler.AcceptSOS)
	}
}
