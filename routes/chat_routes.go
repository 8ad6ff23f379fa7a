package routes

import (
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupChatRoutes(r *gin.RouterGroup, chatHandler *handlers.ChatHandler, jwtSecret string) {
	chats := r.Group("/chat")
	chats.Use(middleware.AuthRequired(jwtSecret))
	{
		chats.POST("", chatHandler.GetOrCreateChat)
		chats.GET("", chatHandler.ListChats)
		chats.POST("/send", chatHandler.SendMessage)
		chats.GET("/:id", chatHandler.GetChat)
		chats.GET("/:id/messages", chatHandler.GetMessages)
		chats.PUT("/:id/read", chatHandler.MarkChatRead)
	}
}
