package handlers

import (
	"rescuelink/internal/models"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler struct {
	chatService services.ChatService
	logger      *logger.Logger
}

func NewChatHandler(chatService services.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      log,
	}
}

// GetOrCreateChat finds the room for the caller and participants, creating it
// on first use
func (h *ChatHandler) GetOrCreateChat(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var request models.CreateChatRequest
	if !bindJSON(c, &request) {
		return
	}

	participants := make([]primitive.ObjectID, 0, len(request.ParticipantIDs))
	for _, raw := range request.ParticipantIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid participant ID")
			return
		}
		participants = append(participants, id)
	}

	var relatedSOS *primitive.ObjectID
	if request.SOSID != "" {
		id, err := primitive.ObjectIDFromHex(request.SOSID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid SOS ID")
			return
		}
		relatedSOS = &id
	}

	chat, created, err := h.chatService.GetOrCreate(c.Request.Context(), userID, participants, relatedSOS)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	data := gin.H{"chat": chat, "created": created}
	if created {
		utils.CreatedResponse(c, "Chat created successfully", data)
		return
	}
	utils.SuccessResponse(c, "Chat retrieved successfully", data)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	chats, err := h.chatService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Chats retrieved successfully", chats, &utils.Meta{Count: len(chats)})
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := paramObjectID(c, "id", "chat ID")
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(c.Request.Context(), chatID, userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Chat retrieved successfully", chat)
}

// GetMessages pages through a room's history in send order
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := paramObjectID(c, "id", "chat ID")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	messages, total, err := h.chatService.GetMessages(c.Request.Context(), chatID, userID, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	utils.SuccessResponseWithMeta(c, "Messages retrieved successfully", gin.H{"messages": messages}, meta)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var request models.SendMessageRequest
	if !bindJSON(c, &request) {
		return
	}

	chatID, err := primitive.ObjectIDFromHex(request.ChatID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid chat ID")
		return
	}

	message, err := h.chatService.Send(c.Request.Context(), chatID, userID, request.Content)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "Message sent successfully", message)
}

func (h *ChatHandler) MarkChatRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	chatID, ok := paramObjectID(c, "id", "chat ID")
	if !ok {
		return
	}

	result, err := h.chatService.MarkRead(c.Request.Context(), chatID, userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Messages marked as read", result)
}
