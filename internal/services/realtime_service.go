package services

import (
	"context"
	"encoding/json"
	"fmt"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RealtimeService handles client socket events and mirrors hub presence
// into the users collection.
type RealtimeService struct {
	sos      SOSService
	chats    ChatService
	userRepo interfaces.UserRepository
	logger   *logger.Logger
}

var (
	_ websocket.EventHandler     = (*RealtimeService)(nil)
	_ websocket.PresenceListener = (*RealtimeService)(nil)
)

func NewRealtimeService(sos SOSService, chats ChatService, userRepo interfaces.UserRepository, log *logger.Logger) *RealtimeService {
	return &RealtimeService{
		sos:      sos,
		chats:    chats,
		userRepo: userRepo,
		logger:   log,
	}
}

func (s *RealtimeService) HandleClientEvent(ctx context.Context, userID primitive.ObjectID, eventType string, data []byte) error {
	switch eventType {
	case websocket.EventVolunteerLocationUpdate:
		return s.handleLocationUpdate(ctx, userID, data)
	case websocket.EventMessageRead:
		return s.handleMessageRead(ctx, userID, data)
	default:
		return Validation(fmt.Sprintf("Unknown event %q", eventType))
	}
}

func (s *RealtimeService) handleLocationUpdate(ctx context.Context, userID primitive.ObjectID, data []byte) error {
	var update models.LocationUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return Validation("Invalid location payload")
	}

	sosID, err := primitive.ObjectIDFromHex(update.SOSID)
	if err != nil {
		return Validation("Invalid case id")
	}
	// The bound identity is authoritative; a mismatched volunteerId is rejected.
	if update.VolunteerID != "" && update.VolunteerID != userID.Hex() {
		return Forbidden("Volunteer id does not match the connection")
	}

	return s.sos.RelayVolunteerLocation(ctx, userID, sosID, update.Coordinates)
}

func (s *RealtimeService) handleMessageRead(ctx context.Context, userID primitive.ObjectID, data []byte) error {
	var event models.MessageReadEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return Validation("Invalid read payload")
	}

	chatID, err := primitive.ObjectIDFromHex(event.ChatID)
	if err != nil {
		return Validation("Invalid chat id")
	}

	if event.MessageID == "" {
		_, err := s.chats.MarkRead(ctx, chatID, userID)
		return err
	}

	messageID, err := primitive.ObjectIDFromHex(event.MessageID)
	if err != nil {
		return Validation("Invalid message id")
	}
	return s.chats.MarkMessageRead(ctx, chatID, messageID, userID)
}

func (s *RealtimeService) OnBind(ctx context.Context, userID primitive.ObjectID, connID string) {
	if err := s.userRepo.SetSocketID(ctx, userID, connID); err != nil {
		s.logger.WithUserID(userID).WithError(err).Warn("Failed to store socket id")
	}
}

func (s *RealtimeService) OnUnbind(ctx context.Context, userID primitive.ObjectID, connID string) {
	if err := s.userRepo.ClearSocketID(ctx, userID, connID); err != nil {
		s.logger.WithUserID(userID).WithError(err).Warn("Failed to clear socket id")
	}
}
