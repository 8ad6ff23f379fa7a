package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatReadResult struct {
	ChatID              primitive.ObjectID   `json:"chat_id"`
	MessageIDs          []primitive.ObjectID `json:"message_ids"`
	NotificationsMarked int64                `json:"notifications_marked"`
	ReadAt              time.Time            `json:"read_at"`
}

type ChatService interface {
	// Rooms
	GetOrCreate(ctx context.Context, requesterID primitive.ObjectID, participantIDs []primitive.ObjectID, relatedSOS *primitive.ObjectID) (*models.Chat, bool, error)
	GetOrCreateSOSChat(ctx context.Context, sosID, creatorID, volunteerID primitive.ObjectID, seedMessage string) (*models.Chat, bool, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error)
	GetChat(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error)

	// Messages
	Send(ctx context.Context, chatID, senderID primitive.ObjectID, content string) (*models.Message, error)
	GetMessages(ctx context.Context, chatID, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error)

	// Read receipts
	MarkRead(ctx context.Context, chatID, readerID primitive.ObjectID) (*ChatReadResult, error)
	MarkMessageRead(ctx context.Context, chatID, messageID, readerID primitive.ObjectID) error
}

type chatService struct {
	chatRepo      interfaces.ChatRepository
	messageRepo   interfaces.MessageRepository
	userRepo      interfaces.UserRepository
	sosRepo       interfaces.SOSRepository
	notifications NotificationService
	presence      Presence
	publisher     events.Publisher
	logger        *logger.Logger
}

func NewChatService(
	chatRepo interfaces.ChatRepository,
	messageRepo interfaces.MessageRepository,
	userRepo interfaces.UserRepository,
	sosRepo interfaces.SOSRepository,
	notifications NotificationService,
	presence Presence,
	publisher events.Publisher,
	log *logger.Logger,
) ChatService {
	return &chatService{
		chatRepo:      chatRepo,
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		sosRepo:       sosRepo,
		notifications: notifications,
		presence:      presence,
		publisher:     publisher,
		logger:        log,
	}
}

func (s *chatService) GetOrCreate(ctx context.Context, requesterID primitive.ObjectID, participantIDs []primitive.ObjectID, relatedSOS *primitive.ObjectID) (*models.Chat, bool, error) {
	participants := models.UniqueParticipants(append([]primitive.ObjectID{requesterID}, participantIDs...))
	if len(participants) < 2 {
		return nil, false, Validation("A chat needs at least two participants")
	}

	users, err := s.userRepo.GetByIDs(ctx, participants)
	if err != nil {
		return nil, false, Internal("load participants", err)
	}
	if len(users) != len(participants) {
		return nil, false, NotFound("User not found")
	}

	if relatedSOS != nil {
		if _, err := s.sosRepo.GetByID(ctx, *relatedSOS); err != nil {
			return nil, false, lookupError(err, "get sos", "SOS not found")
		}
	}

	return s.upsertRoom(ctx, participants, relatedSOS, nil)
}

// GetOrCreateSOSChat reuses any room for the case that already includes both
// the creator and the volunteer, even one with extra members. Otherwise it
// opens the pair room. The seed message is written only by the call that
// created the room.
func (s *chatService) GetOrCreateSOSChat(ctx context.Context, sosID, creatorID, volunteerID primitive.ObjectID, seedMessage string) (*models.Chat, bool, error) {
	existing, err := s.chatRepo.FindSOSRoom(ctx, sosID, []primitive.ObjectID{creatorID, volunteerID})
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, interfaces.ErrNotFound):
		return nil, false, Internal("find sos chat", err)
	}

	var seed *models.LastMessage
	if seedMessage != "" {
		seed = &models.LastMessage{Seq: 1, Content: seedMessage, SenderID: volunteerID, Timestamp: time.Now()}
	}

	return s.upsertRoom(ctx, []primitive.ObjectID{creatorID, volunteerID}, &sosID, seed)
}

func (s *chatService) upsertRoom(ctx context.Context, participants []primitive.ObjectID, relatedSOS *primitive.ObjectID, seed *models.LastMessage) (*models.Chat, bool, error) {
	now := time.Now()
	chat := &models.Chat{
		Participants:   participants,
		RelatedSOS:     relatedSOS,
		ParticipantKey: models.ChatParticipantKey(participants, relatedSOS),
		LastMessage:    seed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if seed != nil {
		chat.MessageCount = 1
	}

	stored, created, err := s.chatRepo.GetOrCreate(ctx, chat)
	if err != nil {
		return nil, false, Internal("get or create chat", err)
	}

	if created && seed != nil {
		msg := &models.Message{
			ChatID:    stored.ID,
			Seq:       1,
			SenderID:  seed.SenderID,
			Content:   seed.Content,
			ReadBy:    []models.ReadReceipt{{UserID: seed.SenderID, ReadAt: seed.Timestamp}},
			Timestamp: seed.Timestamp,
		}
		if err := s.messageRepo.Create(ctx, msg); err != nil {
			s.logger.WithChatID(stored.ID).WithError(err).Error("Failed to store seed message")
		}
	}

	if created {
		s.logger.WithChatID(stored.ID).WithField("participants", len(participants)).Info("Chat room created")
	}
	return stored, created, nil
}

func (s *chatService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	chats, err := s.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, Internal("list chats", err)
	}
	return chats, nil
}

func (s *chatService) GetChat(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, lookupError(err, "get chat", "Chat not found")
	}
	if !chat.IsParticipant(requesterID) {
		return nil, Forbidden("You are not a participant of this chat")
	}
	return chat, nil
}

func (s *chatService) Send(ctx context.Context, chatID, senderID primitive.ObjectID, content string) (*models.Message, error) {
	content = utils.NormalizeText(content)
	if content == "" {
		return nil, Validation("Message content is required")
	}
	if utf8.RuneCountInString(content) > utils.MaxMessageLength {
		return nil, Validation(fmt.Sprintf("Message exceeds %d characters", utils.MaxMessageLength))
	}

	chat, err := s.GetChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, lookupError(err, "get sender", "Sender not found")
	}

	updated, err := s.chatRepo.ReserveSeq(ctx, chat.ID, senderID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, Forbidden("You are not a participant of this chat")
		}
		return nil, Internal("reserve message", err)
	}

	now := time.Now()
	msg := &models.Message{
		ChatID:    chat.ID,
		Seq:       updated.MessageCount,
		SenderID:  senderID,
		Content:   content,
		ReadBy:    []models.ReadReceipt{{UserID: senderID, ReadAt: now}},
		Timestamp: now,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		if relErr := s.chatRepo.ReleaseSeq(ctx, chat.ID, msg.Seq); relErr != nil {
			s.logger.WithChatID(chat.ID).WithError(relErr).Warn("Failed to release message sequence")
		}
		return nil, Internal("create message", err)
	}

	// The room summary follows the stored message.
	if err := s.chatRepo.SetLastMessage(ctx, chat.ID, models.LastMessage{
		Seq:       msg.Seq,
		Content:   content,
		SenderID:  senderID,
		Timestamp: now,
	}); err != nil {
		s.logger.WithChatID(chat.ID).WithError(err).Warn("Failed to update last message")
	}

	for _, recipientID := range updated.OtherParticipants(senderID) {
		_, err := s.notifications.Notify(ctx, &NotifyRequest{
			RecipientID: recipientID,
			Type:        models.NotificationTypeChat,
			Title:       "New Message",
			Message:     fmt.Sprintf("%s sent you a message", sender.Name),
			Related:     models.RelatedToChat(chat.ID),
			Metadata: map[string]interface{}{
				"senderId":       senderID,
				"senderName":     sender.Name,
				"messagePreview": utils.Preview(content, utils.MessagePreviewLength),
			},
			Event: websocket.EventNewMessage,
			Payload: map[string]interface{}{
				"chatId":  chat.ID,
				"message": msg,
			},
		})
		if err != nil {
			s.logger.WithChatID(chat.ID).WithUserID(recipientID).WithError(err).Warn("Failed to notify chat participant")
		}
	}

	s.publish(ctx, events.ChatMessage, map[string]interface{}{
		"chat_id":   chat.ID,
		"message":   msg.ID,
		"seq":       msg.Seq,
		"sender_id": senderID,
	})
	return msg, nil
}

func (s *chatService) GetMessages(ctx context.Context, chatID, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	if _, err := s.GetChat(ctx, chatID, requesterID); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = utils.NewPaginationParams(1, utils.DefaultPageSize)
	}

	messages, total, err := s.messageRepo.ListByChat(ctx, chatID, params)
	if err != nil {
		return nil, 0, Internal("list messages", err)
	}
	return messages, total, nil
}

// MarkRead records a receipt on every message the reader has not read yet and
// clears their CHAT notifications for the room. Senders get one
// messageReadReceipt listing their newly read messages.
func (s *chatService) MarkRead(ctx context.Context, chatID, readerID primitive.ObjectID) (*ChatReadResult, error) {
	chat, err := s.GetChat(ctx, chatID, readerID)
	if err != nil {
		return nil, err
	}

	unread, err := s.messageRepo.ListUnreadBy(ctx, chat.ID, readerID)
	if err != nil {
		return nil, Internal("list unread messages", err)
	}

	now := time.Now()
	result := &ChatReadResult{ChatID: chat.ID, MessageIDs: []primitive.ObjectID{}, ReadAt: now}
	bySender := make(map[primitive.ObjectID][]primitive.ObjectID)

	for _, msg := range unread {
		_, err := s.messageRepo.AddReadReceipt(ctx, chat.ID, msg.ID, models.ReadReceipt{UserID: readerID, ReadAt: now})
		if errors.Is(err, interfaces.ErrNotFound) {
			// Already recorded by a concurrent call.
			continue
		}
		if err != nil {
			return nil, Internal("add read receipt", err)
		}
		result.MessageIDs = append(result.MessageIDs, msg.ID)
		if msg.SenderID != readerID {
			bySender[msg.SenderID] = append(bySender[msg.SenderID], msg.ID)
		}
	}

	marked, err := s.notifications.MarkRelatedRead(ctx, readerID, models.RelatedToChat(chat.ID), models.NotificationTypeChat)
	if err != nil {
		s.logger.WithChatID(chat.ID).WithError(err).Warn("Failed to mark chat notifications read")
	}
	result.NotificationsMarked = marked

	for senderID, ids := range bySender {
		s.sendReadReceipt(senderID, chat.ID, ids, readerID, now)
	}
	return result, nil
}

func (s *chatService) MarkMessageRead(ctx context.Context, chatID, messageID, readerID primitive.ObjectID) error {
	chat, err := s.GetChat(ctx, chatID, readerID)
	if err != nil {
		return err
	}

	now := time.Now()
	msg, err := s.messageRepo.AddReadReceipt(ctx, chat.ID, messageID, models.ReadReceipt{UserID: readerID, ReadAt: now})
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	if err != nil {
		return Internal("add read receipt", err)
	}

	if msg.SenderID != readerID {
		s.sendReadReceipt(msg.SenderID, chat.ID, []primitive.ObjectID{msg.ID}, readerID, now)
	}
	return nil
}

func (s *chatService) sendReadReceipt(senderID, chatID primitive.ObjectID, messageIDs []primitive.ObjectID, readerID primitive.ObjectID, at time.Time) {
	delivered := s.presence.SendToUser(senderID, websocket.EventMessageReadReceipt, map[string]interface{}{
		"chatId":     chatID,
		"messageIds": messageIDs,
		"readBy":     readerID,
		"readAt":     at,
	})
	observability.IncRealtimeEvent(websocket.EventMessageReadReceipt, delivered)
}

func (s *chatService) publish(ctx context.Context, routingKey string, payload interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, events.NewEvent(routingKey, payload)); err != nil {
		observability.IncEventPublishError()
		s.logger.WithError(err).WithField("routing_key", routingKey).Warn("Failed to publish event")
	}
}
