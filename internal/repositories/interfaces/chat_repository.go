package interfaces

import (
	"context"

	"rescuelink/internal/models"
	"rescuelink/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepository interface {
	// GetOrCreate upserts on chat.ParticipantKey. created reports whether this
	// call inserted the room; the returned chat is the stored document.
	GetOrCreate(ctx context.Context, chat *models.Chat) (stored *models.Chat, created bool, err error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error)

	// FindSOSRoom returns the oldest room tied to sosID whose participants
	// include every id in members, or ErrNotFound.
	FindSOSRoom(ctx context.Context, sosID primitive.ObjectID, members []primitive.ObjectID) (*models.Chat, error)

	// ReserveSeq bumps message_count for a sender who is a participant. The
	// returned chat's MessageCount is the sequence number of the new message.
	ReserveSeq(ctx context.Context, chatID, senderID primitive.ObjectID) (*models.Chat, error)
	// ReleaseSeq undoes a reservation whose message was never stored, as long
	// as no later reservation has been made.
	ReleaseSeq(ctx context.Context, chatID primitive.ObjectID, seq int64) error
	// SetLastMessage records last unless the room already shows a later one.
	SetLastMessage(ctx context.Context, chatID primitive.ObjectID, last models.LastMessage) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByChat(ctx context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error)
	ListUnreadBy(ctx context.Context, chatID, readerID primitive.ObjectID) ([]*models.Message, error)

	// AddReadReceipt appends receipt to the message unless the reader is already
	// present. Returns the updated message, or ErrNotFound when nothing changed.
	AddReadReceipt(ctx context.Context, chatID, messageID primitive.ObjectID, receipt models.ReadReceipt) (*models.Message, error)
}
