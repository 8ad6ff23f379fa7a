package mongodb

import (
	"context"
	"fmt"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type chatRepository struct {
	collection *mongo.Collection
}

func NewChatRepository(db *mongo.Database) interfaces.ChatRepository {
	return &chatRepository{
		collection: db.Collection(database.CollectionChats),
	}
}

func (r *chatRepository) GetOrCreate(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	now := time.Now()
	newID := primitive.NewObjectID()

	onInsert := bson.M{
		"_id":           newID,
		"participants":  chat.Participants,
		"message_count": chat.MessageCount,
		"created_at":    now,
		"updated_at":    now,
	}
	if chat.RelatedSOS != nil {
		onInsert["related_sos"] = *chat.RelatedSOS
	}
	if chat.LastMessage != nil {
		onInsert["last_message"] = chat.LastMessage
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.Chat
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"participant_key": chat.ParticipantKey},
		bson.M{"$setOnInsert": onInsert},
		opts,
	).Decode(&stored)
	if err != nil {
		// Two upserts racing on the unique key: the loser re-reads the winner.
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := r.getByKey(ctx, chat.ParticipantKey)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to get or create chat: %w", err)
	}

	return &stored, stored.ID == newID, nil
}

func (r *chatRepository) getByKey(ctx context.Context, key string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.collection.FindOne(ctx, bson.M{"participant_key": key}).Decode(&chat); err != nil {
		return nil, notFoundOr(err, "get chat")
	}
	return &chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		return nil, notFoundOr(err, "get chat")
	}
	return &chat, nil
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return decodeAll[models.Chat](ctx, cursor, "chat")
}

func (r *chatRepository) FindSOSRoom(ctx context.Context, sosID primitive.ObjectID, members []primitive.ObjectID) (*models.Chat, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var chat models.Chat
	err := r.collection.FindOne(ctx,
		bson.M{"related_sos": sosID, "participants": bson.M{"$all": members}},
		opts,
	).Decode(&chat)
	if err != nil {
		return nil, notFoundOr(err, "find sos chat")
	}
	return &chat, nil
}

func (r *chatRepository) ReserveSeq(ctx context.Context, chatID, senderID primitive.ObjectID) (*models.Chat, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var chat models.Chat
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": chatID, "participants": senderID},
		bson.M{"$inc": bson.M{"message_count": 1}},
		opts,
	).Decode(&chat)
	if err != nil {
		return nil, notFoundOr(err, "reserve chat message")
	}
	return &chat, nil
}

func (r *chatRepository) ReleaseSeq(ctx context.Context, chatID primitive.ObjectID, seq int64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": chatID, "message_count": seq},
		bson.M{"$inc": bson.M{"message_count": -1}},
	)
	if err != nil {
		return fmt.Errorf("failed to release chat message: %w", err)
	}
	return nil
}

func (r *chatRepository) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, last models.LastMessage) error {
	filter := bson.M{
		"_id": chatID,
		"$or": bson.A{
			bson.M{"last_message": bson.M{"$exists": false}},
			bson.M{"last_message.seq": bson.M{"$lt": last.Seq}},
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"last_message": last, "updated_at": last.Timestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to set last message: %w", err)
	}
	return nil
}
