package mongodb

import (
	"context"
	"fmt"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) interfaces.MessageRepository {
	return &messageRepository{
		collection: db.Collection(database.CollectionMessages),
	}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	if message.ReadBy == nil {
		message.ReadBy = []models.ReadReceipt{}
	}

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	filter := bson.M{"chat_id": chatID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetSkip(params.GetSkip()).
		SetLimit(params.GetLimit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	messages, err := decodeAll[models.Message](ctx, cursor, "message")
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *messageRepository) ListUnreadBy(ctx context.Context, chatID, readerID primitive.ObjectID) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"chat_id":         chatID,
		"read_by.user_id": bson.M{"$ne": readerID},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}
	return decodeAll[models.Message](ctx, cursor, "message")
}

func (r *messageRepository) AddReadReceipt(ctx context.Context, chatID, messageID primitive.ObjectID, receipt models.ReadReceipt) (*models.Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var message models.Message
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{
			"_id":             messageID,
			"chat_id":         chatID,
			"read_by.user_id": bson.M{"$ne": receipt.UserID},
		},
		bson.M{"$push": bson.M{"read_by": receipt}},
		opts,
	).Decode(&message)
	if err != nil {
		return nil, notFoundOr(err, "add read receipt")
	}
	return &message, nil
}
