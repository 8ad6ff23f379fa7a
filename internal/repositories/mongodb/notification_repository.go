package mongodb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationRepository struct {
	collection *mongo.Collection
	cache      interfaces.Cache
}

// NewNotificationRepository keeps unread counts in cache when one is given.
func NewNotificationRepository(db *mongo.Database, cache interfaces.Cache) interfaces.NotificationRepository {
	return &notificationRepository{
		collection: db.Collection(database.CollectionNotifications),
		cache:      cache,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = notification.CreatedAt

	if _, err := r.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	r.invalidateUnreadCountCache(ctx, notification.RecipientID)
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification); err != nil {
		return nil, notFoundOr(err, "get notification")
	}
	return &notification, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]*models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return decodeAll[models.Notification](ctx, cursor, "notification")
}

// CountUnread reads through a count cached under the recipient's current
// generation. Invalidation moves the generation, so a count computed before
// a write and stored after it is never served.
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	var cacheKey string
	if r.cache != nil {
		cacheKey = unreadCountKey(recipientID, r.unreadGeneration(ctx, recipientID))
		var count int64
		if err := r.cache.Get(ctx, cacheKey, &count); err == nil {
			return count, nil
		}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, count, utils.UnreadCountCacheTTL)
	}
	return count, nil
}

func readUpdate(at time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"is_read":    true,
		"read_at":    at,
		"updated_at": at,
	}}
}

func (r *notificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	var notification models.Notification
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_read": false},
		readUpdate(at),
	).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to mark notification read: %w", err)
	}

	r.invalidateUnreadCountCache(ctx, notification.RecipientID)
	return 1, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false},
		readUpdate(at),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	r.invalidateUnreadCountCache(ctx, recipientID)
	return result.ModifiedCount, nil
}

func (r *notificationRepository) MarkReadByRelated(ctx context.Context, recipientID primitive.ObjectID, related models.RelatedRef, notificationType models.NotificationType, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"recipient_id": recipientID,
			"related_id":   related.ID,
			"on_model":     related.Kind,
			"type":         notificationType,
			"is_read":      false,
		},
		readUpdate(at),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark related notifications read: %w", err)
	}

	if result.ModifiedCount > 0 {
		r.invalidateUnreadCountCache(ctx, recipientID)
	}
	return result.ModifiedCount, nil
}

func (r *notificationRepository) ListByRelated(ctx context.Context, related models.RelatedRef, notificationType models.NotificationType) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"related_id": related.ID,
		"on_model":   related.Kind,
		"type":       notificationType,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list related notifications: %w", err)
	}
	return decodeAll[models.Notification](ctx, cursor, "notification")
}

func unreadCountKey(recipientID primitive.ObjectID, generation int64) string {
	return utils.CacheUnreadCountPrefix + recipientID.Hex() + ":" + strconv.FormatInt(generation, 10)
}

func unreadGenerationKey(recipientID primitive.ObjectID) string {
	return utils.CacheUnreadGenerationPrefix + recipientID.Hex()
}

// unreadGeneration is 0 until the recipient's count is first invalidated.
func (r *notificationRepository) unreadGeneration(ctx context.Context, recipientID primitive.ObjectID) int64 {
	var generation int64
	if err := r.cache.Get(ctx, unreadGenerationKey(recipientID), &generation); err != nil {
		return 0
	}
	return generation
}

func (r *notificationRepository) invalidateUnreadCountCache(ctx context.Context, recipientID primitive.ObjectID) {
	if r.cache != nil {
		_ = r.cache.Set(ctx, unreadGenerationKey(recipientID), time.Now().UnixNano(), utils.UnreadGenerationTTL)
	}
}
