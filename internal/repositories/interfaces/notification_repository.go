package interfaces

import (
	"context"
	"time"

	"rescuelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)

	// Recipient views
	ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID primitive.ObjectID) (int64, error)

	// Read transitions; each returns how many documents went from unread to read.
	MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID primitive.ObjectID, at time.Time) (int64, error)
	MarkReadByRelated(ctx context.Context, recipientID primitive.ObjectID, related models.RelatedRef, notificationType models.NotificationType, at time.Time) (int64, error)

	// ListByRelated returns every notification of the given type pointing at related.
	ListByRelated(ctx context.Context, related models.RelatedRef, notificationType models.NotificationType) ([]*models.Notification, error)
}
