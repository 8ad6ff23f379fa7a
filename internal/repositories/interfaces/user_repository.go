package interfaces

import (
	"context"

	"rescuelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)

	// Volunteer eligibility
	FindEligibleVolunteers(ctx context.Context) ([]*models.User, error)
	CountEligibleVolunteers(ctx context.Context) (int64, error)

	// Moderation
	SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (*models.User, error)
	SetBlacklisted(ctx context.Context, id primitive.ObjectID, blacklisted bool) (*models.User, error)
	ListBlacklisted(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Connection projection
	SetSocketID(ctx context.Context, userID primitive.ObjectID, socketID string) error
	ClearSocketID(ctx context.Context, userID primitive.ObjectID, socketID string) error
}
