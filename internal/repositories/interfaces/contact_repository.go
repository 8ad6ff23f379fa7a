package interfaces

import (
	"context"

	"rescuelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.EmergencyContacts, error)
	Upsert(ctx context.Context, contacts *models.EmergencyContacts) error
}
