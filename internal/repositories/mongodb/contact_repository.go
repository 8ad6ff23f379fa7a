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

type contactRepository struct {
	collection *mongo.Collection
}

func NewContactRepository(db *mongo.Database) interfaces.ContactRepository {
	return &contactRepository{
		collection: db.Collection(database.CollectionContacts),
	}
}

func (r *contactRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.EmergencyContacts, error) {
	var contacts models.EmergencyContacts
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&contacts); err != nil {
		return nil, notFoundOr(err, "get contacts")
	}
	return &contacts, nil
}

func (r *contactRepository) Upsert(ctx context.Context, contacts *models.EmergencyContacts) error {
	contacts.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": contacts.UserID},
		bson.M{
			"$set":         bson.M{"contacts": contacts.Contacts, "updated_at": contacts.UpdatedAt},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contacts: %w", err)
	}
	return nil
}
