package mongodb

import (
	"context"
	"errors"
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

type sosRepository struct {
	collection *mongo.Collection
}

func NewSOSRepository(db *mongo.Database) interfaces.SOSRepository {
	return &sosRepository{
		collection: db.Collection(database.CollectionSOS),
	}
}

func (r *sosRepository) Create(ctx context.Context, sos *models.SOS) error {
	sos.ID = primitive.NewObjectID()
	sos.CreatedAt = time.Now()
	sos.UpdatedAt = sos.CreatedAt
	if sos.AcceptedBy == nil {
		sos.AcceptedBy = []primitive.ObjectID{}
	}

	if _, err := r.collection.InsertOne(ctx, sos); err != nil {
		return fmt.Errorf("failed to create sos: %w", err)
	}
	return nil
}

func (r *sosRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOS, error) {
	var sos models.SOS
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sos); err != nil {
		return nil, notFoundOr(err, "get sos")
	}
	return &sos, nil
}

func buildSOSFilter(f models.SOSFilter) bson.M {
	filter := bson.M{}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.IsResolved != nil {
		filter["is_resolved"] = *f.IsResolved
	}
	if f.IsContact != nil {
		filter["is_contact"] = *f.IsContact
	}
	if f.CreatedGTE != nil || f.CreatedLTE != nil {
		created := bson.M{}
		if f.CreatedGTE != nil {
			created["$gte"] = *f.CreatedGTE
		}
		if f.CreatedLTE != nil {
			created["$lte"] = *f.CreatedLTE
		}
		filter["created_at"] = created
	}
	return filter
}

func (r *sosRepository) List(ctx context.Context, filter models.SOSFilter) ([]*models.SOS, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, buildSOSFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sos: %w", err)
	}
	return decodeAll[models.SOS](ctx, cursor, "sos")
}

func (r *sosRepository) Count(ctx context.Context, filter models.SOSFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, buildSOSFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count sos: %w", err)
	}
	return count, nil
}

func (r *sosRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete sos: %w", err)
	}
	if result.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *sosRepository) AddAcceptance(ctx context.Context, id, volunteerID primitive.ObjectID) (*models.SOS, error) {
	filter := bson.M{
		"_id":         id,
		"is_resolved": false,
		"accepted_by": bson.M{"$ne": volunteerID},
	}
	update := bson.M{
		"$push": bson.M{"accepted_by": volunteerID},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sos models.SOS
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sos)
	if err == nil {
		return &sos, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to accept sos: %w", err)
	}

	// The conditional update missed; find out which guard failed.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.HasAccepted(volunteerID) {
		return current, interfaces.ErrAlreadyAccepted
	}
	if current.IsResolved {
		return current, interfaces.ErrAlreadyResolved
	}
	return nil, fmt.Errorf("failed to accept sos: conditional update did not apply")
}

func (r *sosRepository) MarkResolved(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.SOS, error) {
	filter := bson.M{"_id": id, "is_resolved": false}
	update := bson.M{"$set": bson.M{
		"is_resolved": true,
		"resolved_at": at,
		"updated_at":  at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sos models.SOS
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sos)
	if err == nil {
		return &sos, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to resolve sos: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, interfaces.ErrAlreadyResolved
}
