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

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection(database.CollectionUsers),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFoundOr(err, "get user")
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	users, err := decodeAll[models.User](ctx, cursor, "user")
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func eligibleVolunteerFilter() bson.M {
	return bson.M{
		"role":             models.UserRoleVolunteer,
		"is_verified":      true,
		"is_approved":      true,
		"volunteer_status": models.VolunteerStatusActive,
		"blacklisted":      bson.M{"$ne": true},
	}
}

func (r *userRepository) FindEligibleVolunteers(ctx context.Context) ([]*models.User, error) {
	cursor, err := r.collection.Find(ctx, eligibleVolunteerFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to find eligible volunteers: %w", err)
	}
	return decodeAll[models.User](ctx, cursor, "volunteer")
}

func (r *userRepository) CountEligibleVolunteers(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, eligibleVolunteerFilter())
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible volunteers: %w", err)
	}
	return count, nil
}

func (r *userRepository) SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (*models.User, error) {
	return r.setFlag(ctx, id, "is_approved", approved)
}

func (r *userRepository) SetBlacklisted(ctx context.Context, id primitive.ObjectID, blacklisted bool) (*models.User, error) {
	return r.setFlag(ctx, id, "blacklisted", blacklisted)
}

func (r *userRepository) setFlag(ctx context.Context, id primitive.ObjectID, field string, value bool) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{field: value, "updated_at": time.Now()}}

	var user models.User
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, notFoundOr(err, "update "+field)
	}
	return &user, nil
}

func (r *userRepository) ListBlacklisted(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"blacklisted": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blacklisted users: %w", err)
	}
	return decodeAll[models.User](ctx, cursor, "user")
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetSocketID(ctx context.Context, userID primitive.ObjectID, socketID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"socket_id": socketID, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set socket id: %w", err)
	}
	return nil
}

// ClearSocketID unsets socket_id only while it still names socketID, so a
// late disconnect cannot erase a newer connection's binding.
func (r *userRepository) ClearSocketID(ctx context.Context, userID primitive.ObjectID, socketID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "socket_id": socketID},
		bson.M{"$unset": bson.M{"socket_id": ""}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear socket id: %w", err)
	}
	return nil
}
