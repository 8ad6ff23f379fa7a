package mongodb

import (
	"context"
	"errors"
	"fmt"

	"rescuelink/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/mongo"
)

// notFoundOr maps mongo.ErrNoDocuments onto interfaces.ErrNotFound and wraps
// anything else with op.
func notFoundOr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return interfaces.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor, op string) ([]*T, error) {
	defer cursor.Close(ctx)

	out := make([]*T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", op, err)
		}
		out = append(out, &item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", op, err)
	}
	return out, nil
}
