package interfaces

import (
	"context"
	"time"

	"rescuelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSRepository interface {
	Create(ctx context.Context, sos *models.SOS) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOS, error)
	List(ctx context.Context, filter models.SOSFilter) ([]*models.SOS, error)
	Count(ctx context.Context, filter models.SOSFilter) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AddAcceptance appends volunteerID to accepted_by in one atomic update.
	// Returns ErrNotFound, ErrAlreadyResolved or ErrAlreadyAccepted when the
	// update does not apply.
	AddAcceptance(ctx context.Context, id, volunteerID primitive.ObjectID) (*models.SOS, error)
	// MarkResolved flips is_resolved once. Returns ErrNotFound or ErrAlreadyResolved.
	MarkResolved(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.SOS, error)
}
