package services

import (
	"context"
	"fmt"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminService interface {
	ListSOS(ctx context.Context, filter models.SOSFilter) ([]*models.SOS, error)
	Stats(ctx context.Context) (*models.SOSStats, error)
	DeleteSOS(ctx context.Context, sosID, adminID primitive.ObjectID) error
	SafetyReport(ctx context.Context, start, end *time.Time) ([]models.SafetyReportRow, error)

	// User moderation
	ApproveUser(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error)
	RejectUser(ctx context.Context, userID, adminID primitive.ObjectID) error
	Blacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error)
	Unblacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error)
	ListBlacklisted(ctx context.Context) ([]*models.User, error)
}

type adminService struct {
	sosRepo             interfaces.SOSRepository
	userRepo            interfaces.UserRepository
	notificationService NotificationService
	publisher           events.Publisher
	logger              *logger.Logger
}

func NewAdminService(sosRepo interfaces.SOSRepository, userRepo interfaces.UserRepository, notificationService NotificationService, publisher events.Publisher, log *logger.Logger) AdminService {
	return &adminService{
		sosRepo:             sosRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		publisher:           publisher,
		logger:              log,
	}
}

func (s *adminService) ListSOS(ctx context.Context, filter models.SOSFilter) ([]*models.SOS, error) {
	cases, err := s.sosRepo.List(ctx, filter)
	if err != nil {
		return nil, Internal("list sos", err)
	}
	return cases, nil
}

func (s *adminService) Stats(ctx context.Context) (*models.SOSStats, error) {
	total, err := s.sosRepo.Count(ctx, models.SOSFilter{})
	if err != nil {
		return nil, Internal("count sos", err)
	}

	resolved := true
	resolvedCount, err := s.sosRepo.Count(ctx, models.SOSFilter{IsResolved: &resolved})
	if err != nil {
		return nil, Internal("count resolved sos", err)
	}

	volunteers, err := s.userRepo.CountEligibleVolunteers(ctx)
	if err != nil {
		return nil, Internal("count volunteers", err)
	}

	return &models.SOSStats{
		Total:            total,
		Resolved:         resolvedCount,
		Ongoing:          total - resolvedCount,
		ActiveVolunteers: volunteers,
	}, nil
}

// DeleteSOS removes the case only. Chats and notifications that point at it
// are left in place.
func (s *adminService) DeleteSOS(ctx context.Context, sosID, adminID primitive.ObjectID) error {
	if err := s.sosRepo.Delete(ctx, sosID); err != nil {
		return lookupError(err, "delete sos", "SOS not found")
	}

	s.publish(ctx, events.SOSDeleted, map[string]interface{}{
		"sos_id":     sosID,
		"deleted_by": adminID,
	})
	s.logger.LogUserAction(adminID, "delete_sos", map[string]interface{}{"sos_id": sosID.Hex()})
	return nil
}

// ApproveUser makes the account usable and, for volunteers, eligible for
// fan-out. The user is told by email regardless of presence.
func (s *adminService) ApproveUser(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.SetApproved(ctx, userID, true)
	if err != nil {
		return nil, lookupError(err, "approve user", "User not found")
	}

	s.notifyAccountChange(ctx, user, "Account Approved",
		"Your account has been approved by an administrator. You can now use all features of the application.")
	s.publish(ctx, events.UserApproved, map[string]interface{}{"user_id": userID, "approved_by": adminID})
	s.logger.LogUserAction(adminID, "approve_user", map[string]interface{}{"user_id": userID.Hex()})
	return user, nil
}

// RejectUser emails the applicant and then deletes the account.
func (s *adminService) RejectUser(ctx context.Context, userID, adminID primitive.ObjectID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return lookupError(err, "load user", "User not found")
	}

	s.notifyAccountChange(ctx, user, "Account Registration Rejected",
		"Your account registration request has been rejected by our administrators. If you believe this is an error, please contact support.")

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return lookupError(err, "delete user", "User not found")
	}

	s.publish(ctx, events.UserRejected, map[string]interface{}{"user_id": userID, "rejected_by": adminID})
	s.logger.LogUserAction(adminID, "reject_user", map[string]interface{}{"user_id": userID.Hex()})
	return nil
}

func (s *adminService) Blacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	if userID == adminID {
		return nil, Validation("Administrators cannot blacklist themselves")
	}
	user, err := s.userRepo.SetBlacklisted(ctx, userID, true)
	if err != nil {
		return nil, lookupError(err, "blacklist user", "User not found")
	}

	s.publish(ctx, events.UserBlacklisted, map[string]interface{}{"user_id": userID, "blacklisted_by": adminID})
	s.logger.LogUserAction(adminID, "blacklist_user", map[string]interface{}{"user_id": userID.Hex()})
	return user, nil
}

func (s *adminService) Unblacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	current, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "load user", "User not found")
	}
	if !current.Blacklisted {
		return nil, InvalidState("User is not blacklisted")
	}

	user, err := s.userRepo.SetBlacklisted(ctx, userID, false)
	if err != nil {
		return nil, lookupError(err, "unblacklist user", "User not found")
	}

	s.publish(ctx, events.UserUnblacklisted, map[string]interface{}{"user_id": userID, "restored_by": adminID})
	s.logger.LogUserAction(adminID, "unblacklist_user", map[string]interface{}{"user_id": userID.Hex()})
	return user, nil
}

func (s *adminService) ListBlacklisted(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.ListBlacklisted(ctx)
	if err != nil {
		return nil, Internal("list blacklisted users", err)
	}
	return users, nil
}

// notifyAccountChange records a SYSTEM notification and emails it. A failure
// is logged and does not undo the moderation action.
func (s *adminService) notifyAccountChange(ctx context.Context, user *models.User, title, body string) {
	_, err := s.notificationService.Notify(ctx, &NotifyRequest{
		RecipientID:  user.ID,
		Recipient:    user,
		Type:         models.NotificationTypeSystem,
		Title:        title,
		Message:      body,
		Related:      models.RelatedToUser(user.ID),
		Email:        EmailAlways,
		EmailSubject: title,
		EmailText:    fmt.Sprintf("Hello %s, %s", user.Name, body),
	})
	if err != nil {
		s.logger.WithError(err).WithUserID(user.ID).Warn("Failed to send account notification")
	}
}

func (s *adminService) publish(ctx context.Context, routingKey string, payload map[string]interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, events.NewEvent(routingKey, payload)); err != nil {
		observability.IncEventPublishError()
		s.logger.WithError(err).WithField("routing_key", routingKey).Warn("Failed to publish event")
	}
}

// SafetyReport lists cases created in [start, end]. end covers the whole day.
func (s *adminService) SafetyReport(ctx context.Context, start, end *time.Time) ([]models.SafetyReportRow, error) {
	filter := models.SOSFilter{CreatedGTE: start}
	if end != nil {
		eod := utils.EndOfDay(*end)
		filter.CreatedLTE = &eod
	}
	if start != nil && filter.CreatedLTE != nil && start.After(*filter.CreatedLTE) {
		return nil, Validation("Start date must not be after end date")
	}

	cases, err := s.sosRepo.List(ctx, filter)
	if err != nil {
		return nil, Internal("list sos for report", err)
	}

	ids := make([]primitive.ObjectID, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, models.UniqueParticipants(ids))
	if err != nil {
		return nil, Internal("load report users", err)
	}

	rows := make([]models.SafetyReportRow, 0, len(cases))
	for _, c := range cases {
		row := models.SafetyReportRow{
			UserName:    "Unknown",
			Message:     c.Message,
			Coordinates: c.Coordinates,
			IsResolved:  c.IsResolved,
			CreatedAt:   c.CreatedAt,
			ResolvedAt:  c.ResolvedAt,
		}
		if u, ok := users[c.UserID]; ok {
			row.UserName = u.Name
			row.Email = u.Email
		}
		rows = append(rows, row)
	}
	return rows, nil
}
