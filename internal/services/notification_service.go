package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rescuelink/internal/config"
	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/email"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/push"
	"rescuelink/pkg/sms"
	"rescuelink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// EmailMode decides whether a notification also goes out by email.
type EmailMode int

const (
	// EmailDefault picks the mode from the notification type.
	EmailDefault EmailMode = iota
	EmailAlways
	EmailIfOffline
	EmailNever
)

func defaultEmailMode(t models.NotificationType) EmailMode {
	switch t {
	case models.NotificationTypeSOS, models.NotificationTypeReminder, models.NotificationTypeBroadcast:
		return EmailAlways
	default:
		return EmailIfOffline
	}
}

type NotifyRequest struct {
	RecipientID primitive.ObjectID
	// Recipient skips the user lookup when the caller already has it.
	Recipient *models.User
	Type      models.NotificationType
	Title     string
	Message   string
	Related   models.RelatedRef
	Metadata  map[string]interface{}

	// Event is the realtime event name; empty means no push. The stored
	// notification is added to Payload under "notification".
	Event   string
	Payload map[string]interface{}

	Email        EmailMode
	EmailSubject string
	EmailText    string
}

type FanOutResult struct {
	Notified int `json:"notified"`
	Online   int `json:"online"`
	Failed   int `json:"failed"`
}

type NotificationService interface {
	// Delivery
	FanOutSOS(ctx context.Context, sos *models.SOS, creator *models.User, volunteers []*models.User) FanOutResult
	Notify(ctx context.Context, req *NotifyRequest) (*models.Notification, error)
	AlertContacts(ctx context.Context, sos *models.SOS, creator *models.User, contacts []models.Contact)

	// Recipient views
	List(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, notificationID, requesterID primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)

	// Read receipts
	MarkRelatedRead(ctx context.Context, userID primitive.ObjectID, related models.RelatedRef, notificationType models.NotificationType) (int64, error)
	SOSReadReceipts(ctx context.Context, sos *models.SOS) ([]models.SOSReadReceipt, error)

	// Wait blocks until background email and device deliveries finish.
	Wait()
}

type notificationService struct {
	notificationRepo interfaces.NotificationRepository
	userRepo         interfaces.UserRepository
	presence         Presence
	mailer           email.Mailer
	smsProvider      sms.SMSProvider
	pusher           DevicePusher
	config           *config.Config
	logger           *logger.Logger

	inflight sync.WaitGroup
}

func NewNotificationService(
	cfg *config.Config,
	notificationRepo interfaces.NotificationRepository,
	userRepo interfaces.UserRepository,
	presence Presence,
	mailer email.Mailer,
	smsProvider sms.SMSProvider,
	pusher DevicePusher,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		presence:         presence,
		mailer:           mailer,
		smsProvider:      smsProvider,
		pusher:           pusher,
		config:           cfg,
		logger:           log,
	}
}

func (s *notificationService) FanOutSOS(ctx context.Context, sos *models.SOS, creator *models.User, volunteers []*models.User) FanOutResult {
	var notified, online, failed atomic.Int64

	sosPayload := map[string]interface{}{
		"id":          sos.ID,
		"user":        creator.Summary(),
		"message":     sos.Message,
		"coordinates": sos.Coordinates,
		"address":     sos.Address,
		"created_at":  sos.CreatedAt,
	}

	var g errgroup.Group
	g.SetLimit(s.config.SOS.FanOutConcurrency)

	for _, volunteer := range volunteers {
		volunteer := volunteer
		g.Go(func() error {
			n, delivered, err := s.notify(ctx, &NotifyRequest{
				RecipientID: volunteer.ID,
				Recipient:   volunteer,
				Type:        models.NotificationTypeSOS,
				Title:       "Emergency SOS Alert",
				Message:     fmt.Sprintf("%s has triggered an SOS alert and needs help!", creator.Name),
				Related:     models.RelatedToSOS(sos.ID),
				Metadata: map[string]interface{}{
					"latitude":  sos.Coordinates.Latitude,
					"longitude": sos.Coordinates.Longitude,
					"message":   sos.Message,
				},
				Event:        websocket.EventSOSAlert,
				Payload:      map[string]interface{}{"sos": sosPayload},
				Email:        EmailAlways,
				EmailSubject: "URGENT: SOS Emergency Alert",
				EmailText:    fmt.Sprintf("%s has triggered an emergency SOS alert and needs help. Please check the app immediately.", creator.Name),
			})
			if err != nil {
				failed.Add(1)
				s.logger.WithSOSID(sos.ID).WithUserID(volunteer.ID).WithError(err).Error("Failed to notify volunteer")
				return nil
			}
			if n != nil {
				notified.Add(1)
			}
			if delivered {
				online.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := FanOutResult{
		Notified: int(notified.Load()),
		Online:   int(online.Load()),
		Failed:   int(failed.Load()),
	}
	s.logger.LogSOSEvent(sos.ID, "fan_out", map[string]interface{}{
		"volunteers": len(volunteers),
		"notified":   result.Notified,
		"online":     result.Online,
		"failed":     result.Failed,
	})
	return result
}

func (s *notificationService) Notify(ctx context.Context, req *NotifyRequest) (*models.Notification, error) {
	n, _, err := s.notify(ctx, req)
	return n, err
}

// notify stores the record, then pushes, then schedules email and device
// push. Only the store step can fail the call.
func (s *notificationService) notify(ctx context.Context, req *NotifyRequest) (*models.Notification, bool, error) {
	recipient := req.Recipient
	if recipient == nil {
		user, err := s.userRepo.GetByID(ctx, req.RecipientID)
		if err != nil {
			return nil, false, lookupError(err, "load recipient", "Recipient not found")
		}
		recipient = user
	}

	now := time.Now()
	n := &models.Notification{
		RecipientID: recipient.ID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		RelatedRef:  req.Related,
		Link:        req.Related.DeepLink(),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, false, Internal("create notification", err)
	}
	observability.IncNotification(string(req.Type))

	delivered := false
	if req.Event != "" {
		payload := make(map[string]interface{}, len(req.Payload)+1)
		for k, v := range req.Payload {
			payload[k] = v
		}
		payload["notification"] = n
		delivered = s.presence.SendToUser(recipient.ID, req.Event, payload)
		observability.IncRealtimeEvent(req.Event, delivered)
	}

	mode := req.Email
	if mode == EmailDefault {
		mode = defaultEmailMode(req.Type)
	}
	sendEmail := mode == EmailAlways || (mode == EmailIfOffline && !delivered)
	sendDevice := !delivered

	if sendEmail || sendDevice {
		s.deliverOutOfBand(recipient, n, req, sendEmail, sendDevice)
	}

	return n, delivered, nil
}

// deliverOutOfBand runs email and device push on a detached context so a
// finished HTTP request does not cancel them.
func (s *notificationService) deliverOutOfBand(recipient *models.User, n *models.Notification, req *NotifyRequest, sendEmail, sendDevice bool) {
	wantEmail := sendEmail && recipient.Email != ""
	wantDevice := sendDevice && recipient.DeviceToken != "" && s.pusher != nil && s.pusher.Enabled()
	if !wantEmail && !wantDevice {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.config.SOS.EmailTimeout)
		defer cancel()

		if wantEmail {
			s.sendNotificationEmail(ctx, recipient, n, req)
		}
		if wantDevice {
			s.sendDevicePush(ctx, recipient, n)
		}
	}()
}

func (s *notificationService) sendNotificationEmail(ctx context.Context, recipient *models.User, n *models.Notification, req *NotifyRequest) {
	subject := req.EmailSubject
	if subject == "" {
		subject = n.Title
	}
	text := req.EmailText
	if text == "" {
		text = n.Message
	}

	link := ""
	if n.Link != "" {
		link = s.config.App.BaseURL + n.Link
	}

	msg, err := email.RenderNotification(recipient.Email, email.NotificationView{
		AppName: s.config.App.Name,
		Title:   subject,
		Body:    text,
		Link:    link,
	})
	if err == nil {
		msg.ToName = recipient.Name
		err = s.mailer.Send(ctx, msg)
	}

	observability.IncDelivery("email", err)
	if err != nil {
		s.logger.LogDeliveryFailure("email", recipient.ID.Hex(), err)
	}
}

func (s *notificationService) sendDevicePush(ctx context.Context, recipient *models.User, n *models.Notification) {
	data := map[string]string{
		"notification_id": n.ID.Hex(),
		"type":            string(n.Type),
	}
	if !n.RelatedRef.IsZero() {
		data["related_id"] = n.RelatedRef.ID.Hex()
		data["on_model"] = string(n.RelatedRef.Kind)
	}

	priority := "normal"
	if n.Type == models.NotificationTypeSOS || n.Type == models.NotificationTypeReminder {
		priority = "high"
	}

	_, err := s.pusher.Send(ctx, string(recipient.DevicePlatform), &push.NotificationRequest{
		Token:    recipient.DeviceToken,
		Title:    n.Title,
		Body:     n.Message,
		Data:     data,
		Sound:    "default",
		Priority: priority,
	})

	observability.IncDelivery("device_push", err)
	if err != nil {
		s.logger.LogDeliveryFailure("device_push", recipient.ID.Hex(), err)
	}
}

// AlertContacts emails and texts every emergency contact. No notification
// records are written for contacts.
func (s *notificationService) AlertContacts(ctx context.Context, sos *models.SOS, creator *models.User, contacts []models.Contact) {
	smsText := fmt.Sprintf("SOS ALERT: %s needs urgent help! Location: %s", creator.Name, sos.Coordinates.MapsLink())

	body := fmt.Sprintf("%s has triggered an emergency SOS alert and needs help.", creator.Name)
	if sos.Message != "" {
		body += fmt.Sprintf(" Message: %q.", sos.Message)
	}
	body += fmt.Sprintf(" Sent at %s.", sos.CreatedAt.UTC().Format(time.RFC1123))

	for _, contact := range contacts {
		contact := contact

		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.config.SOS.EmailTimeout)
			defer cancel()

			if contact.Email != "" {
				msg, err := email.RenderNotification(contact.Email, email.NotificationView{
					AppName: s.config.App.Name,
					Title:   "URGENT: SOS Emergency Alert",
					Body:    body,
					Link:    sos.Coordinates.MapsLink(),
				})
				if err == nil {
					msg.ToName = contact.Name
					err = s.mailer.Send(ctx, msg)
				}
				observability.IncDelivery("email", err)
				if err != nil {
					s.logger.LogDeliveryFailure("email", contact.Email, err)
				}
			}

			if phone := utils.NormalizePhone(contact.Phone); phone != "" {
				_, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{To: phone, Message: smsText, Type: "transactional"})
				observability.IncDelivery("sms", err)
				if err != nil {
					s.logger.LogDeliveryFailure("sms", phone, err)
				}
			}
		}()
	}

	s.logger.LogSOSEvent(sos.ID, "contacts_alerted", map[string]interface{}{"contacts": len(contacts)})
}

func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	notifications, err := s.notificationRepo.ListByRecipient(ctx, userID, utils.NotificationListLimit)
	if err != nil {
		return nil, Internal("list notifications", err)
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, Internal("count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, requesterID primitive.ObjectID) (*models.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, lookupError(err, "get notification", "Notification not found")
	}
	if n.RecipientID != requesterID {
		return nil, Forbidden("Not authorized to update this notification")
	}
	if n.IsRead {
		return n, nil
	}

	now := time.Now()
	if _, err := s.notificationRepo.MarkRead(ctx, notificationID, now); err != nil {
		return nil, Internal("mark notification read", err)
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	updated, err := s.notificationRepo.MarkAllRead(ctx, userID, time.Now())
	if err != nil {
		return 0, Internal("mark all notifications read", err)
	}
	return updated, nil
}

func (s *notificationService) MarkRelatedRead(ctx context.Context, userID primitive.ObjectID, related models.RelatedRef, notificationType models.NotificationType) (int64, error) {
	updated, err := s.notificationRepo.MarkReadByRelated(ctx, userID, related, notificationType, time.Now())
	if err != nil {
		return 0, Internal("mark related notifications read", err)
	}
	return updated, nil
}

// SOSReadReceipts lists volunteers who have read an SOS notification for the
// case, earliest read first. The creator's own notifications are ignored.
func (s *notificationService) SOSReadReceipts(ctx context.Context, sos *models.SOS) ([]models.SOSReadReceipt, error) {
	notifications, err := s.notificationRepo.ListByRelated(ctx, models.RelatedToSOS(sos.ID), models.NotificationTypeSOS)
	if err != nil {
		return nil, Internal("list sos notifications", err)
	}

	firstRead := make(map[primitive.ObjectID]time.Time)
	for _, n := range notifications {
		if !n.IsRead || n.ReadAt == nil || n.RecipientID == sos.UserID {
			continue
		}
		if at, ok := firstRead[n.RecipientID]; !ok || n.ReadAt.Before(at) {
			firstRead[n.RecipientID] = *n.ReadAt
		}
	}
	if len(firstRead) == 0 {
		return []models.SOSReadReceipt{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(firstRead))
	for id := range firstRead {
		ids = append(ids, id)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, Internal("load receipt readers", err)
	}

	receipts := make([]models.SOSReadReceipt, 0, len(ids))
	for id, at := range firstRead {
		name := "Unknown Volunteer"
		if u, ok := users[id]; ok {
			name = u.Name
		}
		receipts = append(receipts, models.SOSReadReceipt{VolunteerID: id, VolunteerName: name, ReadAt: at})
	}
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].ReadAt.Before(receipts[j].ReadAt)
	})
	return receipts, nil
}

func (s *notificationService) Wait() {
	s.inflight.Wait()
}
