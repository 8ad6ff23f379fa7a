package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"rescuelink/internal/config"
	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/maps"
	"rescuelink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RaiseResult struct {
	SOS    *models.SOS   `json:"sos"`
	FanOut *FanOutResult `json:"fan_out,omitempty"`
}

type AcceptResult struct {
	SOS  *models.SOS  `json:"sos"`
	Chat *models.Chat `json:"chat,omitempty"`
}

type SOSService interface {
	// Lifecycle
	Raise(ctx context.Context, creatorID primitive.ObjectID, req *models.RaiseSOSRequest) (*RaiseResult, error)
	Accept(ctx context.Context, sosID, volunteerID primitive.ObjectID) (*AcceptResult, error)
	Resolve(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOS, error)

	// Queries
	ListActive(ctx context.Context) ([]*models.SOS, error)
	ListMine(ctx context.Context, userID primitive.ObjectID) ([]*models.SOS, error)
	GetByID(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOSDetail, error)

	// Read receipts
	MarkRead(ctx context.Context, sosID, volunteerID primitive.ObjectID) (bool, error)

	// Responder tracking
	RelayVolunteerLocation(ctx context.Context, volunteerID, sosID primitive.ObjectID, coordinates models.Coordinates) error
}

type sosService struct {
	sosRepo       interfaces.SOSRepository
	userRepo      interfaces.UserRepository
	contactRepo   interfaces.ContactRepository
	notifications NotificationService
	chats         ChatService
	presence      Presence
	geocoder      maps.Geocoder
	geo           GeoStore
	publisher     events.Publisher
	config        *config.Config
	logger        *logger.Logger
}

// NewSOSService wires the case manager. geocoder and geo may be nil.
func NewSOSService(
	cfg *config.Config,
	sosRepo interfaces.SOSRepository,
	userRepo interfaces.UserRepository,
	contactRepo interfaces.ContactRepository,
	notifications NotificationService,
	chats ChatService,
	presence Presence,
	geocoder maps.Geocoder,
	geo GeoStore,
	publisher events.Publisher,
	log *logger.Logger,
) SOSService {
	return &sosService{
		sosRepo:       sosRepo,
		userRepo:      userRepo,
		contactRepo:   contactRepo,
		notifications: notifications,
		chats:         chats,
		presence:      presence,
		geocoder:      geocoder,
		geo:           geo,
		publisher:     publisher,
		config:        cfg,
		logger:        log,
	}
}

func (s *sosService) Raise(ctx context.Context, creatorID primitive.ObjectID, req *models.RaiseSOSRequest) (*RaiseResult, error) {
	mode, err := models.ParseSOSMode(req.Mode, req.Receiver)
	if err != nil {
		return nil, Validation(err.Error())
	}
	if !req.Coordinates.Valid() {
		return nil, Validation("Coordinates are out of range")
	}
	message := utils.NormalizeText(req.Message)
	if utf8.RuneCountInString(message) > utils.MaxSOSMessageLength {
		return nil, Validation(fmt.Sprintf("Message exceeds %d characters", utils.MaxSOSMessageLength))
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, lookupError(err, "get creator", "User not found")
	}

	now := time.Now()
	sos := &models.SOS{
		UserID:      creator.ID,
		Message:     message,
		Coordinates: req.Coordinates,
		Mode:        mode,
		IsContact:   mode.IsContactDirected(),
		AcceptedBy:  []primitive.ObjectID{},
		Address:     s.reverseGeocode(ctx, req.Coordinates),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sosRepo.Create(ctx, sos); err != nil {
		return nil, Internal("create sos", err)
	}
	observability.IncSOSEvent("raised", string(mode))

	result := &RaiseResult{SOS: sos}
	if sos.IsContact {
		s.alertContacts(ctx, sos, creator)
	} else {
		fanOut, err := s.fanOut(ctx, sos, creator)
		if err != nil {
			// The case exists; volunteers still see it in the active feed.
			s.logger.WithSOSID(sos.ID).WithError(err).Error("Failed to load eligible volunteers")
		}
		result.FanOut = fanOut
	}

	reached := s.presence.Broadcast(websocket.EventNewSOS, map[string]interface{}{
		"id":          sos.ID,
		"user":        creator.Summary(),
		"message":     sos.Message,
		"coordinates": sos.Coordinates,
		"address":     sos.Address,
		"is_contact":  sos.IsContact,
		"accepted_by": sos.AcceptedBy,
		"created_at":  sos.CreatedAt,
	})
	observability.IncRealtimeEvent(websocket.EventNewSOS, reached > 0)

	s.publish(ctx, events.SOSRaised, map[string]interface{}{
		"sos_id":  sos.ID,
		"user_id": creator.ID,
		"mode":    sos.Mode,
	})
	s.logger.LogSOSEvent(sos.ID, "raised", map[string]interface{}{
		"user_id": creator.ID.Hex(),
		"mode":    string(mode),
	})

	return result, nil
}

func (s *sosService) fanOut(ctx context.Context, sos *models.SOS, creator *models.User) (*FanOutResult, error) {
	volunteers, err := s.userRepo.FindEligibleVolunteers(ctx)
	if err != nil {
		return nil, err
	}

	recipients := make([]*models.User, 0, len(volunteers))
	for _, v := range volunteers {
		if v.ID != creator.ID && v.IsEligibleVolunteer() {
			recipients = append(recipients, v)
		}
	}

	result := s.notifications.FanOutSOS(ctx, sos, creator, recipients)
	return &result, nil
}

func (s *sosService) alertContacts(ctx context.Context, sos *models.SOS, creator *models.User) {
	contacts, err := s.contactRepo.GetByUserID(ctx, creator.ID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.WithSOSID(sos.ID).WithError(err).Error("Failed to load emergency contacts")
		return
	}
	if contacts == nil || len(contacts.Contacts) == 0 {
		s.logger.WithSOSID(sos.ID).WithUserID(creator.ID).Warn("Contact SOS raised with no emergency contacts")
		return
	}
	s.notifications.AlertContacts(ctx, sos, creator, contacts.Contacts)
}

// reverseGeocode returns "" when no geocoder is configured or the lookup
// fails or times out.
func (s *sosService) reverseGeocode(ctx context.Context, c models.Coordinates) string {
	if s.geocoder == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Maps.GoogleMaps.GeocodeTimeout)
	defer cancel()

	resp, err := s.geocoder.ReverseGeocode(ctx, c.Latitude, c.Longitude)
	if err != nil {
		s.logger.WithError(err).Debug("Reverse geocoding failed")
		return ""
	}
	return resp.FormattedAddress()
}

func (s *sosService) Accept(ctx context.Context, sosID, volunteerID primitive.ObjectID) (*AcceptResult, error) {
	volunteer, err := s.userRepo.GetByID(ctx, volunteerID)
	if err != nil {
		return nil, lookupError(err, "get volunteer", "Volunteer not found")
	}
	if !volunteer.IsVolunteer() {
		return nil, Forbidden("Only volunteers can accept SOS requests")
	}
	if volunteer.Blacklisted {
		return nil, Forbidden("Your volunteer account is suspended")
	}

	sos, err := s.sosRepo.AddAcceptance(ctx, sosID, volunteerID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return nil, NotFound("SOS not found")
	case errors.Is(err, interfaces.ErrAlreadyAccepted):
		return nil, Conflict("You have already accepted this SOS")
	case errors.Is(err, interfaces.ErrAlreadyResolved):
		return nil, InvalidState("This SOS has already been resolved")
	case err != nil:
		return nil, Internal("accept sos", err)
	}
	observability.IncSOSEvent("accepted", string(sos.Mode))

	_, err = s.notifications.Notify(ctx, &NotifyRequest{
		RecipientID: sos.UserID,
		Type:        models.NotificationTypeSOS,
		Title:       "SOS Request Accepted",
		Message:     fmt.Sprintf("%s has accepted your SOS request and is on the way to help.", volunteer.Name),
		Related:     models.RelatedToSOS(sos.ID),
		Metadata: map[string]interface{}{
			"volunteerId":   volunteer.ID,
			"volunteerName": volunteer.Name,
		},
		Event: websocket.EventSOSAccepted,
		Payload: map[string]interface{}{
			"sosId":     sos.ID,
			"volunteer": volunteer.Summary(),
		},
		Email: EmailIfOffline,
	})
	if err != nil {
		s.logger.WithSOSID(sos.ID).WithError(err).Warn("Failed to notify SOS creator of acceptance")
	}

	result := &AcceptResult{SOS: sos}
	chat, created, err := s.chats.GetOrCreateSOSChat(ctx, sos.ID, sos.UserID, volunteer.ID, s.config.SOS.AcceptSeedMessage)
	if err != nil {
		s.logger.WithSOSID(sos.ID).WithError(err).Error("Failed to open SOS chat")
	} else {
		result.Chat = chat
		if created {
			delivered := s.presence.SendToUser(sos.UserID, websocket.EventNewChat, map[string]interface{}{
				"chat":      chat,
				"sosId":     sos.ID,
				"volunteer": volunteer.Summary(),
			})
			observability.IncRealtimeEvent(websocket.EventNewChat, delivered)
		}
	}

	s.publish(ctx, events.SOSAccepted, map[string]interface{}{
		"sos_id":       sos.ID,
		"volunteer_id": volunteer.ID,
		"accepted":     len(sos.AcceptedBy),
	})
	s.logger.LogSOSEvent(sos.ID, "accepted", map[string]interface{}{"volunteer_id": volunteer.ID.Hex()})

	return result, nil
}

func (s *sosService) Resolve(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOS, error) {
	current, err := s.sosRepo.GetByID(ctx, sosID)
	if err != nil {
		return nil, lookupError(err, "get sos", "SOS not found")
	}
	if current.UserID != requesterID && role != models.UserRoleAdmin {
		return nil, Forbidden("Only the creator can resolve this SOS")
	}

	sos, err := s.sosRepo.MarkResolved(ctx, sosID, time.Now())
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return nil, NotFound("SOS not found")
	case errors.Is(err, interfaces.ErrAlreadyResolved):
		return nil, InvalidState("SOS is already resolved")
	case err != nil:
		return nil, Internal("resolve sos", err)
	}
	observability.IncSOSEvent("resolved", string(sos.Mode))

	for _, volunteerID := range sos.AcceptedBy {
		_, err := s.notifications.Notify(ctx, &NotifyRequest{
			RecipientID: volunteerID,
			Type:        models.NotificationTypeSOS,
			Title:       "SOS Resolved",
			Message:     "An SOS case you were helping with has been marked as resolved.",
			Related:     models.RelatedToSOS(sos.ID),
			Event:       websocket.EventSOSResolved,
			Payload: map[string]interface{}{
				"sosId":   sos.ID,
				"message": "This SOS has been marked as resolved by the user.",
			},
			Email: EmailIfOffline,
		})
		if err != nil {
			s.logger.WithSOSID(sos.ID).WithUserID(volunteerID).WithError(err).Warn("Failed to notify volunteer of resolution")
		}
	}

	s.publish(ctx, events.SOSResolved, map[string]interface{}{
		"sos_id":      sos.ID,
		"resolved_by": requesterID,
	})
	s.logger.LogSOSEvent(sos.ID, "resolved", map[string]interface{}{"resolved_by": requesterID.Hex()})

	return sos, nil
}

func (s *sosService) ListActive(ctx context.Context) ([]*models.SOS, error) {
	open, contact := false, false
	cases, err := s.sosRepo.List(ctx, models.SOSFilter{IsResolved: &open, IsContact: &contact})
	if err != nil {
		return nil, Internal("list active sos", err)
	}
	return cases, nil
}

func (s *sosService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*models.SOS, error) {
	cases, err := s.sosRepo.List(ctx, models.SOSFilter{UserID: &userID})
	if err != nil {
		return nil, Internal("list own sos", err)
	}
	return cases, nil
}

// GetByID returns the case with its read receipts. A volunteer viewing the
// case records their own read receipt; the returned list reflects the state
// before this view.
func (s *sosService) GetByID(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOSDetail, error) {
	sos, err := s.sosRepo.GetByID(ctx, sosID)
	if err != nil {
		return nil, lookupError(err, "get sos", "SOS not found")
	}
	if sos.UserID != requesterID && role == models.UserRoleUser {
		return nil, Forbidden("Not authorized to view this SOS")
	}

	receipts, err := s.notifications.SOSReadReceipts(ctx, sos)
	if err != nil {
		return nil, err
	}

	detail := &models.SOSDetail{SOS: sos, ReadReceipts: receipts}
	if creator, err := s.userRepo.GetByID(ctx, sos.UserID); err == nil {
		summary := creator.Summary()
		detail.Creator = &summary
	}

	if role == models.UserRoleVolunteer && requesterID != sos.UserID {
		if _, err := s.recordRead(ctx, sos, requesterID); err != nil {
			s.logger.WithSOSID(sos.ID).WithUserID(requesterID).WithError(err).Warn("Failed to record SOS read receipt")
		}
	}

	return detail, nil
}

func (s *sosService) MarkRead(ctx context.Context, sosID, volunteerID primitive.ObjectID) (bool, error) {
	sos, err := s.sosRepo.GetByID(ctx, sosID)
	if err != nil {
		return false, lookupError(err, "get sos", "SOS not found")
	}
	if sos.UserID == volunteerID {
		return false, nil
	}
	return s.recordRead(ctx, sos, volunteerID)
}

// recordRead marks the volunteer's SOS notifications for the case read. The
// creator gets a sosReadReceipt only on the unread to read transition.
func (s *sosService) recordRead(ctx context.Context, sos *models.SOS, volunteerID primitive.ObjectID) (bool, error) {
	marked, err := s.notifications.MarkRelatedRead(ctx, volunteerID, models.RelatedToSOS(sos.ID), models.NotificationTypeSOS)
	if err != nil {
		return false, err
	}
	if marked == 0 {
		return false, nil
	}

	name := "Unknown Volunteer"
	if volunteer, err := s.userRepo.GetByID(ctx, volunteerID); err == nil {
		name = volunteer.Name
	}

	delivered := s.presence.SendToUser(sos.UserID, websocket.EventSOSReadReceipt, map[string]interface{}{
		"sosId":     sos.ID,
		"volunteer": models.UserSummary{ID: volunteerID, Name: name},
		"readAt":    time.Now(),
	})
	observability.IncRealtimeEvent(websocket.EventSOSReadReceipt, delivered)
	return true, nil
}

// RelayVolunteerLocation stores an accepting volunteer's position and
// forwards it to the case creator.
func (s *sosService) RelayVolunteerLocation(ctx context.Context, volunteerID, sosID primitive.ObjectID, coordinates models.Coordinates) error {
	if !coordinates.Valid() {
		return Validation("Coordinates are out of range")
	}

	sos, err := s.sosRepo.GetByID(ctx, sosID)
	if err != nil {
		return lookupError(err, "get sos", "SOS not found")
	}
	if !sos.HasAccepted(volunteerID) {
		return Forbidden("Only volunteers who accepted this SOS can share their location")
	}
	if sos.IsResolved {
		return InvalidState("SOS is already resolved")
	}

	if s.geo != nil {
		key := utils.CacheResponderGeoPrefix + sos.ID.Hex()
		if err := s.geo.GeoAdd(ctx, key, volunteerID.Hex(), coordinates.Longitude, coordinates.Latitude, utils.VolunteerLocationTTL); err != nil {
			s.logger.WithSOSID(sos.ID).WithError(err).Warn("Failed to store responder location")
		}
	}

	volunteer := models.UserSummary{ID: volunteerID, Name: "Unknown Volunteer"}
	if u, err := s.userRepo.GetByID(ctx, volunteerID); err == nil {
		volunteer = u.Summary()
	}

	delivered := s.presence.SendToUser(sos.UserID, websocket.EventRespondingVolunteerLocation, map[string]interface{}{
		"sosId":       sos.ID,
		"volunteer":   volunteer,
		"coordinates": coordinates,
		"distance_km": utils.DistanceKM(
			coordinates.Latitude, coordinates.Longitude,
			sos.Coordinates.Latitude, sos.Coordinates.Longitude,
		),
		"timestamp": time.Now(),
	})
	observability.IncRealtimeEvent(websocket.EventRespondingVolunteerLocation, delivered)
	return nil
}

func (s *sosService) publish(ctx context.Context, routingKey string, payload interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, events.NewEvent(routingKey, payload)); err != nil {
		observability.IncEventPublishError()
		s.logger.WithError(err).WithField("routing_key", routingKey).Warn("Failed to publish event")
	}
}
