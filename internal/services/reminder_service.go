package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rescuelink/internal/config"
	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SweepResult struct {
	Skipped   bool
	Cases     int
	Reminders int
}

// ReminderSweeper periodically re-alerts volunteers who were notified about
// an open SOS but have neither read nor accepted it.
type ReminderSweeper struct {
	sosRepo          interfaces.SOSRepository
	notificationRepo interfaces.NotificationRepository
	notifications    NotificationService
	locker           Locker
	publisher        events.Publisher
	config           *config.SOSConfig
	logger           *logger.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewReminderSweeper builds a sweeper. locker may be nil, in which case only
// the in-process overlap guard applies.
func NewReminderSweeper(
	cfg *config.SOSConfig,
	sosRepo interfaces.SOSRepository,
	notificationRepo interfaces.NotificationRepository,
	notifications NotificationService,
	locker Locker,
	publisher events.Publisher,
	log *logger.Logger,
) *ReminderSweeper {
	return &ReminderSweeper{
		sosRepo:          sosRepo,
		notificationRepo: notificationRepo,
		notifications:    notifications,
		locker:           locker,
		publisher:        publisher,
		config:           cfg,
		logger:           log,
	}
}

// Start runs a sweep every ReminderInterval until Stop is called or ctx ends.
func (r *ReminderSweeper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.config.ReminderInterval)
		defer ticker.Stop()

		r.logger.WithField("interval", r.config.ReminderInterval.String()).Info("Reminder sweeper started")
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Reminder sweeper stopped")
				return
			case <-ticker.C:
				if _, err := r.Sweep(ctx); err != nil {
					r.logger.WithError(err).Error("Reminder sweep failed")
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (r *ReminderSweeper) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Sweep runs one pass. It returns a skipped result when another pass is
// still running here or holds the distributed lock.
func (r *ReminderSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		observability.IncReminderSweep("skipped")
		return SweepResult{Skipped: true}, nil
	}
	defer r.running.Store(false)

	if r.locker != nil {
		acquired, err := r.locker.Lock(ctx, utils.CacheSweepLockKey, r.config.ReminderInterval)
		switch {
		case err != nil:
			r.logger.WithError(err).Warn("Sweep lock unavailable, running without it")
		case !acquired:
			observability.IncReminderSweep("skipped")
			return SweepResult{Skipped: true}, nil
		default:
			defer func() {
				if err := r.locker.Unlock(context.Background(), utils.CacheSweepLockKey); err != nil {
					r.logger.WithError(err).Warn("Failed to release sweep lock")
				}
			}()
		}
	}

	result, err := r.sweep(ctx)
	if err != nil {
		observability.IncReminderSweep("failed")
		return result, err
	}

	observability.IncReminderSweep("completed")
	observability.AddRemindersSent(result.Reminders)
	if result.Reminders > 0 {
		r.logger.WithFields(map[string]interface{}{
			"cases":     result.Cases,
			"reminders": result.Reminders,
		}).Info("Reminder sweep sent reminders")
	}
	return result, nil
}

func (r *ReminderSweeper) sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	cutoff := time.Now().Add(-r.config.ReminderThreshold)
	open, contact := false, false
	cases, err := r.sosRepo.List(ctx, models.SOSFilter{
		IsResolved: &open,
		IsContact:  &contact,
		CreatedLTE: &cutoff,
	})
	if err != nil {
		return result, Internal("list pending sos", err)
	}

	for _, sos := range cases {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		sent, err := r.remindCase(ctx, sos)
		if err != nil {
			r.logger.WithSOSID(sos.ID).WithError(err).Warn("Failed to send reminders for SOS")
			continue
		}
		result.Cases++
		result.Reminders += sent
	}
	return result, nil
}

// remindCase sends one reminder to each volunteer who still has an unread
// SOS notification for the case and has not hit the per-case cap.
func (r *ReminderSweeper) remindCase(ctx context.Context, sos *models.SOS) (int, error) {
	related := models.RelatedToSOS(sos.ID)

	alerts, err := r.notificationRepo.ListByRelated(ctx, related, models.NotificationTypeSOS)
	if err != nil {
		return 0, err
	}

	pending := make([]primitive.ObjectID, 0, len(alerts))
	seen := make(map[primitive.ObjectID]struct{}, len(alerts))
	for _, n := range alerts {
		if n.IsRead || n.RecipientID == sos.UserID || sos.HasAccepted(n.RecipientID) {
			continue
		}
		if _, ok := seen[n.RecipientID]; ok {
			continue
		}
		seen[n.RecipientID] = struct{}{}
		pending = append(pending, n.RecipientID)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	previous, err := r.notificationRepo.ListByRelated(ctx, related, models.NotificationTypeReminder)
	if err != nil {
		return 0, err
	}
	sentBefore := make(map[primitive.ObjectID]int, len(previous))
	for _, n := range previous {
		sentBefore[n.RecipientID]++
	}

	sent := 0
	for _, volunteerID := range pending {
		if sentBefore[volunteerID] >= r.config.ReminderMaxPerVolunteer {
			continue
		}

		_, err := r.notifications.Notify(ctx, &NotifyRequest{
			RecipientID: volunteerID,
			Type:        models.NotificationTypeReminder,
			Title:       "Action Required",
			Message:     "Reminder: Someone needs your help! Please respond to the pending SOS alert.",
			Related:     related,
			Metadata: map[string]interface{}{
				"latitude":  sos.Coordinates.Latitude,
				"longitude": sos.Coordinates.Longitude,
			},
			Event:        websocket.EventReminder,
			Payload:      map[string]interface{}{"sosId": sos.ID},
			EmailSubject: "Reminder: Action Required",
		})
		if err != nil {
			r.logger.WithSOSID(sos.ID).WithUserID(volunteerID).WithError(err).Warn("Failed to send reminder")
			continue
		}
		sent++
	}

	if sent > 0 {
		if err := r.publisher.Publish(ctx, events.ReminderSent, events.NewEvent(events.ReminderSent, map[string]interface{}{
			"sos_id":    sos.ID,
			"reminders": sent,
		})); err != nil {
			observability.IncEventPublishError()
			r.logger.WithError(err).WithField("routing_key", events.ReminderSent).Warn("Failed to publish event")
		}
	}
	return sent, nil
}
