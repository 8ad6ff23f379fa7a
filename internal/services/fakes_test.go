package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"rescuelink/internal/config"
	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/utils"
	"rescuelink/pkg/email"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/maps"
	"rescuelink/pkg/sms"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore backs every repository fake with one mutex so conditional updates
// behave atomically, as the Mongo ones do.
type memStore struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	sos           map[primitive.ObjectID]*models.SOS
	contacts      map[primitive.ObjectID]*models.EmergencyContacts
	notifications []*models.Notification
	chats         map[primitive.ObjectID]*models.Chat
	chatKeys      map[string]primitive.ObjectID
	messages      []*models.Message

	failNotificationsFor map[primitive.ObjectID]bool
	failMessages         bool
}

func newMemStore() *memStore {
	return &memStore{
		users:                make(map[primitive.ObjectID]*models.User),
		sos:                  make(map[primitive.ObjectID]*models.SOS),
		contacts:             make(map[primitive.ObjectID]*models.EmergencyContacts),
		chats:                make(map[primitive.ObjectID]*models.Chat),
		chatKeys:             make(map[string]primitive.ObjectID),
		failNotificationsFor: make(map[primitive.ObjectID]bool),
	}
}

func cloneSOS(s *models.SOS) *models.SOS {
	c := *s
	c.AcceptedBy = append([]primitive.ObjectID{}, s.AcceptedBy...)
	return &c
}

func cloneChat(ch *models.Chat) *models.Chat {
	c := *ch
	c.Participants = append([]primitive.ObjectID{}, ch.Participants...)
	if ch.LastMessage != nil {
		lm := *ch.LastMessage
		c.LastMessage = &lm
	}
	return &c
}

func cloneMessage(m *models.Message) *models.Message {
	c := *m
	c.ReadBy = append([]models.ReadReceipt{}, m.ReadBy...)
	return &c
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	return &c
}

// Users

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	u := *user
	r.s.users[user.ID] = &u
	return nil
}

func (r memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r memUserRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.User)
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			c := *u
			out[id] = &c
		}
	}
	return out, nil
}

func (r memUserRepo) FindEligibleVolunteers(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.IsEligibleVolunteer() {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memUserRepo) CountEligibleVolunteers(ctx context.Context) (int64, error) {
	vs, _ := r.FindEligibleVolunteers(ctx)
	return int64(len(vs)), nil
}

func (r memUserRepo) setFlag(id primitive.ObjectID, set func(*models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	set(u)
	c := *u
	return &c, nil
}

func (r memUserRepo) SetApproved(_ context.Context, id primitive.ObjectID, approved bool) (*models.User, error) {
	return r.setFlag(id, func(u *models.User) { u.IsApproved = approved })
}

func (r memUserRepo) SetBlacklisted(_ context.Context, id primitive.ObjectID, blacklisted bool) (*models.User, error) {
	return r.setFlag(id, func(u *models.User) { u.Blacklisted = blacklisted })
}

func (r memUserRepo) ListBlacklisted(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.User{}
	for _, u := range r.s.users {
		if u.Blacklisted {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r memUserRepo) SetSocketID(_ context.Context, userID primitive.ObjectID, socketID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return interfaces.ErrNotFound
	}
	id := socketID
	u.SocketID = &id
	return nil
}

func (r memUserRepo) ClearSocketID(_ context.Context, userID primitive.ObjectID, socketID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[userID]; ok && u.SocketID != nil && *u.SocketID == socketID {
		u.SocketID = nil
	}
	return nil
}

// SOS cases

type memSOSRepo struct{ s *memStore }

func (r memSOSRepo) Create(_ context.Context, sos *models.SOS) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sos.ID = primitive.NewObjectID()
	sos.CreatedAt = time.Now()
	sos.UpdatedAt = sos.CreatedAt
	if sos.AcceptedBy == nil {
		sos.AcceptedBy = []primitive.ObjectID{}
	}
	r.s.sos[sos.ID] = cloneSOS(sos)
	return nil
}

func (r memSOSRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.SOS, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sos[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return cloneSOS(s), nil
}

func matchSOS(s *models.SOS, f models.SOSFilter) bool {
	if f.UserID != nil && s.UserID != *f.UserID {
		return false
	}
	if f.IsResolved != nil && s.IsResolved != *f.IsResolved {
		return false
	}
	if f.IsContact != nil && s.IsContact != *f.IsContact {
		return false
	}
	if f.CreatedGTE != nil && s.CreatedAt.Before(*f.CreatedGTE) {
		return false
	}
	if f.CreatedLTE != nil && s.CreatedAt.After(*f.CreatedLTE) {
		return false
	}
	return true
}

func (r memSOSRepo) List(_ context.Context, f models.SOSFilter) ([]*models.SOS, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.SOS{}
	for _, s := range r.s.sos {
		if matchSOS(s, f) {
			out = append(out, cloneSOS(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memSOSRepo) Count(ctx context.Context, f models.SOSFilter) (int64, error) {
	out, _ := r.List(ctx, f)
	return int64(len(out)), nil
}

func (r memSOSRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sos[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(r.s.sos, id)
	return nil
}

func (r memSOSRepo) AddAcceptance(_ context.Context, id, volunteerID primitive.ObjectID) (*models.SOS, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sos[id]
	switch {
	case !ok:
		return nil, interfaces.ErrNotFound
	case s.HasAccepted(volunteerID):
		return cloneSOS(s), interfaces.ErrAlreadyAccepted
	case s.IsResolved:
		return cloneSOS(s), interfaces.ErrAlreadyResolved
	}
	s.AcceptedBy = append(s.AcceptedBy, volunteerID)
	s.UpdatedAt = time.Now()
	return cloneSOS(s), nil
}

func (r memSOSRepo) MarkResolved(_ context.Context, id primitive.ObjectID, at time.Time) (*models.SOS, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sos[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if s.IsResolved {
		return cloneSOS(s), interfaces.ErrAlreadyResolved
	}
	s.IsResolved = true
	s.ResolvedAt = &at
	return cloneSOS(s), nil
}

// backdate moves a case's creation time into the past.
func (s *memStore) backdate(id primitive.ObjectID, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sos[id].CreatedAt = s.sos[id].CreatedAt.Add(-by)
}

// Contacts

type memContactRepo struct{ s *memStore }

func (r memContactRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*models.EmergencyContacts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[userID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memContactRepo) Upsert(_ context.Context, contacts *models.EmergencyContacts) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *contacts
	r.s.contacts[contacts.UserID] = &cp
	return nil
}

// Notifications

type memNotificationRepo struct{ s *memStore }

func (r memNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNotificationsFor[n.RecipientID] {
		return errors.New("insert failed")
	}
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	r.s.notifications = append(r.s.notifications, cloneNotification(n))
	return nil
}

func (r memNotificationRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			return cloneNotification(n), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r memNotificationRepo) ListByRecipient(_ context.Context, recipientID primitive.ObjectID, limit int64) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Notification{}
	for i := len(r.s.notifications) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if n := r.s.notifications[i]; n.RecipientID == recipientID {
			out = append(out, cloneNotification(n))
		}
	}
	return out, nil
}

func (r memNotificationRepo) CountUnread(_ context.Context, recipientID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r memNotificationRepo) markWhere(at time.Time, match func(*models.Notification) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var updated int64
	for _, n := range r.s.notifications {
		if !n.IsRead && match(n) {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			updated++
		}
	}
	return updated
}

func (r memNotificationRepo) MarkRead(_ context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	return r.markWhere(at, func(n *models.Notification) bool { return n.ID == id }), nil
}

func (r memNotificationRepo) MarkAllRead(_ context.Context, recipientID primitive.ObjectID, at time.Time) (int64, error) {
	return r.markWhere(at, func(n *models.Notification) bool { return n.RecipientID == recipientID }), nil
}

func (r memNotificationRepo) MarkReadByRelated(_ context.Context, recipientID primitive.ObjectID, related models.RelatedRef, t models.NotificationType, at time.Time) (int64, error) {
	return r.markWhere(at, func(n *models.Notification) bool {
		return n.RecipientID == recipientID && n.RelatedRef == related && n.Type == t
	}), nil
}

func (r memNotificationRepo) ListByRelated(_ context.Context, related models.RelatedRef, t models.NotificationType) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range r.s.notifications {
		if n.RelatedRef == related && n.Type == t {
			out = append(out, cloneNotification(n))
		}
	}
	return out, nil
}

// notificationsFor returns a snapshot of the recipient's notifications of one type.
func (s *memStore) notificationsFor(recipientID primitive.ObjectID, t models.NotificationType) []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && n.Type == t {
			out = append(out, cloneNotification(n))
		}
	}
	return out
}

// Chats and messages

type memChatRepo struct{ s *memStore }

func (r memChatRepo) GetOrCreate(_ context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.chatKeys[chat.ParticipantKey]; ok {
		return cloneChat(r.s.chats[id]), false, nil
	}
	stored := cloneChat(chat)
	stored.ID = primitive.NewObjectID()
	r.s.chats[stored.ID] = stored
	r.s.chatKeys[stored.ParticipantKey] = stored.ID
	return cloneChat(stored), true, nil
}

func (r memChatRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chats[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return cloneChat(c), nil
}

func (r memChatRepo) ListByParticipant(_ context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Chat{}
	for _, c := range r.s.chats {
		if c.IsParticipant(userID) {
			out = append(out, cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memChatRepo) FindSOSRoom(_ context.Context, sosID primitive.ObjectID, members []primitive.ObjectID) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var oldest *models.Chat
	for _, c := range r.s.chats {
		if c.RelatedSOS == nil || *c.RelatedSOS != sosID || !c.HasAll(members...) {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, interfaces.ErrNotFound
	}
	return cloneChat(oldest), nil
}

func (r memChatRepo) ReserveSeq(_ context.Context, chatID, senderID primitive.ObjectID) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chats[chatID]
	if !ok || !c.IsParticipant(senderID) {
		return nil, interfaces.ErrNotFound
	}
	c.MessageCount++
	return cloneChat(c), nil
}

func (r memChatRepo) ReleaseSeq(_ context.Context, chatID primitive.ObjectID, seq int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.chats[chatID]; ok && c.MessageCount == seq {
		c.MessageCount--
	}
	return nil
}

func (r memChatRepo) SetLastMessage(_ context.Context, chatID primitive.ObjectID, last models.LastMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chats[chatID]
	if !ok || (c.LastMessage != nil && c.LastMessage.Seq >= last.Seq) {
		return nil
	}
	lm := last
	c.LastMessage = &lm
	c.UpdatedAt = last.Timestamp
	return nil
}

type memMessageRepo struct{ s *memStore }

func (r memMessageRepo) Create(_ context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMessages {
		return errors.New("insert failed")
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.s.messages = append(r.s.messages, cloneMessage(m))
	return nil
}

func (r memMessageRepo) chatMessages(chatID primitive.ObjectID, match func(*models.Message) bool) []*models.Message {
	out := []*models.Message{}
	for _, m := range r.s.messages {
		if m.ChatID == chatID && match(m) {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (r memMessageRepo) ListByChat(_ context.Context, chatID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.chatMessages(chatID, func(*models.Message) bool { return true })
	total := int64(len(all))
	start := params.GetSkip()
	if start > total {
		start = total
	}
	end := start + params.GetLimit()
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r memMessageRepo) ListUnreadBy(_ context.Context, chatID, readerID primitive.ObjectID) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.chatMessages(chatID, func(m *models.Message) bool { return !m.IsReadBy(readerID) }), nil
}

func (r memMessageRepo) AddReadReceipt(_ context.Context, chatID, messageID primitive.ObjectID, receipt models.ReadReceipt) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.ChatID == chatID && m.ID == messageID {
			if m.IsReadBy(receipt.UserID) {
				return nil, interfaces.ErrNotFound
			}
			m.ReadBy = append(m.ReadBy, receipt)
			return cloneMessage(m), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *memStore) chatMessages(chatID primitive.ObjectID) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memMessageRepo{s: s}.chatMessages(chatID, func(*models.Message) bool { return true })
}

func (s *memStore) chatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// Delivery fakes

type pushed struct {
	userID  primitive.ObjectID
	event   string
	payload interface{}
}

type fakePresence struct {
	mu         sync.Mutex
	online     map[primitive.ObjectID]bool
	sent       []pushed
	broadcasts []string
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[primitive.ObjectID]bool)}
}

func (p *fakePresence) setOnline(ids ...primitive.ObjectID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.online[id] = true
	}
}

func (p *fakePresence) IsOnline(userID primitive.ObjectID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePresence) SendToUser(userID primitive.ObjectID, event string, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userID] {
		return false
	}
	p.sent = append(p.sent, pushed{userID: userID, event: event, payload: payload})
	return true
}

func (p *fakePresence) Broadcast(event string, _ interface{}) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, event)
	return len(p.online)
}

func (p *fakePresence) eventsFor(userID primitive.ObjectID, event string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, s := range p.sent {
		if s.userID == userID && s.event == event {
			out = append(out, s)
		}
	}
	return out
}

func (p *fakePresence) eventsNamed(event string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, s := range p.sent {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*email.Message
}

func (m *fakeMailer) Send(_ context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	sort.Strings(out)
	return out
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []*sms.SMSRequest
}

func (f *fakeSMS) SendSMS(_ context.Context, req *sms.SMSRequest) (*sms.SMSResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return &sms.SMSResponse{MessageID: "sm-1", Status: "queued"}, nil
}

func (f *fakeSMS) SendBulkSMS(ctx context.Context, reqs []*sms.SMSRequest) ([]*sms.SMSResponse, error) {
	out := make([]*sms.SMSResponse, 0, len(reqs))
	for _, r := range reqs {
		resp, _ := f.SendSMS(ctx, r)
		out = append(out, resp)
	}
	return out, nil
}

type fakeGeo struct {
	mu     sync.Mutex
	points map[string][2]float64
}

func (g *fakeGeo) GeoAdd(_ context.Context, key, member string, lng, lat float64, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.points == nil {
		g.points = make(map[string][2]float64)
	}
	g.points[key+"/"+member] = [2]float64{lng, lat}
	return nil
}

type fakeGeocoder struct{ address string }

func (g fakeGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
		Address:     g.address,
		Coordinates: maps.Location{Latitude: lat, Longitude: lng},
	}}}, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// Environment

type testEnv struct {
	cfg      *config.Config
	store    *memStore
	presence *fakePresence
	mailer   *fakeMailer
	sms      *fakeSMS
	geo      *fakeGeo

	notifications NotificationService
	chats         ChatService
	sos           SOSService
	admin         AdminService
}

func testConfig() *config.Config {
	return &config.Config{
		App: &config.AppConfig{Name: "RescueLink", BaseURL: "https://rescuelink.test"},
		Maps: &config.MapsConfig{GoogleMaps: &config.GoogleMapsConfig{
			GeocodeTimeout: time.Second,
		}},
		SOS: &config.SOSConfig{
			FanOutConcurrency:       4,
			ReminderInterval:        time.Minute,
			ReminderThreshold:       5 * time.Minute,
			ReminderMaxPerVolunteer: 2,
			AcceptSeedMessage:       "I've accepted your SOS request and am on my way to help. Please stay calm.",
			EmailTimeout:            time.Second,
		},
	}
}

func newTestEnv(t *testing.T, geocoder maps.Geocoder) *testEnv {
	t.Helper()

	log := logger.NewNop()
	env := &testEnv{
		cfg:      testConfig(),
		store:    newMemStore(),
		presence: newFakePresence(),
		mailer:   &fakeMailer{},
		sms:      &fakeSMS{},
		geo:      &fakeGeo{},
	}
	publisher := events.NewPublisher("", "", log)

	users := memUserRepo{s: env.store}
	env.notifications = NewNotificationService(env.cfg, memNotificationRepo{s: env.store}, users,
		env.presence, env.mailer, env.sms, nil, log)
	env.chats = NewChatService(memChatRepo{s: env.store}, memMessageRepo{s: env.store}, users,
		memSOSRepo{s: env.store}, env.notifications, env.presence, publisher, log)
	env.sos = NewSOSService(env.cfg, memSOSRepo{s: env.store}, users, memContactRepo{s: env.store},
		env.notifications, env.chats, env.presence, geocoder, env.geo, publisher, log)
	env.admin = NewAdminService(memSOSRepo{s: env.store}, users, env.notifications, publisher, log)

	t.Cleanup(env.notifications.Wait)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string, role models.UserRole, mutate ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Name:            name,
		Email:           name + "@example.com",
		Role:            role,
		IsVerified:      true,
		IsApproved:      true,
		VolunteerStatus: models.VolunteerStatusActive,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, memUserRepo{s: e.store}.Create(context.Background(), u))
	return u
}

func (e *testEnv) raise(t *testing.T, creator *models.User) *models.SOS {
	t.Helper()
	res, err := e.sos.Raise(context.Background(), creator.ID, &models.RaiseSOSRequest{
		Message:     "need help",
		Coordinates: models.Coordinates{Latitude: 23.8, Longitude: 90.4},
		Mode:        "soft",
		Receiver:    "volunteer",
	})
	require.NoError(t, err)
	return res.SOS
}
