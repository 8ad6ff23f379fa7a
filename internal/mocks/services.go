package mocks

import (
	"context"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSServiceMock struct {
	mock.Mock
}

var _ services.SOSService = (*SOSServiceMock)(nil)

func (m *SOSServiceMock) Raise(ctx context.Context, creatorID primitive.ObjectID, req *models.RaiseSOSRequest) (*services.RaiseResult, error) {
	args := m.Called(ctx, creatorID, req)
	var result *services.RaiseResult
	if val := args.Get(0); val != nil {
		result = val.(*services.RaiseResult)
	}
	return result, args.Error(1)
}

func (m *SOSServiceMock) Accept(ctx context.Context, sosID, volunteerID primitive.ObjectID) (*services.AcceptResult, error) {
	args := m.Called(ctx, sosID, volunteerID)
	var result *services.AcceptResult
	if val := args.Get(0); val != nil {
		result = val.(*services.AcceptResult)
	}
	return result, args.Error(1)
}

func (m *SOSServiceMock) Resolve(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOS, error) {
	args := m.Called(ctx, sosID, requesterID, role)
	var sos *models.SOS
	if val := args.Get(0); val != nil {
		sos = val.(*models.SOS)
	}
	return sos, args.Error(1)
}

func (m *SOSServiceMock) ListActive(ctx context.Context) ([]*models.SOS, error) {
	args := m.Called(ctx)
	var list []*models.SOS
	if val := args.Get(0); val != nil {
		list = val.([]*models.SOS)
	}
	return list, args.Error(1)
}

func (m *SOSServiceMock) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*models.SOS, error) {
	args := m.Called(ctx, userID)
	var list []*models.SOS
	if val := args.Get(0); val != nil {
		list = val.([]*models.SOS)
	}
	return list, args.Error(1)
}

func (m *SOSServiceMock) GetByID(ctx context.Context, sosID, requesterID primitive.ObjectID, role models.UserRole) (*models.SOSDetail, error) {
	args := m.Called(ctx, sosID, requesterID, role)
	var detail *models.SOSDetail
	if val := args.Get(0); val != nil {
		detail = val.(*models.SOSDetail)
	}
	return detail, args.Error(1)
}

func (m *SOSServiceMock) MarkRead(ctx context.Context, sosID, volunteerID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, sosID, volunteerID)
	return args.Bool(0), args.Error(1)
}

func (m *SOSServiceMock) RelayVolunteerLocation(ctx context.Context, volunteerID, sosID primitive.ObjectID, coordinates models.Coordinates) error {
	args := m.Called(ctx, volunteerID, sosID, coordinates)
	return args.Error(0)
}

type ChatServiceMock struct {
	mock.Mock
}

var _ services.ChatService = (*ChatServiceMock)(nil)

func (m *ChatServiceMock) GetOrCreate(ctx context.Context, requesterID primitive.ObjectID, participantIDs []primitive.ObjectID, relatedSOS *primitive.ObjectID) (*models.Chat, bool, error) {
	args := m.Called(ctx, requesterID, participantIDs, relatedSOS)
	var chat *models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(*models.Chat)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatServiceMock) GetOrCreateSOSChat(ctx context.Context, sosID, creatorID, volunteerID primitive.ObjectID, seedMessage string) (*models.Chat, bool, error) {
	args := m.Called(ctx, sosID, creatorID, volunteerID, seedMessage)
	var chat *models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(*models.Chat)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatServiceMock) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error) {
	args := m.Called(ctx, userID)
	var list []*models.Chat
	if val := args.Get(0); val != nil {
		list = val.([]*models.Chat)
	}
	return list, args.Error(1)
}

func (m *ChatServiceMock) GetChat(ctx context.Context, chatID, requesterID primitive.ObjectID) (*models.Chat, error) {
	args := m.Called(ctx, chatID, requesterID)
	var chat *models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(*models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatServiceMock) Send(ctx context.Context, chatID, senderID primitive.ObjectID, content string) (*models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) GetMessages(ctx context.Context, chatID, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Message, int64, error) {
	args := m.Called(ctx, chatID, requesterID, params)
	var msgs []*models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]*models.Message)
	}
	return msgs, args.Get(1).(int64), args.Error(2)
}

func (m *ChatServiceMock) MarkRead(ctx context.Context, chatID, readerID primitive.ObjectID) (*services.ChatReadResult, error) {
	args := m.Called(ctx, chatID, readerID)
	var result *services.ChatReadResult
	if val := args.Get(0); val != nil {
		result = val.(*services.ChatReadResult)
	}
	return result, args.Error(1)
}

func (m *ChatServiceMock) MarkMessageRead(ctx context.Context, chatID, messageID, readerID primitive.ObjectID) error {
	args := m.Called(ctx, chatID, messageID, readerID)
	return args.Error(0)
}

type NotificationServiceMock struct {
	mock.Mock
}

var _ services.NotificationService = (*NotificationServiceMock)(nil)

func (m *NotificationServiceMock) FanOutSOS(ctx context.Context, sos *models.SOS, creator *models.User, volunteers []*models.User) services.FanOutResult {
	args := m.Called(ctx, sos, creator, volunteers)
	return args.Get(0).(services.FanOutResult)
}

func (m *NotificationServiceMock) Notify(ctx context.Context, req *services.NotifyRequest) (*models.Notification, error) {
	args := m.Called(ctx, req)
	var n *models.Notification
	if val := args.Get(0); val != nil {
		n = val.(*models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationServiceMock) AlertContacts(ctx context.Context, sos *models.SOS, creator *models.User, contacts []models.Contact) {
	m.Called(ctx, sos, creator, contacts)
}

func (m *NotificationServiceMock) List(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	args := m.Called(ctx, userID)
	var list []*models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]*models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationServiceMock) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationServiceMock) MarkRead(ctx context.Context, notificationID, requesterID primitive.ObjectID) (*models.Notification, error) {
	args := m.Called(ctx, notificationID, requesterID)
	var n *models.Notification
	if val := args.Get(0); val != nil {
		n = val.(*models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationServiceMock) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationServiceMock) MarkRelatedRead(ctx context.Context, userID primitive.ObjectID, related models.RelatedRef, notificationType models.NotificationType) (int64, error) {
	args := m.Called(ctx, userID, related, notificationType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationServiceMock) SOSReadReceipts(ctx context.Context, sos *models.SOS) ([]models.SOSReadReceipt, error) {
	args := m.Called(ctx, sos)
	var receipts []models.SOSReadReceipt
	if val := args.Get(0); val != nil {
		receipts = val.([]models.SOSReadReceipt)
	}
	return receipts, args.Error(1)
}

func (m *NotificationServiceMock) Wait() {
	m.Called()
}

type AdminServiceMock struct {
	mock.Mock
}

var _ services.AdminService = (*AdminServiceMock)(nil)

func (m *AdminServiceMock) ListSOS(ctx context.Context, filter models.SOSFilter) ([]*models.SOS, error) {
	args := m.Called(ctx, filter)
	var list []*models.SOS
	if val := args.Get(0); val != nil {
		list = val.([]*models.SOS)
	}
	return list, args.Error(1)
}

func (m *AdminServiceMock) Stats(ctx context.Context) (*models.SOSStats, error) {
	args := m.Called(ctx)
	var stats *models.SOSStats
	if val := args.Get(0); val != nil {
		stats = val.(*models.SOSStats)
	}
	return stats, args.Error(1)
}

func (m *AdminServiceMock) DeleteSOS(ctx context.Context, sosID, adminID primitive.ObjectID) error {
	args := m.Called(ctx, sosID, adminID)
	return args.Error(0)
}

func (m *AdminServiceMock) SafetyReport(ctx context.Context, start, end *time.Time) ([]models.SafetyReportRow, error) {
	args := m.Called(ctx, start, end)
	var rows []models.SafetyReportRow
	if val := args.Get(0); val != nil {
		rows = val.([]models.SafetyReportRow)
	}
	return rows, args.Error(1)
}

func (m *AdminServiceMock) ApproveUser(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID, adminID)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *AdminServiceMock) RejectUser(ctx context.Context, userID, adminID primitive.ObjectID) error {
	args := m.Called(ctx, userID, adminID)
	return args.Error(0)
}

func (m *AdminServiceMock) Blacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID, adminID)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *AdminServiceMock) Unblacklist(ctx context.Context, userID, adminID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID, adminID)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *AdminServiceMock) ListBlacklisted(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	var users []*models.User
	if val := args.Get(0); val != nil {
		users = val.([]*models.User)
	}
	return users, args.Error(1)
}
