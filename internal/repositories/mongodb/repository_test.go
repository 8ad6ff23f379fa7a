package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func findAndModifyResponse(value interface{}) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: value}}
}

func TestSOSRepositoryAddAcceptance(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	volunteer := primitive.NewObjectID()

	mt.Run("appends volunteer", func(mt *mtest.T) {
		repo := NewSOSRepository(mt.DB)
		sos := models.SOS{ID: primitive.NewObjectID(), AcceptedBy: []primitive.ObjectID{volunteer}}
		mt.AddMockResponses(findAndModifyResponse(toDoc(t, sos)))

		got, err := repo.AddAcceptance(ctx, sos.ID, volunteer)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{volunteer}, got.AcceptedBy)
	})

	mt.Run("classifies duplicate acceptance", func(mt *mtest.T) {
		repo := NewSOSRepository(mt.DB)
		sos := models.SOS{ID: primitive.NewObjectID(), AcceptedBy: []primitive.ObjectID{volunteer}}
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, "rescuelink.sos_cases", mtest.FirstBatch, toDoc(t, sos)),
		)

		_, err := repo.AddAcceptance(ctx, sos.ID, volunteer)
		assert.ErrorIs(t, err, interfaces.ErrAlreadyAccepted)
	})

	mt.Run("classifies resolved case", func(mt *mtest.T) {
		repo := NewSOSRepository(mt.DB)
		sos := models.SOS{ID: primitive.NewObjectID(), IsResolved: true, AcceptedBy: []primitive.ObjectID{}}
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, "rescuelink.sos_cases", mtest.FirstBatch, toDoc(t, sos)),
		)

		_, err := repo.AddAcceptance(ctx, sos.ID, volunteer)
		assert.ErrorIs(t, err, interfaces.ErrAlreadyResolved)
	})

	mt.Run("classifies missing case", func(mt *mtest.T) {
		repo := NewSOSRepository(mt.DB)
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, "rescuelink.sos_cases", mtest.FirstBatch),
		)

		_, err := repo.AddAcceptance(ctx, primitive.NewObjectID(), volunteer)
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}

func TestSOSRepositoryMarkResolvedTwice(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second resolve reports state", func(mt *mtest.T) {
		repo := NewSOSRepository(mt.DB)
		now := time.Now().UTC().Truncate(time.Millisecond)
		sos := models.SOS{ID: primitive.NewObjectID(), IsResolved: true, ResolvedAt: &now, AcceptedBy: []primitive.ObjectID{}}
		mt.AddMockResponses(
			findAndModifyResponse(nil),
			mtest.CreateCursorResponse(0, "rescuelink.sos_cases", mtest.FirstBatch, toDoc(t, sos)),
		)

		got, err := repo.MarkResolved(context.Background(), sos.ID, time.Now())
		assert.ErrorIs(t, err, interfaces.ErrAlreadyResolved)
		require.NotNil(t, got)
		assert.True(t, got.IsResolved)
	})
}

func TestChatRepositoryGetOrCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	sosID := primitive.NewObjectID()
	key := models.ChatParticipantKey([]primitive.ObjectID{a, b}, &sosID)

	mt.Run("returns existing room", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		existing := models.Chat{ID: primitive.NewObjectID(), Participants: []primitive.ObjectID{a, b}, ParticipantKey: key, RelatedSOS: &sosID}
		mt.AddMockResponses(findAndModifyResponse(toDoc(t, existing)))

		got, created, err := repo.GetOrCreate(context.Background(), &models.Chat{Participants: []primitive.ObjectID{a, b}, ParticipantKey: key, RelatedSOS: &sosID})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, got.ID)
	})

	mt.Run("losing a racing upsert re-reads the winner", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		winner := models.Chat{ID: primitive.NewObjectID(), Participants: []primitive.ObjectID{a, b}, ParticipantKey: key}
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "E11000 duplicate key error", Name: "DuplicateKey"}),
			mtest.CreateCursorResponse(0, "rescuelink.chats", mtest.FirstBatch, toDoc(t, winner)),
		)

		got, created, err := repo.GetOrCreate(context.Background(), &models.Chat{Participants: []primitive.ObjectID{a, b}, ParticipantKey: key})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner.ID, got.ID)
	})
}

func TestMessageRepositoryAddReadReceiptNoop(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("already read", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		mt.AddMockResponses(findAndModifyResponse(nil))

		_, err := repo.AddReadReceipt(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(),
			models.ReadReceipt{UserID: primitive.NewObjectID(), ReadAt: time.Now()})
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})
}

func TestNotificationRepositoryMarkReadTransitions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unread becomes read", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB, nil)
		n := models.Notification{ID: primitive.NewObjectID(), RecipientID: primitive.NewObjectID()}
		mt.AddMockResponses(findAndModifyResponse(toDoc(t, n)))

		changed, err := repo.MarkRead(context.Background(), n.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)
	})

	mt.Run("already read is a no-op", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB, nil)
		mt.AddMockResponses(findAndModifyResponse(nil))

		changed, err := repo.MarkRead(context.Background(), primitive.NewObjectID(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(0), changed)
	})
}

func TestUserRepositoryModeration(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("blacklist returns updated user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		u := models.User{ID: primitive.NewObjectID(), Name: "vol", Blacklisted: true}
		mt.AddMockResponses(findAndModifyResponse(toDoc(t, u)))

		got, err := repo.SetBlacklisted(context.Background(), u.ID, true)
		require.NoError(t, err)
		assert.True(t, got.Blacklisted)
	})

	mt.Run("approve missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(findAndModifyResponse(nil))

		_, err := repo.SetApproved(context.Background(), primitive.NewObjectID(), true)
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("delete missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("lists blacklisted users", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		u := models.User{ID: primitive.NewObjectID(), Name: "banned", Blacklisted: true}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rescuelink.users", mtest.FirstBatch, toDoc(t, u)))

		got, err := repo.ListBlacklisted(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, u.ID, got[0].ID)
	})
}

func TestChatRepositorySOSRoomAndSequence(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	creator, volunteer, friend := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	sosID := primitive.NewObjectID()

	mt.Run("finds a room that includes both members", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		group := models.Chat{ID: primitive.NewObjectID(), Participants: []primitive.ObjectID{creator, volunteer, friend}, RelatedSOS: &sosID}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rescuelink.chats", mtest.FirstBatch, toDoc(t, group)))

		got, err := repo.FindSOSRoom(context.Background(), sosID, []primitive.ObjectID{creator, volunteer})
		require.NoError(t, err)
		assert.Equal(t, group.ID, got.ID)
	})

	mt.Run("no room for the case", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rescuelink.chats", mtest.FirstBatch))

		_, err := repo.FindSOSRoom(context.Background(), sosID, []primitive.ObjectID{creator, volunteer})
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("reserve rejects non participant", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		mt.AddMockResponses(findAndModifyResponse(nil))

		_, err := repo.ReserveSeq(context.Background(), primitive.NewObjectID(), friend)
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	mt.Run("stale last message is a no-op", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := repo.SetLastMessage(context.Background(), primitive.NewObjectID(), models.LastMessage{Seq: 3, Content: "late"})
		assert.NoError(t, err)
	})
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func countResponse(n int32) bson.D {
	return mtest.CreateCursorResponse(0, "rescuelink.notifications", mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestNotificationRepositoryUnreadCountCache(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	recipient := primitive.NewObjectID()

	mt.Run("serves cached count until invalidated", func(mt *mtest.T) {
		cache := newMemCache()
		repo := NewNotificationRepository(mt.DB, cache)

		mt.AddMockResponses(countResponse(4))
		count, err := repo.CountUnread(context.Background(), recipient)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)

		// No response queued: a second database count would fail.
		count, err = repo.CountUnread(context.Background(), recipient)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)

		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 4}, {Key: "nModified", Value: 4}})
		_, err = repo.MarkAllRead(context.Background(), recipient, time.Now())
		require.NoError(t, err)

		mt.AddMockResponses(countResponse(0))
		count, err = repo.CountUnread(context.Background(), recipient)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	mt.Run("late write from an older generation is ignored", func(mt *mtest.T) {
		cache := newMemCache()
		repo := NewNotificationRepository(mt.DB, cache)

		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 2}, {Key: "nModified", Value: 2}})
		_, err := repo.MarkAllRead(context.Background(), recipient, time.Now())
		require.NoError(t, err)

		// A reader that started before the invalidation stores its stale count
		// under the generation it observed.
		require.NoError(t, cache.Set(context.Background(), unreadCountKey(recipient, 0), int64(2), time.Minute))

		mt.AddMockResponses(countResponse(0))
		count, err := repo.CountUnread(context.Background(), recipient)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
