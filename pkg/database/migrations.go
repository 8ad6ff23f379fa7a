package database

import (
	"context"
	"fmt"
	"time"

	"rescuelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log,
	}
}

// Up applies every migration newer than the stored version, in order.
func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(CollectionMigrations).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.db.Collection(CollectionMigrations).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{Version: 1, Description: "Create users indexes", Up: createUsersIndexes},
		{Version: 2, Description: "Create sos_cases indexes", Up: createSOSIndexes},
		{Version: 3, Description: "Create notifications indexes", Up: createNotificationsIndexes},
		{Version: 4, Description: "Create chats and chat_messages indexes", Up: createChatIndexes},
		{Version: 5, Description: "Create contacts indexes", Up: createContactsIndexes},
		{Version: 6, Description: "Index chats by related sos", Up: createChatSOSIndex},
	}
}

func createUsersIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "volunteer_status", Value: 1},
				{Key: "is_verified", Value: 1},
				{Key: "is_approved", Value: 1},
				{Key: "blacklisted", Value: 1},
			},
		},
	}

	_, err := db.Collection(CollectionUsers).Indexes().CreateMany(ctx, indexes)
	return err
}

func createSOSIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "is_resolved", Value: 1},
				{Key: "is_contact", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := db.Collection(CollectionSOS).Indexes().CreateMany(ctx, indexes)
	return err
}

func createNotificationsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "related_id", Value: 1},
				{Key: "type", Value: 1},
				{Key: "is_read", Value: 1},
			},
		},
	}

	_, err := db.Collection(CollectionNotifications).Indexes().CreateMany(ctx, indexes)
	return err
}

func createChatIndexes(ctx context.Context, db *mongo.Database) error {
	chatIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participant_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	}
	if _, err := db.Collection(CollectionChats).Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := db.Collection(CollectionMessages).Indexes().CreateMany(ctx, messageIndexes)
	return err
}

func createChatSOSIndex(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionChats).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "related_sos", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	return err
}

func createContactsIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionContacts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
