package services

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beer/backend/internal/models"
)

// MongoAuditService is the durable AuditLog: append-only admin_actions and
// admin_notifications collections.
type MongoAuditService struct {
	client        *mongo.Client
	db            *mongo.Database
	actionsCol    *mongo.Collection
	notificationsCol *mongo.Collection
}

func NewMongoAuditService(ctx context.Context, mongoURI, dbName string) (*MongoAuditService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	actions := db.Collection("admin_actions")
	notifications := db.Collection("admin_notifications")

	// Best-effort indexes.
	_, _ = actions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	_, _ = notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "read", Value: 1}, {Key: "created_at", Value: -1}},
	})

	return &MongoAuditService{
		client:           client,
		db:               db,
		actionsCol:       actions,
		notificationsCol: notifications,
	}, nil
}

func (s *MongoAuditService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoAuditService) LogAction(ctx context.Context, action *models.AdminAction) error {
	a := *action
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := s.actionsCol.InsertOne(ctx, a)
	return err
}

func (s *MongoAuditService) RecentActions(ctx context.Context, userID string, limit int) ([]*models.AdminAction, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := s.actionsCol.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.AdminAction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoAuditService) Notify(ctx context.Context, n *models.AdminNotification) error {
	c := *n
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.notificationsCol.InsertOne(ctx, c)
	return err
}

func (s *MongoAuditService) Notifications(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	filter := bson.M{}
	if onlyUnread {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := s.notificationsCol.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.AdminNotification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
