package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnotif "talentsync/internal/domain/notification"
	domainuser "talentsync/internal/domain/user"
)

type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	col := db.Collection("agg_notification")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return &NotificationRepository{col: col}
}

var _ domainnotif.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) ByID(ctx context.Context, id domainnotif.ID) (*domainnotif.Notification, error) {
	var doc notificationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainnotif.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *NotificationRepository) ForUser(ctx context.Context, id domainuser.ID) ([]*domainnotif.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainnotif.Notification
	for cur.Next(ctx) {
		var doc notificationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *NotificationRepository) Save(ctx context.Context, n *domainnotif.Notification) error {
	doc := newNotificationDocument(n)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type notificationDocument struct {
	ID        string            `bson:"_id"`
	UserID    string            `bson:"user_id"`
	Type      string            `bson:"type"`
	Title     string            `bson:"title"`
	Message   string            `bson:"message,omitempty"`
	ActionURL string            `bson:"action_url,omitempty"`
	Data      map[string]string `bson:"data,omitempty"`
	Processed bool              `bson:"processed"`
	Read      bool              `bson:"read"`
	CreatedAt int64             `bson:"created_at"`
	ReadAt    int64             `bson:"read_at,omitempty"`
}

func newNotificationDocument(n *domainnotif.Notification) notificationDocument {
	return notificationDocument{
		ID:        string(n.ID),
		UserID:    string(n.UserID),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		Data:      n.Data,
		Processed: n.Processed,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UnixMilli(),
		ReadAt:    timeToTimestamp(n.ReadAt),
	}
}

func (d notificationDocument) toAggregate() *domainnotif.Notification {
	return &domainnotif.Notification{
		ID:        domainnotif.ID(d.ID),
		UserID:    domainuser.ID(d.UserID),
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		ActionURL: d.ActionURL,
		Data:      d.Data,
		Processed: d.Processed,
		Read:      d.Read,
		CreatedAt: timestampToTime(d.CreatedAt),
		ReadAt:    timestampToTimeOrZero(d.ReadAt),
	}
}

// PreferenceStore keeps admin channel toggles. Absent documents mean enabled.
type PreferenceStore struct {
	col *mongo.Collection
}

func NewPreferenceStore(db *mongo.Database) *PreferenceStore {
	return &PreferenceStore{col: db.Collection("notification_preferences")}
}

var _ domainnotif.PreferenceStore = (*PreferenceStore)(nil)

type preferenceDocument struct {
	ID      string `bson:"_id"`
	Type    string `bson:"type"`
	Channel string `bson:"channel"`
	Enabled bool   `bson:"enabled"`
}

func (s *PreferenceStore) Enabled(ctx context.Context, notificationType string, channel domainnotif.Channel) (bool, error) {
	var doc preferenceDocument
	err := s.col.FindOne(ctx, bson.M{"_id": preferenceID(notificationType, channel)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return doc.Enabled, nil
}

func (s *PreferenceStore) Set(ctx context.Context, pref domainnotif.ChannelPreference) error {
	doc := preferenceDocument{
		ID:      preferenceID(pref.Type, pref.Channel),
		Type:    pref.Type,
		Channel: string(pref.Channel),
		Enabled: pref.Enabled,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (s *PreferenceStore) List(ctx context.Context) ([]domainnotif.ChannelPreference, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainnotif.ChannelPreference
	for cur.Next(ctx) {
		var doc preferenceDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainnotif.ChannelPreference{
			Type:    doc.Type,
			Channel: domainnotif.Channel(doc.Channel),
			Enabled: doc.Enabled,
		})
	}
	return out, cur.Err()
}

func preferenceID(notificationType string, channel domainnotif.Channel) string {
	return notificationType + ":" + string(channel)
}
