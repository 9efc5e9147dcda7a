package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainconv "talentsync/internal/domain/conversation"
	domainuser "talentsync/internal/domain/user"
)

type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	col := db.Collection("agg_conversation")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "business_id", Value: 1}}},
		{Keys: bson.D{{Key: "talent_id", Value: 1}}},
		{
			Keys: bson.D{
				{Key: "business_id", Value: 1},
				{Key: "talent_id", Value: 1},
				{Key: "relation", Value: 1},
				{Key: "relation_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	return &ConversationRepository{col: col}
}

var _ domainconv.Repository = (*ConversationRepository)(nil)

func (r *ConversationRepository) ByID(ctx context.Context, id domainconv.ID) (*domainconv.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainconv.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ForParticipant(ctx context.Context, id domainuser.ID) ([]*domainconv.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"business_id": string(id)},
		bson.M{"talent_id": string(id)},
	}}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainconv.Conversation
	for cur.Next(ctx) {
		var doc conversationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *ConversationRepository) ByParticipantsAndRelation(ctx context.Context, businessID, talentID domainuser.ID, relation domainconv.RelationType, relationID string) (*domainconv.Conversation, error) {
	filter := bson.M{
		"business_id": string(businessID),
		"talent_id":   string(talentID),
		"relation":    string(relation),
		"relation_id": relationID,
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainconv.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) Save(ctx context.Context, conv *domainconv.Conversation) error {
	doc := newConversationDocument(conv)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type conversationDocument struct {
	ID           string                   `bson:"_id"`
	BusinessID   string                   `bson:"business_id"`
	TalentID     string                   `bson:"talent_id"`
	Relation     string                   `bson:"relation"`
	RelationID   string                   `bson:"relation_id"`
	LastText     string                   `bson:"last_text"`
	LastSenderID string                   `bson:"last_sender_id"`
	LastAt       int64                    `bson:"last_at"`
	CreatedAt    int64                    `bson:"created_at"`
	UpdatedAt    int64                    `bson:"updated_at"`
	States       map[string]stateDocument `bson:"states"`
}

type stateDocument struct {
	Unread   int  `bson:"unread"`
	Archived bool `bson:"archived"`
}

func newConversationDocument(conv *domainconv.Conversation) conversationDocument {
	states := make(map[string]stateDocument, len(conv.States))
	for uid, st := range conv.States {
		states[string(uid)] = stateDocument{Unread: st.Unread, Archived: st.Archived}
	}
	return conversationDocument{
		ID:           string(conv.ID),
		BusinessID:   string(conv.BusinessID),
		TalentID:     string(conv.TalentID),
		Relation:     string(conv.Relation),
		RelationID:   conv.RelationID,
		LastText:     conv.LastText,
		LastSenderID: string(conv.LastSenderID),
		LastAt:       timeToTimestamp(conv.LastAt),
		CreatedAt:    conv.CreatedAt.UnixMilli(),
		UpdatedAt:    conv.UpdatedAt.UnixMilli(),
		States:       states,
	}
}

func (d conversationDocument) toAggregate() *domainconv.Conversation {
	states := make(map[domainuser.ID]*domainconv.ParticipantState, len(d.States))
	for uid, st := range d.States {
		states[domainuser.ID(uid)] = &domainconv.ParticipantState{Unread: st.Unread, Archived: st.Archived}
	}
	return &domainconv.Conversation{
		ID:           domainconv.ID(d.ID),
		BusinessID:   domainuser.ID(d.BusinessID),
		TalentID:     domainuser.ID(d.TalentID),
		Relation:     domainconv.RelationType(d.Relation),
		RelationID:   d.RelationID,
		LastText:     d.LastText,
		LastSenderID: domainuser.ID(d.LastSenderID),
		LastAt:       timestampToTimeOrZero(d.LastAt),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		States:       states,
	}
}

func timeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timestampToTimeOrZero(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return timestampToTime(ms)
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
