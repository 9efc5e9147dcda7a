package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainprofile "talentsync/internal/domain/profile"
	domainuser "talentsync/internal/domain/user"
)

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection("agg_profile")}
}

var _ domainprofile.Repository = (*ProfileRepository)(nil)

func (r *ProfileRepository) ByUser(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	var doc profileDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainprofile.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProfileRepository) Save(ctx context.Context, p *domainprofile.Profile) error {
	doc := newProfileDocument(p)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, opts)
	return err
}

type profileDocument struct {
	UserID          string   `bson:"_id"`
	DisplayName     string   `bson:"display_name"`
	Headline        string   `bson:"headline"`
	Bio             string   `bson:"bio"`
	Skills          []string `bson:"skills"`
	Location        string   `bson:"location"`
	AvatarURL       string   `bson:"avatar_url"`
	HourlyRateCents int64    `bson:"hourly_rate_cents"`
	Available       bool     `bson:"available"`
	UpdatedAt       int64    `bson:"updated_at"`
}

func newProfileDocument(p *domainprofile.Profile) profileDocument {
	return profileDocument{
		UserID:          string(p.UserID),
		DisplayName:     p.DisplayName,
		Headline:        p.Headline,
		Bio:             p.Bio,
		Skills:          p.Skills,
		Location:        p.Location,
		AvatarURL:       p.AvatarURL,
		HourlyRateCents: p.HourlyRateCents,
		Available:       p.Available,
		UpdatedAt:       p.UpdatedAt.UnixMilli(),
	}
}

func (d profileDocument) toAggregate() *domainprofile.Profile {
	return &domainprofile.Profile{
		UserID:          domainuser.ID(d.UserID),
		DisplayName:     d.DisplayName,
		Headline:        d.Headline,
		Bio:             d.Bio,
		Skills:          d.Skills,
		Location:        d.Location,
		AvatarURL:       d.AvatarURL,
		HourlyRateCents: d.HourlyRateCents,
		Available:       d.Available,
		UpdatedAt:       timestampToTime(d.UpdatedAt),
	}
}
