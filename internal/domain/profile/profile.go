package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"talentsync/internal/domain/user"
)

var (
	ErrUserRequired        = errors.New("profile: user id is required")
	ErrDisplayNameRequired = errors.New("profile: display name is required")
	ErrNotFound            = errors.New("profile: not found")
)

// Profile is the denormalized public profile the rest of the product reads:
// base account fields plus the talent-specific ones, in one row.
type Profile struct {
	UserID          user.ID
	DisplayName     string
	Headline        string
	Bio             string
	Skills          []string
	Location        string
	AvatarURL       string
	HourlyRateCents int64
	Available       bool
	UpdatedAt       time.Time
}

type CreateParams struct {
	UserID      user.ID
	DisplayName string
	Headline    string
	Bio         string
	Skills      []string
	Location    string
	AvatarURL   string
	Now         time.Time
}

func New(params CreateParams) (*Profile, error) {
	id := strings.TrimSpace(string(params.UserID))
	if id == "" {
		return nil, ErrUserRequired
	}
	name := strings.TrimSpace(params.DisplayName)
	if name == "" {
		return nil, ErrDisplayNameRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Profile{
		UserID:      user.ID(id),
		DisplayName: name,
		Headline:    strings.TrimSpace(params.Headline),
		Bio:         strings.TrimSpace(params.Bio),
		Skills:      append([]string(nil), params.Skills...),
		Location:    strings.TrimSpace(params.Location),
		AvatarURL:   strings.TrimSpace(params.AvatarURL),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Patch carries partial updates; nil fields are left alone.
type Patch struct {
	DisplayName     *string
	Headline        *string
	Bio             *string
	Skills          *[]string
	Location        *string
	AvatarURL       *string
	HourlyRateCents *int64
	Available       *bool
}

func (p *Profile) Apply(patch Patch, now time.Time) error {
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" {
			return ErrDisplayNameRequired
		}
		p.DisplayName = name
	}
	if patch.Headline != nil {
		p.Headline = strings.TrimSpace(*patch.Headline)
	}
	if patch.Bio != nil {
		p.Bio = strings.TrimSpace(*patch.Bio)
	}
	if patch.Skills != nil {
		p.Skills = append([]string(nil), (*patch.Skills)...)
	}
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}
	if patch.HourlyRateCents != nil {
		p.HourlyRateCents = *patch.HourlyRateCents
	}
	if patch.Available != nil {
		p.Available = *patch.Available
	}
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Skills = append([]string(nil), p.Skills...)
	return &cp
}

type Repository interface {
	ByUser(ctx context.Context, id user.ID) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}
