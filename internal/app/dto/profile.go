package dto

import (
	"time"

	domainprofile "talentsync/internal/domain/profile"
)

type Profile struct {
	UserID          string    `json:"user_id"`
	DisplayName     string    `json:"display_name"`
	Headline        string    `json:"headline,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	Location        string    `json:"location,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	HourlyRateCents int64     `json:"hourly_rate_cents,omitempty"`
	Available       bool      `json:"available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func MapProfile(p *domainprofile.Profile) Profile {
	if p == nil {
		return Profile{}
	}
	return Profile{
		UserID:          string(p.UserID),
		DisplayName:     p.DisplayName,
		Headline:        p.Headline,
		Bio:             p.Bio,
		Skills:          append([]string(nil), p.Skills...),
		Location:        p.Location,
		AvatarURL:       p.AvatarURL,
		HourlyRateCents: p.HourlyRateCents,
		Available:       p.Available,
		UpdatedAt:       p.UpdatedAt,
	}
}
