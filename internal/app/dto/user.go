package dto

import (
	"time"

	domainuser "talentsync/internal/domain/user"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// MapUser projects the account without its password hash.
func MapUser(user *domainuser.User) User {
	if user == nil {
		return User{}
	}
	out := User{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		Roles:     make([]string, 0, len(user.Roles)),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	for _, role := range user.Roles {
		out.Roles = append(out.Roles, string(role))
	}
	return out
}
