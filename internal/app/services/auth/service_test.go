package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "talentsync/internal/app/services/auth"
	domainauth "talentsync/internal/domain/auth"
	domainuser "talentsync/internal/domain/user"
	"talentsync/internal/infra/security"
	"talentsync/internal/infra/storage/memory"
)

func newService() *authsvc.Service {
	return &authsvc.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
}

func TestRegister_DefaultsToTalentRole(t *testing.T) {
	svc := newService()
	res, err := svc.Register(context.Background(), authsvc.RegisterParams{
		Email:    "Alice@Example.COM",
		Name:     "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, []domainuser.Role{domainuser.RoleTalent}, res.User.Roles)
	assert.NotEmpty(t, res.Token)
}

func TestRegister_BusinessRoleOptIn(t *testing.T) {
	svc := newService()
	res, err := svc.Register(context.Background(), authsvc.RegisterParams{
		Email:    "agency@example.com",
		Name:     "Agency",
		Password: "correct horse",
		Role:     "business",
	})
	require.NoError(t, err)
	assert.Equal(t, []domainuser.Role{domainuser.RoleBusiness}, res.User.Roles)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newService()
	_, err := svc.Register(context.Background(), authsvc.RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "short",
	})
	assert.ErrorIs(t, err, authsvc.ErrPasswordTooShort)
}

func TestLogin_RoundTrip(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Register(ctx, authsvc.RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	res, err := svc.Login(ctx, authsvc.LoginParams{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	resolved, err := svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, resolved.User.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Register(ctx, authsvc.RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, authsvc.LoginParams{Email: "alice@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	// Unknown accounts fail the same way, no user enumeration.
	_, err = svc.Login(ctx, authsvc.LoginParams{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	res, err := svc.Register(ctx, authsvc.RegisterParams{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))

	_, err = svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
