package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"well_bbs/internal/core/config"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
)

func newUserService(e *testEnv) *UserService {
	return NewUserService(e.users, e.rdb,
		&config.CacheConfig{L1Cap: 8, L2TTL: 60},
		&config.JWTConfig{Secret: "test-secret", Expiry: 3600, RefreshExpiry: 7200})
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(e)

	reg, err := svc.Register(ctx, &model.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, reg.User.Role)

	_, err = svc.Register(ctx, &model.RegisterRequest{Username: "alice", Password: "secret2"})
	requireAppError(t, err, apperr.KindValidation, apperr.CodeUsernameTaken)

	_, err = svc.Login(ctx, &model.LoginRequest{Username: "alice", Password: "wrong!"})
	requireAppError(t, err, apperr.KindUnauthenticated, apperr.CodeBadCredentials)

	resp, err := svc.Login(ctx, &model.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)

	actor, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	require.Equal(t, reg.User.Uid, actor.Uid)
	require.Equal(t, model.RoleUser, actor.Role)
	require.True(t, actor.IsActive)

	// refresh tokens are not access tokens
	_, err = svc.Authenticate(ctx, resp.RefreshToken)
	requireAppError(t, err, apperr.KindUnauthenticated, apperr.CodeUnauthorized)

	refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.Token)
}

func TestAuthenticateRejectsDisabledAndBadTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(e)

	_, err := svc.Register(ctx, &model.RegisterRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, &model.LoginRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not-a-token")
	requireAppError(t, err, apperr.KindUnauthenticated, apperr.CodeUnauthorized)

	other := NewUserService(e.users, e.rdb, &config.CacheConfig{L1Cap: 8, L2TTL: 60}, &config.JWTConfig{Secret: "other"})
	_, err = other.Authenticate(ctx, resp.Token)
	requireAppError(t, err, apperr.KindUnauthenticated, apperr.CodeUnauthorized)

	require.NoError(t, svc.SetStatus(ctx, resp.User.Uid, model.UserStatusDisabled))
	_, err = svc.Authenticate(ctx, resp.Token)
	requireAppError(t, err, apperr.KindUnauthenticated, apperr.CodeUnauthorized)

	_, err = svc.Login(ctx, &model.LoginRequest{Username: "bob", Password: "secret1"})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeAccountDisabled)
}

func TestSetRoleInvalidatesCache(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(e)
	u := e.createUser(t, "carol", model.RoleUser, 0)

	dto, err := svc.GetUserByID(ctx, u.Uid)
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, dto.Role)

	require.NoError(t, svc.SetRole(ctx, u.Uid, model.RoleModerator))
	dto, err = svc.GetUserByID(ctx, u.Uid)
	require.NoError(t, err)
	require.Equal(t, model.RoleModerator, dto.Role)

	err = svc.SetRole(ctx, u.Uid, model.RoleGuest)
	requireAppError(t, err, apperr.KindValidation, apperr.CodeBadRequest)

	err = svc.SetRole(ctx, 404, model.RoleAdmin)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodeNotFound)
}
