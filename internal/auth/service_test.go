package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, accessTTL time.Duration) (*auth.Service, *memIdentities, *memRefresh) {
	t.Helper()
	ids := newMemIdentities()
	rt := newMemRefresh()
	ids.refresh = rt
	svc := auth.NewService(auth.NewManager("test-secret", accessTTL, 24*time.Hour), ids, rt, nil)
	return svc, ids, rt
}

func TestService_SignUpThenSignIn(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: " Sam@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	_, err = svc.SignUp(ctx, user.SignUpRequest{Email: "sam@example.com", Password: "password123"})
	assert.ErrorIs(t, err, user.ErrEmailAlreadyUsed)

	in, err := svc.SignIn(ctx, "SAM@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, in.User.ID)

	_, err = svc.SignIn(ctx, "sam@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestService_RefreshRotatesAndRejectsReuse(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, sess.User.ID, rotated.User.ID)

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid, "old refresh token must be dead after rotation")

	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestService_RefreshGarbageIsInvalid(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)

	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestService_RefreshUpstreamErrorIsNotInvalid(t *testing.T) {
	svc, _, rt := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	rt.rotateErr = errors.New("connection refused")
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestService_RevokeKillsRefresh(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, sess.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, sess.RefreshToken), "revoke is idempotent")
	require.NoError(t, svc.Revoke(ctx, "garbage"))

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestService_Verify(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	u, exp, err := svc.Verify(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User, u)
	assert.WithinDuration(t, sess.AccessExpiresAt, exp, time.Second)

	_, _, err = svc.Verify(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestService_VerifyRejectsAccessTokenAfterSignOut(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	other, err := svc.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, sess.RefreshToken))

	_, _, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)

	_, _, err = svc.Verify(ctx, other.AccessToken)
	assert.NoError(t, err, "signing out one session leaves the others alone")
}

func TestService_VerifyRejectsAccessTokenAfterRotatedSignOut(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, sess.AccessToken)
	require.NoError(t, err, "a rotation keeps in-flight access tokens of the session valid")

	require.NoError(t, svc.Revoke(ctx, rotated.RefreshToken))

	for _, tok := range []string{sess.AccessToken, rotated.AccessToken} {
		_, _, err = svc.Verify(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	}
}

func TestService_VerifyRejectsAccessTokenOfDeletedIdentity(t *testing.T) {
	svc, ids, _ := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, ids.Delete(ctx, sess.User.ID))

	_, _, err = svc.Verify(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestService_VerifyUpstreamErrorIsNotInvalid(t *testing.T) {
	svc, _, rt := newService(t, time.Hour)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, user.SignUpRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	rt.err = errors.New("connection refused")
	_, _, err = svc.Verify(ctx, sess.AccessToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrSessionInvalid)
}
