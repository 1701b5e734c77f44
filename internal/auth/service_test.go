package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/memstore"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Secret:            "0123456789abcdef0123456789abcdef",
		SessionTTL:        7 * 24 * time.Hour,
		SessionUpdateAge:  24 * time.Hour,
		CookieName:        "blogcms.session_token",
		MinPasswordLength: 6,
		MaxPasswordLength: 128,
		RateLimit:         100,
		RateBurst:         100,
	}
}

func newTestService(t *testing.T) (*Service, *memstore.DB) {
	t.Helper()

	db := memstore.New()
	svc := NewService(db.Users(), db.Sessions(), testAuthConfig())
	svc.cost = bcrypt.MinCost

	return svc, db
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.SignUp(ctx, SignUpRequest{Name: " Peter ", Email: "Peter@Example.com", Password: "secret1"}, ClientMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "Peter", id.User.Name)
	assert.Equal(t, "peter@example.com", id.User.Email)
	assert.NotEqual(t, "secret1", id.User.PasswordHash)
	assert.Equal(t, "10.0.0.1", id.Session.IPAddress)
	assert.NotEmpty(t, id.Token)

	_, err = svc.SignUp(ctx, SignUpRequest{Name: "Dup", Email: "peter@example.com", Password: "secret1"}, ClientMeta{})
	assert.ErrorIs(t, err, model.ErrConflict)

	in, err := svc.SignIn(ctx, SignInRequest{Email: "PETER@example.com", Password: "secret1"}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, id.User.ID, in.User.ID)
	assert.NotEqual(t, id.Session.Token, in.Session.Token)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "peter@example.com", Password: "wrong-one"}, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret1"}, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "not-an-email", Password: "123"}, ClientMeta{})

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Name is required", verr.Message("name"))
	assert.Equal(t, "Please enter a valid email address", verr.Message("email"))
	assert.Equal(t, "Password must be at least 6 characters", verr.Message("password"))

	_, err = svc.SignUp(context.Background(), SignUpRequest{Name: "n", Email: "a@b.co", Password: strings.Repeat("x", 129)}, ClientMeta{})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Password must be at most 128 characters", verr.Message("password"))

	_, err = svc.SignUp(context.Background(), SignUpRequest{Name: "   ", Email: "blank@b.co", Password: "secret1"}, ClientMeta{})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Name is required", verr.Message("name"))
}

func TestLongPasswordRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	long := strings.Repeat("p", 100)

	_, err := svc.SignUp(ctx, SignUpRequest{Name: "Long", Email: "long@example.com", Password: long}, ClientMeta{})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "long@example.com", Password: long}, ClientMeta{})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "long@example.com", Password: long[:99] + "q"}, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.SignUp(ctx, SignUpRequest{Name: "Peter", Email: "peter@example.com", Password: "secret1"}, ClientMeta{})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, id.Token)
	require.NoError(t, err)
	assert.Equal(t, id.User.ID, got.User.ID)
	assert.False(t, got.Refreshed)

	_, err = svc.Authenticate(ctx, id.Token+"x")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	require.NoError(t, svc.SignOut(ctx, id.Token))
	_, err = svc.Authenticate(ctx, id.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuthenticateExtendsOldSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	clock := func() time.Time { return now }
	svc.now = clock
	svc.codec.now = clock

	id, err := svc.SignUp(ctx, SignUpRequest{Name: "Peter", Email: "peter@example.com", Password: "secret1"}, ClientMeta{})
	require.NoError(t, err)
	firstExpiry := id.Session.ExpiresAt

	now = now.Add(25 * time.Hour)
	got, err := svc.Authenticate(ctx, id.Token)
	require.NoError(t, err)
	assert.True(t, got.Refreshed)
	assert.True(t, got.Session.ExpiresAt.After(firstExpiry))
	assert.NotEqual(t, id.Token, got.Token)

	again, err := svc.Authenticate(ctx, got.Token)
	require.NoError(t, err)
	assert.False(t, again.Refreshed)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	clock := func() time.Time { return now }
	svc.now = clock
	svc.codec.now = clock

	id, err := svc.SignUp(ctx, SignUpRequest{Name: "Peter", Email: "peter@example.com", Password: "secret1"}, ClientMeta{})
	require.NoError(t, err)

	now = now.Add(8 * 24 * time.Hour)
	_, err = svc.Authenticate(ctx, id.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestTokenCodecRejectsOtherSecret(t *testing.T) {
	a := NewTokenCodec("0123456789abcdef0123456789abcdef")
	b := NewTokenCodec("fedcba9876543210fedcba9876543210")

	tok, err := a.Sign("sid", "uid", time.Now().Add(time.Hour))
	require.NoError(t, err)

	sid, uid, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sid", sid)
	assert.Equal(t, "uid", uid)

	_, _, err = b.Parse(tok)
	assert.Error(t, err)
}
