package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	"github.com/Payphone-Digital/contacts-api/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type authFixture struct {
	now    time.Time
	users  *fakeUserStore
	cache  *cache.Cache
	tokens *TokenService
	mailer *fakeDispatcher
	svc    *AuthService
}

func newAuthFixture(t *testing.T, avatars AvatarProvider) *authFixture {
	t.Helper()

	f := &authFixture{
		now:    time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		users:  newFakeUserStore(),
		cache:  cache.NewCache(),
		mailer: &fakeDispatcher{},
	}
	t.Cleanup(f.cache.Close)

	clock := func() time.Time { return f.now }
	f.cache.SetClock(clock)

	tokens, err := NewTokenService(config.JWTConfig{Secret: "test-secret", SigningAlgorithm: "HS256"})
	require.NoError(t, err)
	tokens.SetClock(clock)
	f.tokens = tokens

	sessions := NewSessionCache(f.cache, constants.SessionCacheTTL, nil)
	f.svc = NewAuthService(f.users, tokens, sessions, avatars, f.mailer, nil)
	return f
}

func (f *authFixture) seed(t *testing.T, email, password string, confirmed bool) *model.User {
	t.Helper()
	hashed, err := hashPassword(password)
	require.NoError(t, err)

	u := &model.User{Username: "seeded", Email: email, Password: hashed, Confirmed: confirmed}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestAuthService_SignupConfirmLogin(t *testing.T) {
	f := newAuthFixture(t, fakeAvatars{url: "https://gravatar.example/abc"})
	ctx := context.Background()

	user, err := f.svc.Signup(ctx, dto.SignupRequest{Username: "alice", Email: "Alice@Example.com", Password: "secret1"}, "http://api.test/")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, "https://gravatar.example/abc", *user.Avatar)

	_, err = f.svc.Login(ctx, "alice@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrUnconfirmed)

	f.svc.Wait()
	jobs := f.mailer.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, "alice@example.com", jobs[0].Email)
	assert.Equal(t, "alice", jobs[0].Username)
	assert.Equal(t, "http://api.test/", jobs[0].Host)

	msg, err := f.svc.ConfirmEmail(ctx, jobs[0].Token)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgEmailConfirmed, msg)

	tokens, err := f.svc.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)

	stored := f.users.stored("alice@example.com")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, tokens.RefreshToken, *stored.RefreshToken)
}

func TestAuthService_SignupDuplicate(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "bob@example.com", "secret1", true)

	_, err := f.svc.Signup(context.Background(), dto.SignupRequest{Username: "bobby", Email: "BOB@example.com", Password: "secret1"}, "")
	assert.ErrorIs(t, err, apperrors.ErrAccountExists)
}

func TestAuthService_SignupSwallowsAvatarAndMailFailures(t *testing.T) {
	f := newAuthFixture(t, fakeAvatars{err: errors.New("gravatar down")})
	f.mailer.err = errors.New("smtp down")

	user, err := f.svc.Signup(context.Background(), dto.SignupRequest{Username: "carol", Email: "carol@example.com", Password: "secret1"}, "")
	require.NoError(t, err)
	assert.Nil(t, user.Avatar)

	f.svc.Wait()
	assert.Len(t, f.mailer.sent(), 1)
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "dave@example.com", "secret1", true)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)
	assert.Equal(t, "Invalid email", apperrors.GetErrorMessage(err))

	_, err = f.svc.Login(ctx, "dave@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPass)
	assert.Equal(t, "Invalid password", apperrors.GetErrorMessage(err))
}

func TestAuthService_RefreshRotation(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "erin@example.com", "secret1", true)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "erin@example.com", "secret1")
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, second.RefreshToken, *f.users.stored("erin@example.com").RefreshToken)

	// Replaying the old token revokes the stored one.
	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	assert.Nil(t, f.users.stored("erin@example.com").RefreshToken)

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "fay@example.com", "secret1", true)

	pair, err := f.svc.Login(context.Background(), "fay@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrWrongScope)
	assert.Equal(t, "Invalid scope for token", apperrors.GetErrorMessage(err))
}

func TestAuthService_ConfirmIsIdempotent(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "gus@example.com", "secret1", false)
	ctx := context.Background()

	token, err := f.tokens.CreateEmailToken("gus@example.com", 0)
	require.NoError(t, err)

	msg, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, constants.MsgEmailConfirmed, msg)

	for i := 0; i < 2; i++ {
		msg, err = f.svc.ConfirmEmail(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, constants.MsgEmailAlreadyConfirmed, msg)
	}
}

func TestAuthService_ConfirmFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ConfirmEmail(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrBadEmailToken)

	token, err := f.tokens.CreateEmailToken("ghost@example.com", 0)
	require.NoError(t, err)
	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrVerification)
}

func TestAuthService_RequestEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "hal@example.com", "secret1", false)
	f.seed(t, "ivy@example.com", "secret1", true)
	ctx := context.Background()

	msg, err := f.svc.RequestEmail(ctx, "nobody@example.com", "http://api.test/")
	require.NoError(t, err)
	assert.Equal(t, constants.MsgCheckEmail, msg)

	msg, err = f.svc.RequestEmail(ctx, "ivy@example.com", "http://api.test/")
	require.NoError(t, err)
	assert.Equal(t, constants.MsgEmailAlreadyConfirmed, msg)

	msg, err = f.svc.RequestEmail(ctx, "HAL@example.com", "http://api.test/")
	require.NoError(t, err)
	assert.Equal(t, constants.MsgCheckEmail, msg)

	f.svc.Wait()
	jobs := f.mailer.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, "hal@example.com", jobs[0].Email)

	subject, err := f.tokens.SubjectOf(jobs[0].Token)
	require.NoError(t, err)
	assert.Equal(t, "hal@example.com", subject)
}

func TestAuthService_AuthenticateReadsThroughCache(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "jay@example.com", "secret1", true)
	ctx := context.Background()

	access, err := f.tokens.CreateAccessToken("jay@example.com", 0)
	require.NoError(t, err)

	session, err := f.svc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "jay@example.com", session.Email)
	assert.Equal(t, 1, f.users.gets())
	assert.Equal(t, 1, f.cache.Len())

	_, err = f.svc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, 1, f.users.gets())
}

func TestAuthService_AuthenticateStaleUntilTTL(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "kim@example.com", "secret1", false)
	ctx := context.Background()

	authenticate := func() *dto.SessionSnapshot {
		access, err := f.tokens.CreateAccessToken("kim@example.com", 0)
		require.NoError(t, err)
		session, err := f.svc.Authenticate(ctx, access)
		require.NoError(t, err)
		return session
	}

	assert.False(t, authenticate().Confirmed)

	// Changed behind the cache's back.
	require.NoError(t, f.users.Confirm(ctx, "kim@example.com"))

	f.now = f.now.Add(899 * time.Second)
	assert.False(t, authenticate().Confirmed)

	f.now = f.now.Add(time.Second)
	assert.True(t, authenticate().Confirmed)
}

func TestAuthService_AuthenticateRejects(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "lee@example.com", "secret1", true)
	ctx := context.Background()

	refresh, err := f.tokens.CreateRefreshToken("lee@example.com", 0)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, refresh)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	ghost, err := f.tokens.CreateAccessToken("ghost@example.com", 0)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_AuthenticateSurvivesCacheFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "max@example.com", "secret1", true)
	svc := NewAuthService(f.users, f.tokens, NewSessionCache(failingSessionStore{}, 0, nil), nil, nil, nil)

	access, err := f.tokens.CreateAccessToken("max@example.com", 0)
	require.NoError(t, err)

	session, err := svc.Authenticate(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "max@example.com", session.Email)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "ned@example.com", "secret1", true)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "ned@example.com", "secret1")
	require.NoError(t, err)
	session, err := f.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	require.NoError(t, f.svc.Logout(ctx, session))
	assert.Nil(t, f.users.stored("ned@example.com").RefreshToken)
	assert.Equal(t, 0, f.cache.Len())

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}
