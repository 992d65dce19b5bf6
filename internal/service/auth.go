package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const dispatchTimeout = 30 * time.Second

var bcryptCost = bcrypt.DefaultCost

// AuthService owns signup, the token flows and the authentication gate.
type AuthService struct {
	users    UserStore
	tokens   *TokenService
	sessions *SessionCache
	avatars  AvatarProvider
	mailer   ConfirmationDispatcher
	metrics  metrics.Recorder

	pending sync.WaitGroup
}

// NewAuthService wires the auth flows. avatars and mailer may be nil.
func NewAuthService(users UserStore, tokens *TokenService, sessions *SessionCache, avatars AvatarProvider, mailer ConfirmationDispatcher, rec metrics.Recorder) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		avatars:  avatars,
		mailer:   mailer,
		metrics:  rec,
	}
}

func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest, host string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Signup")
	email := normalizeEmail(req.Email)

	logger.InfoWithContext(ctx, "Signup attempt").
		String("email", email).
		String("username", req.Username).
		Log()

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.LogAuth(email, "signup", false)
		return nil, apperrors.ErrAccountExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    email,
		Password: hashed,
		Avatar:   s.lookupAvatar(ctx, email),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrAccountExists
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(email, "signup", true)
	s.sendConfirmation(ctx, user, host)

	resp := userResponseOf(user)
	return &resp, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Login")
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.LogAuth(email, "login", false)
			return nil, apperrors.ErrInvalidEmail
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !user.Confirmed {
		logger.LogAuth(email, "login", false)
		return nil, apperrors.ErrUnconfirmed
	}

	if !checkPassword(user.Password, password) {
		logger.LogAuth(email, "login", false)
		return nil, apperrors.ErrInvalidPass
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.LogAuth(email, "login", true)
	return tokens, nil
}

// Refresh rotates the token pair. A token that does not match the stored one
// revokes the stored token as well.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Refresh")

	email, err := s.tokens.Decode(refreshToken, constants.ScopeRefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		logger.WarnWithContext(ctx, "Refresh token mismatch, revoking").
			Uint("user_id", user.ID).
			Log()

		if err := s.users.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
			logger.ErrorWithContext(ctx, "Failed to revoke refresh token").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
		logger.LogAuth(email, "refresh", false)
		return nil, apperrors.ErrInvalidRefreshToken
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.LogAuth(email, "refresh", true)
	return tokens, nil
}

// ConfirmEmail returns the message to show; confirming twice is not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ConfirmEmail")

	email, err := s.tokens.SubjectOf(token)
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrBadEmailToken, err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrVerification
		}
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.Confirmed {
		return constants.MsgEmailAlreadyConfirmed, nil
	}

	if err := s.users.Confirm(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrVerification
		}
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	s.sessions.Invalidate(ctx, email)

	logger.InfoWithContext(ctx, "Email confirmed").
		Uint("user_id", user.ID).
		Log()

	return constants.MsgEmailConfirmed, nil
}

// RequestEmail re-sends the confirmation mail. Unknown addresses get the same
// answer as known ones.
func (s *AuthService) RequestEmail(ctx context.Context, email, host string) (string, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "RequestEmail")
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return constants.MsgCheckEmail, nil
		}
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.Confirmed {
		return constants.MsgEmailAlreadyConfirmed, nil
	}

	s.sendConfirmation(ctx, user, host)
	return constants.MsgCheckEmail, nil
}

// Logout drops the stored refresh token and the cached session.
func (s *AuthService) Logout(ctx context.Context, session *dto.SessionSnapshot) error {
	ctx = ctxutil.WithFunction(ctx, "service", "Logout")

	if err := s.users.UpdateRefreshToken(ctx, session.ID, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnauthorized
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	s.sessions.Invalidate(ctx, session.Email)

	logger.LogAuth(session.Email, "logout", true)
	return nil
}

// Authenticate resolves an access token to the current user, reading through
// the session cache.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*dto.SessionSnapshot, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Authenticate")

	email, err := s.tokens.Decode(token, constants.ScopeAccessToken)
	if err != nil {
		logger.DebugWithContext(ctx, "Access token rejected").Err(err).Log()
		return nil, apperrors.ErrUnauthorized
	}

	if snapshot, ok := s.sessions.Get(ctx, email); ok {
		return snapshot, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	snapshot := snapshotOf(user)
	s.sessions.Put(ctx, snapshot)
	return &snapshot, nil
}

// Wait blocks until in-flight confirmation dispatches finish.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

func (s *AuthService) issuePair(ctx context.Context, user *model.User) (*dto.TokenResponse, error) {
	access, err := s.tokens.CreateAccessToken(user.Email, 0)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	refresh, err := s.tokens.CreateRefreshToken(user.Email, 0)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    constants.TokenType,
	}, nil
}

func (s *AuthService) lookupAvatar(ctx context.Context, email string) *string {
	if s.avatars == nil {
		return nil
	}

	url, err := s.avatars.AvatarURL(ctx, email)
	if err != nil {
		logger.WarnWithContext(ctx, "Avatar lookup failed").
			String("email", email).
			Err(err).
			Log()
		return nil
	}
	return &url
}

// sendConfirmation dispatches off the request path; failures are only logged.
func (s *AuthService) sendConfirmation(ctx context.Context, user *model.User, host string) {
	if s.mailer == nil {
		return
	}

	token, err := s.tokens.CreateEmailToken(user.Email, 0)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create confirmation token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return
	}

	job := dto.ConfirmationMailJob{
		Email:    user.Email,
		Username: user.Username,
		Host:     host,
		Token:    token,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		dctx, cancel := ctxutil.Detach(ctx, dispatchTimeout)
		defer cancel()

		if err := s.mailer.Dispatch(dctx, job); err != nil {
			s.metrics.RecordMailDispatch("failed")
			logger.ErrorWithContext(dctx, "Confirmation mail dispatch failed").
				String("email", job.Email).
				Err(err).
				Log()
			return
		}
		s.metrics.RecordMailDispatch("dispatched")
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
