package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"gorm.io/gorm"
)

type UserService struct {
	users    UserStore
	sessions *SessionCache
	storage  ObjectStorage
}

// NewUserService returns the profile service. storage may be nil, in which
// case avatar uploads answer ErrServiceUnavailable.
func NewUserService(users UserStore, sessions *SessionCache, storage ObjectStorage) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		storage:  storage,
	}
}

// Me returns the authenticated user as cached by the gate.
func (s *UserService) Me(_ context.Context, session *dto.SessionSnapshot) dto.UserResponse {
	return session.ToResponse()
}

// UpdateAvatar stores the image at avatars/<user id> and records its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, session *dto.SessionSnapshot, body io.Reader, size int64, contentType string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "UpdateAvatar")

	if s.storage == nil {
		return nil, apperrors.ErrServiceUnavailable
	}

	start := time.Now()
	key := fmt.Sprintf("avatars/%d", session.ID)

	url, err := s.storage.Put(ctx, key, body, size, contentType)
	if err != nil {
		logger.ErrorWithContext(ctx, "Avatar upload failed").
			Uint("user_id", session.ID).
			String("key", key).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	user, err := s.users.UpdateAvatar(ctx, session.Email, url)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.sessions.Put(ctx, snapshotOf(user))

	logger.InfoWithContext(ctx, "Avatar updated").
		Uint("user_id", user.ID).
		String("url", url).
		Duration(time.Since(start)).
		Log()

	resp := userResponseOf(user)
	return &resp, nil
}
