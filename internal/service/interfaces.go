package service

import (
	"context"
	"io"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/model"
)

// UserStore is the credential store. Implemented by repository.UserRepository;
// a missing row is reported as gorm.ErrRecordNotFound.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateRefreshToken(ctx context.Context, id uint, token *string) error
	Confirm(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*model.User, error)
}

// ContactStore only offers owner-scoped access.
type ContactStore interface {
	List(ctx context.Context, ownerID uint, filter dto.ContactFilter, skip, limit int) ([]model.Contact, error)
	ListAllByOwner(ctx context.Context, ownerID uint) ([]model.Contact, error)
	Get(ctx context.Context, ownerID, id uint) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, ownerID, id uint, changes map[string]interface{}) (*model.Contact, error)
	Delete(ctx context.Context, ownerID, id uint) (*model.Contact, error)
}

// SessionStore is satisfied by both pkg/redis.Client and pkg/cache.Cache.
type SessionStore interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type AvatarProvider interface {
	AvatarURL(ctx context.Context, email string) (string, error)
}

// ConfirmationDispatcher hands a confirmation mail to whatever delivers it.
type ConfirmationDispatcher interface {
	Dispatch(ctx context.Context, job dto.ConfirmationMailJob) error
}

type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}
