package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/model"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetByEmail")

	logger.DebugWithContext(ctx, "Getting user by email").
		String("email", email).
		Log()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "User lookup by email failed").
			String("email", email).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetByID")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "Create")

	logger.DebugWithContext(ctx, "Creating new user").
		String("email", user.Email).
		String("username", user.Username).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created successfully").
		Uint("user_id", user.ID).
		String("email", user.Email).
		Duration(duration).
		Log()

	return nil
}

// UpdateRefreshToken overwrites the stored refresh token; nil clears it.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id uint, token *string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpdateRefreshToken")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("refresh_token", token)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update refresh token").
			Uint("user_id", id).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "Refresh token updated").
		Uint("user_id", id).
		Bool("cleared", token == nil).
		Duration(time.Since(start)).
		Log()

	return nil
}

func (r *UserRepository) Confirm(ctx context.Context, email string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "Confirm")

	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Update("confirmed", true)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to confirm email").
			String("email", email).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Email confirmed").
		String("email", email).
		Log()

	return nil
}

// UpdateAvatar stores the avatar URL and returns the updated row.
func (r *UserRepository) UpdateAvatar(ctx context.Context, email, url string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpdateAvatar")

	var user model.User
	result := r.db.WithContext(ctx).
		Model(&user).
		Clauses(clause.Returning{}).
		Where("email = ?", email).
		Update("avatar", url)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update avatar").
			String("email", email).
			Err(result.Error).
			Log()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return &user, nil
}
