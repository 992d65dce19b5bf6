package service

import (
	"context"
	"strings"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/model"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
)

// SessionCache is the look-aside cache in front of the user store. It is
// never authoritative and every failure degrades to a miss.
type SessionCache struct {
	store   SessionStore
	ttl     time.Duration
	metrics metrics.Recorder
}

// NewSessionCache returns a cache over store. A nil store disables caching.
func NewSessionCache(store SessionStore, ttl time.Duration, rec metrics.Recorder) *SessionCache {
	if ttl <= 0 {
		ttl = constants.SessionCacheTTL
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SessionCache{store: store, ttl: ttl, metrics: rec}
}

func SessionKey(email string) string {
	return constants.CacheKeyUser + strings.ToLower(email)
}

func (c *SessionCache) Get(ctx context.Context, email string) (*dto.SessionSnapshot, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	var snapshot dto.SessionSnapshot
	found, err := c.store.GetJSON(ctx, SessionKey(email), &snapshot)
	if err != nil {
		logger.WarnWithContext(ctx, "Session cache read failed").
			String("email", email).
			Err(err).
			Log()
		c.metrics.RecordSessionCache(false)
		return nil, false
	}

	c.metrics.RecordSessionCache(found)
	if !found {
		return nil, false
	}
	return &snapshot, true
}

func (c *SessionCache) Put(ctx context.Context, snapshot dto.SessionSnapshot) {
	if c == nil || c.store == nil {
		return
	}

	if err := c.store.SetJSON(ctx, SessionKey(snapshot.Email), snapshot, c.ttl); err != nil {
		logger.WarnWithContext(ctx, "Session cache write failed").
			String("email", snapshot.Email).
			Err(err).
			Log()
	}
}

func (c *SessionCache) Invalidate(ctx context.Context, email string) {
	if c == nil || c.store == nil {
		return
	}

	if err := c.store.Delete(ctx, SessionKey(email)); err != nil {
		logger.WarnWithContext(ctx, "Session cache invalidation failed").
			String("email", email).
			Err(err).
			Log()
	}
}

func snapshotOf(user *model.User) dto.SessionSnapshot {
	return dto.SessionSnapshot{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Confirmed: user.Confirmed,
		CreatedAt: user.CreatedAt,
	}
}

func userResponseOf(user *model.User) dto.UserResponse {
	return snapshotOf(user).ToResponse()
}
