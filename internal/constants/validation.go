package constants

import "time"

// MaxAvatarBytes caps an uploaded avatar image.
const MaxAvatarBytes = 5 << 20

// Token scopes
const (
	ScopeAccessToken  = "access_token"
	ScopeRefreshToken = "refresh_token"
)

// Token and session lifetimes
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
	EmailTokenExpiry   = 7 * 24 * time.Hour
	SessionCacheTTL    = 900 * time.Second
)

// Birthday window
const (
	BirthdayWindowDays = 7
	DateLayout         = "2006-01-02"
)
