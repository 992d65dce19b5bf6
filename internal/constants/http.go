package constants

// HTTP Header Names
const (
	HeaderContentType     = "Content-Type"
	HeaderAuthorization   = "Authorization"
	HeaderUserAgent       = "User-Agent"
	HeaderWWWAuthenticate = "WWW-Authenticate"
	HeaderXRequestID      = "X-Request-ID"
	HeaderXCorrelationID  = "X-Correlation-ID"
	HeaderRetryAfter      = "Retry-After"
	HeaderRateLimit       = "X-RateLimit-Limit"
	HeaderRateRemaining   = "X-RateLimit-Remaining"
	HeaderRateReset       = "X-RateLimit-Reset"
)

// HTTP Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
)

// Auth scheme
const (
	BearerScheme = "Bearer"
	TokenType    = "bearer"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Could not validate credentials"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgValidationFailed   = "Validation failed"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgTooManyRequests    = "Too Many Requests"
	MsgWelcome            = "Welcome to the contacts API"
)

// Auth flow messages
const (
	MsgUserCreated           = "User successfully created. Check your email for confirmation."
	MsgCheckEmail            = "Check your email for confirmation."
	MsgEmailAlreadyConfirmed = "Your email is already confirmed"
	MsgEmailConfirmed        = "Email confirmed"
	MsgLogoutSuccessful      = "Logout successful"
)
