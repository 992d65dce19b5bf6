package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Authenticator resolves an access token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*dto.SessionSnapshot, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth rejects the request with 401 unless it carries a valid access
// token. On success the user is stored under constants.GinKeyCurrentUser.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "middleware", "RequireAuth")

		token, ok := BearerToken(c)
		if !ok {
			logger.WarnWithContext(ctx, "Missing or malformed Authorization header").
				Method(c.Request.Method).
				Path(c.Request.URL.Path).
				Log()
			AbortUnauthorized(c, constants.MsgUnauthorized)
			return
		}

		user, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			status := apperrors.ToHTTPStatus(err)
			if status != http.StatusUnauthorized {
				logger.ErrorWithContext(ctx, "Authentication failed").
					Path(c.Request.URL.Path).
					Err(err).
					Log()
				c.AbortWithStatusJSON(status, constants.BuildErrorResponse(constants.MsgInternalError, nil))
				return
			}
			AbortUnauthorized(c, constants.MsgUnauthorized)
			return
		}

		c.Set(constants.GinKeyCurrentUser, user)
		c.Set(constants.GinKeyUserID, user.ID)
		c.Set(constants.GinKeyEmail, user.Email)
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), user.ID))

		c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(c.GetHeader(constants.HeaderAuthorization)), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) (*dto.SessionSnapshot, bool) {
	v, ok := c.Get(constants.GinKeyCurrentUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*dto.SessionSnapshot)
	return user, ok
}

func AbortUnauthorized(c *gin.Context, message string) {
	c.Header(constants.HeaderWWWAuthenticate, constants.BearerScheme)
	c.AbortWithStatusJSON(http.StatusUnauthorized, constants.BuildErrorResponse(message, nil))
}
