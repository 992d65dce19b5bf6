package handler

import (
	"context"
	"net/http"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AuthUsecase is the part of service.AuthService the auth endpoints need.
type AuthUsecase interface {
	Signup(ctx context.Context, req dto.SignupRequest, host string) (*dto.UserResponse, error)
	Login(ctx context.Context, email, password string) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	ConfirmEmail(ctx context.Context, token string) (string, error)
	RequestEmail(ctx context.Context, email, host string) (string, error)
	Logout(ctx context.Context, session *dto.SessionSnapshot) error
}

type AuthHandler struct {
	auth    AuthUsecase
	baseURL string
}

// NewAuthHandler builds the auth endpoints. baseURL prefixes confirmation
// links; when empty the request host is used.
func NewAuthHandler(auth AuthUsecase, baseURL string) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		baseURL: baseURL,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Signup")

	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, c, err)
		return
	}

	user, err := h.auth.Signup(ctx, req, requestBaseURL(c, h.baseURL))
	if err != nil {
		respondError(ctx, c, "Signup", err)
		return
	}

	logger.InfoWithContext(ctx, "User signed up").
		Uint("user_id", user.ID).
		Log()

	c.JSON(http.StatusCreated, constants.BuildUserCreatedResponse(user, constants.MsgUserCreated))
}

// Login accepts the OAuth2 password form or the same fields as JSON.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(ctx, c, err)
		return
	}

	tokens, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(ctx, c, "Login", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// RefreshToken exchanges the refresh token from the Authorization header for
// a new pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RefreshToken")

	token, ok := middleware.BearerToken(c)
	if !ok {
		middleware.AbortUnauthorized(c, constants.MsgUnauthorized)
		return
	}

	tokens, err := h.auth.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, c, "Token refresh", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ConfirmEmail")

	message, err := h.auth.ConfirmEmail(ctx, c.Param("token"))
	if err != nil {
		respondError(ctx, c, "Email confirmation", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

func (h *AuthHandler) RequestEmail(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RequestEmail")

	var req dto.RequestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, c, err)
		return
	}

	message, err := h.auth.RequestEmail(ctx, req.Email, requestBaseURL(c, h.baseURL))
	if err != nil {
		respondError(ctx, c, "Confirmation request", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Logout")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortUnauthorized(c, constants.MsgUnauthorized)
		return
	}

	if err := h.auth.Logout(ctx, user); err != nil {
		respondError(ctx, c, "Logout", err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgLogoutSuccessful))
}
