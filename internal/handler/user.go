package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

const avatarFormField = "file"

var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UserUsecase interface {
	Me(ctx context.Context, session *dto.SessionSnapshot) dto.UserResponse
	UpdateAvatar(ctx context.Context, session *dto.SessionSnapshot, body io.Reader, size int64, contentType string) (*dto.UserResponse, error)
}

type UserHandler struct {
	users UserUsecase
}

func NewUserHandler(users UserUsecase) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Me")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortUnauthorized(c, constants.MsgUnauthorized)
		return
	}

	c.JSON(http.StatusOK, h.users.Me(ctx, user))
}

// UpdateAvatar takes a multipart image under "file" and stores it as the
// user's avatar.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateAvatar")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortUnauthorized(c, constants.MsgUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxAvatarBytes+1<<20)

	header, err := c.FormFile(avatarFormField)
	if err != nil {
		logger.WarnWithContext(ctx, "Avatar upload without file").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "multipart field \"file\" is required"))
		return
	}

	if header.Size > constants.MaxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, constants.BuildErrorResponse("File too large", "avatar must be at most 5 MiB"))
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get(constants.HeaderContentType)))
	if !avatarContentTypes[contentType] {
		c.JSON(http.StatusUnsupportedMediaType, constants.BuildErrorResponse("Unsupported file type", contentType))
		return
	}

	file, err := header.Open()
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to open uploaded avatar").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}
	defer file.Close()

	updated, err := h.users.UpdateAvatar(ctx, user, file, header.Size, contentType)
	if err != nil {
		respondError(ctx, c, "Avatar update", err)
		return
	}

	logger.InfoWithContext(ctx, "Avatar updated").
		Uint("user_id", updated.ID).
		Int64("size", header.Size).
		Log()

	c.JSON(http.StatusOK, updated)
}
