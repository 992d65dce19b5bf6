package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/validation"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its status and writes {"message": ...}.
// 401s carry the bearer challenge.
func respondError(ctx context.Context, c *gin.Context, action string, err error) {
	status := apperrors.ToHTTPStatus(err)

	entry := logger.WarnWithContext(ctx, action+" failed")
	if status >= http.StatusInternalServerError {
		entry = logger.ErrorWithContext(ctx, action+" failed")
	}
	entry.StatusCode(status).Err(err).Log()

	message := apperrors.GetErrorMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		message = constants.MsgInternalError
	}

	if status == http.StatusUnauthorized {
		middleware.AbortUnauthorized(c, message)
		return
	}
	c.JSON(status, constants.BuildErrorResponse(message, nil))
}

func respondBindError(ctx context.Context, c *gin.Context, err error) {
	details := validation.FormatErrors(err)
	logger.WarnWithContext(ctx, "Invalid request body").
		String("errors", strings.Join(details, "; ")).
		Log()
	c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgValidationFailed, details))
}

func parseID(ctx context.Context, c *gin.Context, param string) (uint, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		logger.WarnWithContext(ctx, "Invalid id parameter").
			String("raw_id", raw).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "id must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// requestBaseURL is the configured public URL, or scheme://host of the
// request when none is configured.
func requestBaseURL(c *gin.Context, configured string) string {
	if configured != "" {
		return strings.TrimSuffix(configured, "/") + "/"
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + "/"
}
