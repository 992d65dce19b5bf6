package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 2 * time.Second

// RequestLogging logs every finished request at a level that follows the
// status code.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		ctx := ctxutil.WithFunction(c.Request.Context(), "http", c.FullPath())
		status := c.Writer.Status()

		var entry *logger.ContextLogBuilder
		switch {
		case status >= http.StatusInternalServerError:
			entry = logger.ErrorWithContext(ctx, "Server error")
		case status >= http.StatusBadRequest:
			entry = logger.WarnWithContext(ctx, "Client error")
		case latency > slowRequestThreshold:
			entry = logger.WarnWithContext(ctx, "Slow request")
		default:
			entry = logger.InfoWithContext(ctx, "Request completed")
		}

		entry.Method(c.Request.Method).
			Path(c.Request.URL.Path).
			String("query", c.Request.URL.RawQuery).
			StatusCode(status).
			Int("response_size", c.Writer.Size()).
			Duration(latency)

		if len(c.Errors) > 0 {
			entry.String("errors", c.Errors.String())
		}
		entry.Log()
	}
}

// Recovery turns a panic into a 500 and logs it with the stack.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
	})
}

// SecurityLogging flags scanner traffic and login attempts.
func SecurityLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userAgent := c.Request.UserAgent()

		if isSuspiciousUserAgent(userAgent) {
			logger.WarnWithContext(ctx, "Suspicious user agent detected").
				String("user_agent", userAgent).
				Path(c.Request.URL.Path).
				Log()
		}

		if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/auth/login") {
			logger.InfoWithContext(ctx, "Login attempt").
				String("user_agent", userAgent).
				Log()
		}

		c.Next()
	}
}

func isSuspiciousUserAgent(userAgent string) bool {
	suspiciousPatterns := []string{
		"sqlmap", "nikto", "nmap", "masscan", "burp", "scanner",
	}

	ua := strings.ToLower(userAgent)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
