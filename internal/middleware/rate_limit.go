package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"github.com/Payphone-Digital/contacts-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit allows limit requests per window for each caller of route. The
// caller is the authenticated user when there is one, else the client IP.
// A limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, route string, limit int, window time.Duration, rec metrics.Recorder) gin.HandlerFunc {
	if rec == nil {
		rec = metrics.Nop{}
	}

	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := route + ":" + callerKey(c)

		decision, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			logger.WarnWithContext(ctx, "Rate limiter unavailable, allowing request").
				String("route", route).
				Err(err).
				Log()
			c.Next()
			return
		}

		c.Header(constants.HeaderRateLimit, strconv.Itoa(decision.Limit))
		c.Header(constants.HeaderRateRemaining, strconv.Itoa(decision.Remaining))
		c.Header(constants.HeaderRateReset, fmt.Sprintf("%d", ceilSeconds(decision.ResetAfter)))

		if !decision.Allowed {
			rec.RecordRateLimited(route)
			logger.WarnWithContext(ctx, "Rate limit exceeded").
				String("route", route).
				String("key", key).
				Int("limit", limit).
				Duration(decision.RetryAfter).
				Log()

			c.Header(constants.HeaderRetryAfter, strconv.FormatInt(ceilSeconds(decision.RetryAfter), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, constants.BuildErrorResponse(constants.MsgTooManyRequests, nil))
			return
		}

		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if id, ok := c.Get(constants.GinKeyUserID); ok {
		return fmt.Sprintf("user:%v", id)
	}
	return "ip:" + c.ClientIP()
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
