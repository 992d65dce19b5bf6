package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 5 * time.Second

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type dependency struct {
	name     string
	critical bool
	ping     PingFunc
}

type HealthHandler struct {
	deps []dependency
}

type HealthCheckResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// AddCheck registers a dependency. A nil ping reports it as disabled. Only a
// failing critical dependency makes the service unhealthy.
func (h *HealthHandler) AddCheck(name string, critical bool, ping PingFunc) *HealthHandler {
	h.deps = append(h.deps, dependency{name: name, critical: critical, ping: ping})
	return h
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgWelcome))
}

// HealthCheck pings every registered dependency.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthCheckResponse{
		Status:    "healthy",
		Version:   constants.AppVersion,
		Timestamp: time.Now(),
		Checks:    make(map[string]HealthCheck, len(h.deps)),
	}

	for _, dep := range h.deps {
		check := runCheck(ctx, dep)
		response.Checks[dep.name] = check
		if check.Status == "unhealthy" && dep.critical {
			response.Status = "unhealthy"
		}
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", response.Status),
		zap.Int("status_code", statusCode),
	)

	c.JSON(statusCode, response)
}

// Live answers without touching dependencies (for load balancers).
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   constants.AppVersion,
		"timestamp": time.Now(),
	})
}

func runCheck(ctx context.Context, dep dependency) HealthCheck {
	if dep.ping == nil {
		return HealthCheck{Status: "disabled", Message: dep.name + " is disabled"}
	}

	if err := dep.ping(ctx); err != nil {
		logger.GetLogger().Warn("Dependency ping failed",
			zap.String("dependency", dep.name),
			zap.Error(err),
		)
		return HealthCheck{Status: "unhealthy", Message: "ping failed: " + err.Error()}
	}

	return HealthCheck{Status: "healthy"}
}

// DatabasePing pings the pool behind db and reports its size.
func DatabasePing(db *gorm.DB) PingFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		stats := sqlDB.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return fmt.Errorf("connection pool exhausted (%d in use)", stats.InUse)
		}
		return nil
	}
}
