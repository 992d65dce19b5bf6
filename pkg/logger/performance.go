package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// PerformanceConfig controls how chatty the context logger is allowed to be.
type PerformanceConfig struct {
	MinLogLevel      zapcore.Level `json:"min_log_level"`
	EnableSampling   bool          `json:"enable_sampling"`
	SampleFirst      int           `json:"sample_first"`
	SampleThereafter int           `json:"sample_thereafter"`
	EnableRateLimit  bool          `json:"enable_rate_limit"`
	MaxLogPerSecond  int           `json:"max_log_per_second"`
}

func DevelopmentConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.DebugLevel,
		MaxLogPerSecond: 10000,
	}
}

func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:      zapcore.InfoLevel,
		EnableSampling:   true,
		SampleFirst:      100,
		SampleThereafter: 10,
		EnableRateLimit:  true,
		MaxLogPerSecond:  500,
	}
}

// PerformanceConfigFor picks the preset for an APP_ENV value.
func PerformanceConfigFor(env string) PerformanceConfig {
	if env == "production" {
		return ProductionConfig()
	}
	return DevelopmentConfig()
}

// OptimizedLogger gates records by level and a token bucket before they reach zap.
type OptimizedLogger struct {
	config  PerformanceConfig
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewOptimizedLogger(base *zap.Logger, config PerformanceConfig) *OptimizedLogger {
	l := base
	if config.EnableSampling {
		l = base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, time.Second, config.SampleFirst, config.SampleThereafter)
		}))
	}

	limit := rate.Inf
	if config.EnableRateLimit && config.MaxLogPerSecond > 0 {
		limit = rate.Limit(config.MaxLogPerSecond)
	}

	return &OptimizedLogger{
		config:  config,
		logger:  l,
		limiter: rate.NewLimiter(limit, max(config.MaxLogPerSecond, 1)),
	}
}

// ShouldLog reports whether a record at level would be written.
// Warnings and errors bypass the limiter; only info and debug are throttled.
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}
	if level >= zapcore.WarnLevel {
		return true
	}
	return ol.limiter.Allow()
}

var optimizedLogger = NewOptimizedLogger(zap.NewNop(), DevelopmentConfig())

// GetOptimizedLogger returns the logger behind the *WithContext helpers.
func GetOptimizedLogger() *OptimizedLogger {
	return optimizedLogger
}
