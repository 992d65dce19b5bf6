package logger

import (
	"os"
	"path/filepath"

	"github.com/Payphone-Digital/contacts-api/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger = zap.NewNop()
	Sugar  = Logger.Sugar()
)

// InitLogger builds the process logger. Console output is always on; when
// LOGS_PATH is set the same records are also appended to files there.
func InitLogger(cfg *config.Config) error {
	zapLevel := zapcore.DebugLevel
	if cfg.App.Environment == "production" {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if cfg.App.Environment != "production" && cfg.App.Debug {
		devConfig := encoderConfig
		devConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(devConfig)
	}

	infoSink := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	errorSink := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}

	if logsPath := getEnv("LOGS_PATH", ""); logsPath != "" {
		if err := os.MkdirAll(logsPath, 0755); err != nil {
			return err
		}

		infoFile, err := os.OpenFile(filepath.Join(logsPath, "info.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		errorFile, err := os.OpenFile(filepath.Join(logsPath, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			infoFile.Close()
			return err
		}

		infoSink = append(infoSink, zapcore.AddSync(infoFile))
		errorSink = append(errorSink, zapcore.AddSync(errorFile))
	}

	// Errors go to both cores: stdout keeps the full stream in order.
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(infoSink...), zapLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(errorSink...), zapcore.ErrorLevel),
	)

	UseLogger(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), PerformanceConfigFor(cfg.App.Environment))
	return nil
}

// UseLogger swaps the global loggers. Tests pass zap.NewNop() or an observer core.
func UseLogger(l *zap.Logger, perf PerformanceConfig) {
	Logger = l
	Sugar = l.Sugar()
	optimizedLogger = NewOptimizedLogger(l, perf)
}

// GetLogger returns the structured logger
func GetLogger() *zap.Logger {
	return Logger
}

// Sync syncs all logs (call this before application exits)
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// LogPanic logs panic and recovers
func LogPanic(recovered interface{}) {
	Logger.Error("Panic recovered",
		zap.Any("panic", recovered),
		zap.Stack("stack"),
	)
}

// LogAuth logs authentication events
func LogAuth(email, action string, success bool, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("email", email),
		zap.String("action", action),
		zap.Bool("success", success),
	}, fields...)

	if success {
		Logger.Info("Authentication success", allFields...)
	} else {
		Logger.Warn("Authentication failure", allFields...)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
