package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/internal/handler"
	"github.com/Payphone-Digital/contacts-api/internal/mail"
	"github.com/Payphone-Digital/contacts-api/internal/middleware"
	"github.com/Payphone-Digital/contacts-api/internal/repository"
	"github.com/Payphone-Digital/contacts-api/internal/router"
	"github.com/Payphone-Digital/contacts-api/internal/service"
	"github.com/Payphone-Digital/contacts-api/pkg/cache"
	"github.com/Payphone-Digital/contacts-api/pkg/database"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"github.com/Payphone-Digital/contacts-api/pkg/queue"
	"github.com/Payphone-Digital/contacts-api/pkg/ratelimit"
	"github.com/Payphone-Digital/contacts-api/pkg/redis"
	"github.com/Payphone-Digital/contacts-api/pkg/sanitize"
	"github.com/Payphone-Digital/contacts-api/pkg/storage"
	"github.com/Payphone-Digital/contacts-api/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	if config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.UseJSONFieldNames()

	db, err := database.Open(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Session cache and rate limiter share Redis; without it both stay in process.
	var (
		sessionStore service.SessionStore
		limiter      ratelimit.Limiter
		redisPing    handler.PingFunc
	)
	if config.Redis.Enabled {
		redisClient, err := redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			sessionStore = redisClient
			limiter = ratelimit.NewRedisLimiter(redisClient.Raw(), config.RateLimit.Prefix)
			redisPing = redisClient.Ping
		}
	}
	if sessionStore == nil {
		memory := cache.NewCache()
		defer memory.Close()
		local := ratelimit.NewLocalLimiter(time.Minute)
		defer local.Stop()
		sessionStore = memory
		limiter = local
	}

	renderer, err := mail.NewRenderer(config.App.Name)
	if err != nil {
		logger.GetLogger().Fatal("Failed to parse mail templates", zap.Error(err))
	}
	mailer := mail.NewMailer(renderer, mail.NewSMTPSender(config.Mail))

	var (
		dispatcher service.ConfirmationDispatcher = mail.NewInlineDispatcher(mailer)
		brokerPing handler.PingFunc
	)
	if config.Broker.Enabled {
		publisher := queue.NewPublisher(config.Broker.URL, logger.GetLogger())
		defer publisher.Close()
		dispatcher = mail.NewQueueDispatcher(publisher, config.Broker.MailQueue)
		brokerPing = publisher.Ping

		if config.Broker.RunWorkers {
			consumer := queue.NewConsumer(config.Broker.URL, config.Broker.MailQueue, config.Broker.Prefetch, logger.GetLogger())
			go func() {
				if err := consumer.Run(workerCtx, mailer.HandleDelivery); err != nil && !errors.Is(err, context.Canceled) {
					logger.GetLogger().Error("Mail worker stopped", zap.Error(err))
				}
			}()
		}
	}
	logger.GetLogger().Info("Confirmation mail dispatch configured",
		zap.Bool("broker", config.Broker.Enabled),
		zap.Bool("workers", config.Broker.Enabled && config.Broker.RunWorkers),
	)

	var objects service.ObjectStorage
	if config.Storage.Enabled {
		s3Storage, err := storage.NewS3Storage(workerCtx, config.Storage)
		if err != nil {
			logger.GetLogger().Warn("Object storage unavailable, avatar uploads disabled", zap.Error(err))
		} else {
			objects = s3Storage
		}
	}

	var avatars service.AvatarProvider
	if config.Avatar.Enabled {
		avatars = service.NewGravatarProvider(config.Avatar, nil, recorder)
	}

	tokens, err := service.NewTokenService(config.JWT)
	if err != nil {
		logger.GetLogger().Fatal("Invalid JWT configuration", zap.Error(err))
	}
	sessions := service.NewSessionCache(sessionStore, config.JWT.SessionCacheTTL, recorder)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, tokens, sessions, avatars, dispatcher, recorder)
	contactService := service.NewContactService(contactRepo, sanitize.New(), config.Location())
	userService := service.NewUserService(userRepo, sessions, objects)

	// Handlers
	healthHandler := handler.NewHealthHandler().
		AddCheck("database", true, handler.DatabasePing(db)).
		AddCheck("redis", false, redisPing).
		AddCheck("broker", false, brokerPing)

	engine := router.NewRouter(
		handler.NewAuthHandler(authService, config.App.BaseURL),
		handler.NewContactHandler(contactService),
		handler.NewUserHandler(userService),
		healthHandler,

		middleware.NewAuthMiddleware(authService),
		limiter,
		recorder,
		metrics.Handler(registry),
		config,
	).SetupRoutes()

	server := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("Server forced to shutdown", zap.Error(err))
	}

	authService.Wait()
	stopWorkers()

	logger.GetLogger().Info("Server exited")
}
