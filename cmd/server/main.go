package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rescuelink/internal/config"
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/internal/middleware"
	"rescuelink/internal/models"
	"rescuelink/internal/observability"
	"rescuelink/internal/repositories/interfaces"
	"rescuelink/internal/repositories/mongodb"
	"rescuelink/internal/services"
	"rescuelink/internal/utils"
	"rescuelink/pkg/cache"
	"rescuelink/pkg/database"
	"rescuelink/pkg/email"
	"rescuelink/pkg/events"
	"rescuelink/pkg/logger"
	"rescuelink/pkg/maps"
	"rescuelink/pkg/push"
	"rescuelink/pkg/queue"
	"rescuelink/pkg/sms"
	"rescuelink/pkg/websocket"
	"rescuelink/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  cfg.App.LogOutput,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.OTLPInsecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize tracing")
	}

	// Storage
	mongoDB, err := database.NewMongoDB(ctx, &database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	if err := database.NewMigrator(mongoDB.Database, appLogger).Up(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(ctx, &cache.RedisConfig{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// Redis only backs caches, locks and responder positions
			appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
			redisCache = nil
		}
	}

	// Interface-typed views of redis that stay nil when it is absent
	var (
		countCache interfaces.Cache
		geoStore   services.GeoStore
		locker     services.Locker
	)
	if redisCache != nil {
		countCache, geoStore, locker = redisCache, redisCache, redisCache
	}

	db := mongoDB.Database
	userRepo := mongodb.NewUserRepository(db)
	sosRepo := mongodb.NewSOSRepository(db)
	contactRepo := mongodb.NewContactRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db, countCache)
	chatRepo := mongodb.NewChatRepository(db)
	messageRepo := mongodb.NewMessageRepository(db)

	// Delivery providers
	smsProvider := newSMSProvider(ctx, cfg, appLogger)
	pusher := newPushRouter(ctx, cfg, appLogger)
	geocoder := newGeocoder(cfg, appLogger)

	mailer, emailQueue, emailWorker := newMailer(cfg, appLogger)

	publisher := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, appLogger)
	appLogger.WithField("mode", events.Mode(publisher)).Info("Event publisher ready")

	// Realtime
	hub := websocket.NewHub(appLogger)

	notificationService := services.NewNotificationService(cfg, notificationRepo, userRepo, hub, mailer, smsProvider, pusher, appLogger)
	chatService := services.NewChatService(chatRepo, messageRepo, userRepo, sosRepo, notificationService, hub, publisher, appLogger)

	var geocodeProvider maps.Geocoder
	if geocoder != nil {
		geocodeProvider = geocoder
	}
	sosService := services.NewSOSService(cfg, sosRepo, userRepo, contactRepo, notificationService, chatService, hub, geocodeProvider, geoStore, publisher, appLogger)
	adminService := services.NewAdminService(sosRepo, userRepo, notificationService, publisher, appLogger)
	sweeper := services.NewReminderSweeper(cfg.SOS, sosRepo, notificationRepo, notificationService, locker, publisher, appLogger)

	realtime := services.NewRealtimeService(sosService, chatService, userRepo, appLogger)
	hub.SetPresenceListener(realtime)
	hub.SetEventHandler(realtime)
	go hub.Run(ctx)

	wsHandler := websocket.NewHandler(ctx, hub, func(token string) (primitive.ObjectID, string, error) {
		claims, err := utils.ValidateToken(token, cfg.Security.JWTSecret)
		if err != nil {
			return primitive.NilObjectID, "", err
		}
		return claims.UserID, claims.Role, nil
	}, websocket.HandlerConfig{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		Options: websocket.Options{
			WriteWait:      10 * time.Second,
			PongWait:       cfg.WebSocket.PongTimeout,
			PingPeriod:     cfg.WebSocket.PingInterval,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBufferSize,
		},
	})

	if cfg.Telemetry.MetricsEnabled {
		if err := observability.RegisterConnectionGauges(hub.ConnectionCount, hub.OnlineUserCount); err != nil {
			appLogger.WithError(err).Warn("Failed to register connection gauges")
		}
	}

	if emailWorker != nil {
		go func() {
			if err := emailWorker.Run(ctx); err != nil {
				appLogger.WithError(err).Error("Email worker stopped")
			}
		}()
	}

	sweeper.Start(ctx)

	// Handlers
	sosHandler := handlers.NewSOSHandler(sosService, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, appLogger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, appLogger)
	adminHandler := handlers.NewAdminHandler(adminService, appLogger)

	checks := map[string]handlers.Pinger{"mongodb": mongoDB}
	if redisCache != nil {
		checks["redis"] = redisCache
	}
	healthHandler := handlers.NewHealthHandler(checks)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Warn("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.App.Name))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	if cfg.Telemetry.MetricsEnabled {
		router.Use(observability.HTTPMetricsMiddleware())
	}

	v1 := router.Group("/api/v1")
	{
		routes.SetupSOSRoutes(v1, sosHandler, cfg.Security.JWTSecret)
		routes.SetupChatRoutes(v1, chatHandler, cfg.Security.JWTSecret)
		routes.SetupNotificationRoutes(v1, notificationHandler, cfg.Security.JWTSecret)
		routes.SetupAdminRoutes(v1, adminHandler, cfg.Security.JWTSecret)
	}
	routes.SetupWebSocketRoutes(router, cfg.WebSocket.Path, wsHandler)
	routes.SetupOpsRoutes(router, healthHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	sweeper.Stop()
	notificationService.Wait()

	if emailQueue != nil {
		if err := emailQueue.Close(); err != nil {
			appLogger.WithError(err).Warn("Failed to close email queue")
		}
	}
	if err := publisher.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close event publisher")
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			appLogger.WithError(err).Warn("Failed to close redis")
		}
	}
	if err := mongoDB.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close MongoDB")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Failed to flush traces")
	}
}

func newSMSProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) sms.SMSProvider {
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio.AccountSID == "" {
			log.Warn("SMS_PROVIDER is twilio but TWILIO_ACCOUNT_SID is empty, SMS disabled")
			return sms.NoopProvider{}
		}
		return sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	case "aws", "sns":
		provider, err := sms.NewAWSSNSProvider(ctx, cfg.SMS.AWS.Region, cfg.SMS.AWS.SenderID)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize SNS, SMS disabled")
			return sms.NoopProvider{}
		}
		return provider
	default:
		return sms.NoopProvider{}
	}
}

func newPushRouter(ctx context.Context, cfg *config.Config, log *logger.Logger) *push.Router {
	router := push.NewRouter()

	if fcm := cfg.Push.FCM; fcm.ProjectID != "" {
		provider, err := push.NewFCMProvider(ctx, fcm.ProjectID, fcm.Credentials)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize FCM")
		} else {
			router.Register(string(models.DevicePlatformAndroid), provider)
		}
	}

	if apns := cfg.Push.APNS; apns.KeyFile != "" {
		provider, err := push.NewAPNSProvider(apns.KeyFile, apns.KeyID, apns.TeamID, apns.BundleID, apns.Production)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize APNS")
		} else {
			router.Register(string(models.DevicePlatformIOS), provider)
		}
	}

	return router
}

func newGeocoder(cfg *config.Config, log *logger.Logger) *maps.GoogleMapsProvider {
	if cfg.Maps.GoogleMaps.APIKey == "" {
		return nil
	}
	provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Google Maps, addresses disabled")
		return nil
	}
	return provider
}

// newMailer returns the mailer services should use. With a queue configured,
// services enqueue and the worker delivers over SMTP.
func newMailer(cfg *config.Config, log *logger.Logger) (email.Mailer, *queue.Client, *queue.Worker) {
	var smtpMailer email.Mailer = email.NoopMailer{}
	if cfg.SMTP.Enabled() {
		smtpMailer = email.NewSMTPMailer(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
			SSL:       cfg.SMTP.SSL,
		})
	} else {
		log.Warn("SMTP not configured, email disabled")
	}

	if !cfg.Queue.Enabled() {
		return smtpMailer, nil, nil
	}

	client, err := queue.NewClient(cfg.Queue.RedisURL, cfg.Queue.MaxRetry)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize email queue, sending inline")
		return smtpMailer, nil, nil
	}
	worker, err := queue.NewWorker(cfg.Queue.RedisURL, cfg.Queue.Concurrency, smtpMailer, log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize email worker, sending inline")
		_ = client.Close()
		return smtpMailer, nil, nil
	}
	return queue.NewQueuedMailer(client), client, worker
}
