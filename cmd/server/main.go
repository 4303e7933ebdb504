// Package main runs the meeting signaling and recording relay server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/auth"
	"github.com/meetscribe/backend/internal/ingest"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/sessions"
	"github.com/meetscribe/backend/internal/signaling"
	"github.com/meetscribe/backend/internal/summarizer"
	"github.com/meetscribe/backend/internal/worker"
	"github.com/meetscribe/backend/pkg/database"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it signaling stays single-instance and
	// chunk archival is disabled.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, cross-instance relay and archival disabled", zap.Error(err))
			rdb = nil
		}
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" && cfg.AWS.RecordingsBucket != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	// Signaling: registry + optional Redis bridge for multi-instance relay.
	var relayPub signaling.Publisher
	var redisRelay *signaling.RedisRelay
	if rdb != nil {
		redisRelay = signaling.NewRedisRelay(rdb.Client, logger)
		relayPub = redisRelay
	}
	registry := signaling.NewRegistry(logger, relayPub)
	if redisRelay != nil {
		cancelSub, err := redisRelay.Subscribe(ctx, func(senderID, event string, data []byte) {
			registry.BroadcastExcept(senderID, signaling.Message{Event: event, Data: data})
		})
		if err != nil {
			logger.Warn("relay subscription failed", zap.Error(err))
		} else {
			defer cancelSub()
		}
	}

	// Recording pipeline.
	sessionRepo := sessions.NewRepository(pool)
	var archiveQueue *queue.Queue
	if rdb != nil && s3Client != nil {
		archiveQueue = queue.NewQueue(rdb.Client, logger)
	}
	fileStore := ingest.NewFileStore(cfg.Recording.Dir)
	var archive ingest.ArchiveQueue
	if archiveQueue != nil {
		archive = archiveQueue
	}
	ingestSvc := ingest.NewService(
		fileStore,
		sessionRepo,
		archive,
		cfg.Recording.OneShotComplete,
		time.Duration(cfg.Recording.WriteTimeoutSec)*time.Second,
		logger,
	)
	ingestHandler := ingest.NewHandler(ingestSvc, logger)
	sessionHandler := sessions.NewHandler(sessionRepo, s3Client, logger)

	// Meetings + summarization (opaque external service).
	var sum meetings.Summarizer
	if cfg.Summarizer.URL != "" {
		sum = summarizer.New(cfg.Summarizer.URL, cfg.Summarizer.APIKey,
			time.Duration(cfg.Summarizer.TimeoutSec)*time.Second, logger)
	}
	meetingRepo := meetings.NewRepository(pool)
	meetingHandler := meetings.NewHandler(meetingRepo, sum, logger)

	// Guest tokens.
	jwtService := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.ExpireHours)
	authHandler := auth.NewHandler(jwtService, logger)
	var validateToken func(token string) (string, error)
	if cfg.Auth.Required {
		validateToken = func(token string) (string, error) {
			claims, err := jwtService.Validate(token)
			if err != nil {
				return "", err
			}
			return claims.Name, nil
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "meetscribe relay is running") })
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Guest tokens (public)
	router.POST("/auth/guest", authHandler.Guest)

	// Signaling (token in query when auth is required)
	router.GET("/ws", signaling.ServeWs(registry, logger, cfg.Signaling.Strict, validateToken))

	// Upload + recordings + meetings, behind auth when required.
	api := router.Group("")
	if cfg.Auth.Required {
		api.Use(middleware.Auth(jwtService))
	}
	{
		api.POST("/storeRecording", ingestHandler.StoreRecording)

		api.GET("/recordings", sessionHandler.List)
		api.GET("/recordings/:sessionId", sessionHandler.Get)
		api.POST("/recordings/:sessionId/complete", sessionHandler.Complete)
		api.GET("/recordings/:sessionId/chunks/:chunkId/download-url", sessionHandler.DownloadURL)

		api.POST("/meetings", meetingHandler.Start)
		api.GET("/meetings", meetingHandler.List)
		api.GET("/meetings/:id", meetingHandler.Get)
		api.POST("/meetings/:id/actions", meetingHandler.AppendAction)
		api.POST("/meetings/:id/end", meetingHandler.End)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process archival worker when both Redis and S3 are configured.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if archiveQueue != nil {
		processor := worker.NewArchiveProcessor(sessionRepo, s3Client, archiveQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("archive worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
