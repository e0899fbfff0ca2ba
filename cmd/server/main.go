package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comet/internal/config"
	"comet/internal/db"
	"comet/internal/router"
	"comet/internal/services"
	"comet/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	envErr := config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Sugar().Fatalf("failed to load config: %s", err.Error())
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	if envErr != nil {
		logger.Info("No .env file found, reading config from the environment")
	}

	utils.RegisterValidators()

	// Initialize Database
	conn, err := db.Init(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Sugar().Fatalf("failed to initialize database: %s", err.Error())
	}

	rdb := connectRedis(cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	unfurl := services.NewUnfurlService(cfg.UnfurlTimeout, logger)
	uploads := services.NewUploadService(conn, services.NewImgurStore(cfg.ImgurClientID), logger)
	views := services.NewViewRecorder(conn, logger)
	notifications := services.NewNotificationService(conn, logger)

	deps := router.Deps{
		Config:        cfg,
		Log:           logger,
		DB:            conn,
		Redis:         rdb,
		Auth:          services.NewAuthService(conn, cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.BotUsername),
		Users:         services.NewUserService(conn, uploads),
		Posts:         services.NewPostService(conn, unfurl, views, logger),
		Comments:      services.NewCommentService(conn, notifications, logger),
		Planets:       services.NewPlanetService(conn),
		Topics:        services.NewTopicService(conn),
		Moderation:    services.NewModerationService(conn, uploads),
		Notifications: notifications,
		Endorsements:  services.NewEndorsementService(conn),
		Uploads:       uploads,
	}

	// 启动后台任务
	views.Start()
	if cfg.ReposterEnabled {
		if len(cfg.ReposterFeeds) == 0 || cfg.BotPassword == "" {
			logger.Warn("Reposter enabled without REPOSTER_FEEDS or BOT_PASSWORD, not starting")
		} else {
			deps.Reposter = services.NewReposter(conn, unfurl, logger, cfg.ReposterFeeds, cfg.ReposterInterval, cfg.BotUsername, cfg.BotPassword)
			deps.Reposter.Start()
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router.New(deps),
		MaxHeaderBytes: 1 << 20,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("failed to run http server: %s", err.Error())
		}
	}()
	logger.Info("Comet server started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if deps.Reposter != nil {
		deps.Reposter.Stop()
	}
	views.Stop()
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// connectRedis returns nil when REDIS_ADDR is unset or redis does not
// answer, which turns the request rate limiter off.
func connectRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, request rate limiting disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		logger.Warn("failed to ping redis, request rate limiting disabled", zap.Error(err))
		rdb.Close()
		return nil
	}
	logger.Sugar().Infof("Successfully connected to Redis: %s", pong)
	return rdb
}
