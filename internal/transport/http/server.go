package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clipshare/internal/cache"
	"clipshare/internal/config"
	"clipshare/internal/database"
	"clipshare/internal/handler"
	"clipshare/internal/logging"
	"clipshare/internal/queue"
	"clipshare/internal/redis"
	"clipshare/internal/repository"
	"clipshare/internal/service"
	"clipshare/internal/worker"
)

const (
	redisConnectTimeout = 5 * time.Second
	shutdownTimeout     = 15 * time.Second
)

func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Redis backs the following cache and the integrity stream. Both are
	// optional; the interfaces stay untyped nil without it.
	var (
		followingCache cache.FollowingCache
		publisher      queue.Publisher
		consumer       queue.Consumer
	)
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL, redisConnectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		followingCache = cache.NewFollowingCache(rdb.Client, cfg.FollowingCacheTTL)
		publisher = queue.NewPublisher(rdb.Client, logger)
		consumer = queue.NewConsumer(rdb.Client, logger)
		logger.Info("redis connected")
	} else {
		logger.Warn("REDIS_URL not set, following cache and repair events disabled")
	}

	var mediaService *service.MediaService
	if cfg.MediaConfigured() {
		mediaService, err = service.NewMediaService(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to init media service: %w", err)
		}
	} else {
		logger.Warn("R2 not configured, media uploads disabled")
	}

	// Repositories
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// Services
	authService := service.NewAuthService(refreshTokenRepo, cfg, logger)
	userService := service.NewUserService(userRepo, followRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, postRepo, commentRepo, tx, logger)
	postService := service.NewPostService(postRepo, userRepo, reactionService, tx, logger)
	searchService := service.NewSearchService(postService, userRepo, followRepo)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo, reactionRepo, reactionService, tx, publisher, logger)
	followService := service.NewFollowService(followRepo, userRepo, tx, followingCache, publisher, logger)
	feedService := service.NewFeedService(followRepo, postRepo, userRepo, reactionService, followingCache, logger)
	integrityService := service.NewIntegrityService(commentRepo, postRepo, userRepo, reactionRepo, tx, logger)

	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(userService, authService, mediaService, cfg, logger),
		UserHandler:     handler.NewUserHandler(userService, searchService, logger),
		FollowHandler:   handler.NewFollowHandler(followService, logger),
		FeedHandler:     handler.NewFeedHandler(feedService, logger),
		PostHandler:     handler.NewPostHandler(postService, searchService, logger),
		CommentHandler:  handler.NewCommentHandler(commentService, logger),
		ReactionHandler: handler.NewReactionHandler(reactionService, logger),
		MediaHandler:    handler.NewMediaHandler(mediaService, logger),

		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	})

	workerCfg := worker.DefaultManagerConfig()
	workerCfg.WorkerCount = cfg.WorkerCount
	workerCfg.SweepInterval = cfg.IntegritySweepInterval
	manager := worker.NewManager(consumer, worker.NewHandler(integrityService, logger), integrityService, authService, workerCfg, logger)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
