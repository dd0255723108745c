package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/config"
	"github.com/noah-isme/acadex-api/internal/database"
	"github.com/noah-isme/acadex-api/internal/handler"
	"github.com/noah-isme/acadex-api/internal/middleware"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
	"github.com/noah-isme/acadex-api/internal/router"
	"github.com/noah-isme/acadex-api/internal/service"
	cloud "github.com/noah-isme/acadex-api/pkg/cloudinary"
)

// bodyLimit fits a full multi-file submission plus multipart overhead.
const bodyLimit = int((service.MaxFilesPerSubmission + 1) * service.MaxUploadBytes)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	var cacheStore cache.Cache
	if redisClient != nil {
		cacheStore = cache.NewRedisCache(redisClient, cfg.StorageNamespace)
	} else {
		cacheStore = cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
		logger.Info().Int("capacity", cfg.CacheSize).Msg("redis not configured, using in-memory cache")
	}

	hub := realtime.NewHub(redisClient, natsConn, cfg.RealtimeChannel, logger)
	hub.Start(ctx)

	blobStore, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	validate := service.NewValidator()

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	dashboardService := service.NewDashboardService(assignmentRepo, submissionRepo, gradeRepo, cacheStore, cfg.CacheTTL, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, cacheStore, cfg.CacheTTL, hub, dashboardService, logger)
	uploadService := service.NewUploadService(blobStore, cfg.StorageNamespace, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, gradeRepo, uploadService, validate, hub, dashboardService, logger)
	gradingService := service.NewGradingService(gradeRepo, submissionRepo, assignmentRepo, validate, hub, dashboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    bodyLimit,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger, cfg.StreamKeepAlive),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger, cfg.StreamKeepAlive),
		GradeHandler:      handler.NewGradeHandler(gradingService, logger, cfg.StreamKeepAlive),
		UploadHandler:     handler.NewUploadHandler(uploadService, logger),
		DashboardHandler:  handler.NewDashboardHandler(dashboardService, logger),
		WatchHandler:      handler.NewWatchHandler(assignmentService, submissionService, gradingService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		NodeID:            hub.NodeID(),
	})

	if !cfg.AuthEnabled {
		logger.Warn().Msg("authentication disabled, caller identity is taken from requests")
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
