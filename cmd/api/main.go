package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/taskforge/task-manager/internal/api/http"
	"github.com/taskforge/task-manager/internal/api/http/handlers"
	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/events"
	"github.com/taskforge/task-manager/internal/filter"
	"github.com/taskforge/task-manager/internal/observability"
	"github.com/taskforge/task-manager/internal/persistence"
	"github.com/taskforge/task-manager/internal/repository"
	"github.com/taskforge/task-manager/internal/seed"
	"github.com/taskforge/task-manager/internal/service"
	"github.com/taskforge/task-manager/internal/worker"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

func main() {
	envFiles := pflag.StringSlice("env-file", nil, "env files to load before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply migrations and seed data, then exit")
	pflag.Parse()

	cfg, err := config.Load(*envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *migrateOnly {
		cfg.Store.RunMigrations = true
	}

	logger, syncLogger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer syncLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	db := store.DB()
	timeout := cfg.Store.QueryTimeout()
	taskRepo := repository.NewTaskRepository(db, timeout)
	userRepo := repository.NewUserRepository(db, timeout)
	statusRepo := repository.NewStatusRepository(db, timeout)
	labelRepo := repository.NewLabelRepository(db, timeout)

	builder, err := filter.NewTaskBuilder()
	if err != nil {
		logger.Fatal("invalid task filter table", zap.Error(err))
	}
	if err := repository.CheckTaskFields(builder.FieldNames()); err != nil {
		logger.Fatal("filter fields without a column", zap.Error(err))
	}

	clk := clock.Real()
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), clk)
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.BcryptCost, logger)
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost, clk, logger)
	statusService := service.NewStatusService(statusRepo, clk)
	labelService := service.NewLabelService(labelRepo, clk)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		StatusRepo: statusRepo,
		UserRepo:   userRepo,
		LabelRepo:  labelRepo,
		Dispatcher: dispatcher,
		Index:      apperrors.NewIndexGenerator(cfg.App.SnowflakeNode),
		Clock:      clk,
		Logger:     logger,
	})

	if cfg.Seed.Enabled || *migrateOnly {
		doc, err := seed.Load(cfg.Seed.File)
		if err != nil {
			logger.Fatal("failed to load seed document", zap.Error(err))
		}
		seeder := seed.NewSeeder(userService, statusService, labelService, logger)
		if err := seeder.Run(ctx, doc, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to seed defaults", zap.Error(err))
		}
	}
	if *migrateOnly {
		logger.Info("migrations and seed applied")
		return
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	// A nil *Redis must not reach the interfaces below as a typed nil.
	var (
		publisher  *service.EventPublisher
		redisProbe handlers.Pinger
	)
	if redis != nil {
		publisher = service.NewEventPublisher(redis, cfg.Events.RedisChannel, logger)
		redisProbe = redis
	}
	worker.Start(dispatcher, service.NewNotificationService(dispatcher, logger), publisher)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, redisProbe, metrics),
		Auth:     handlers.NewAuthHandler(authService),
		Tasks:    handlers.NewTasksHandler(taskService, builder),
		Users:    handlers.NewUsersHandler(userService),
		Statuses: handlers.NewStatusesHandler(statusService),
		Labels:   handlers.NewLabelsHandler(labelService),
		Gate:     auth.NewGate(authService.Tokens(), logger, httptransport.PublicPaths...),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
