package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/config"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/services"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/stats"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/workers"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// @title                       Kanso Habit Stats API
// @version                     1.0
// @description                 Habit tracking with per-habit streak and completion statistics.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(os.Stdout, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, dialect); err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.DBDriver)

	var (
		userRepo  domain.UserRepository
		habitRepo domain.HabitRepository
	)
	switch dialect {
	case repository.DialectPostgres:
		userRepo = repository.NewPostgresUserRepository(db)
		habitRepo = repository.NewPostgresHabitRepository(db)
	default:
		userRepo = repository.NewSQLiteUserRepository(db)
		habitRepo = repository.NewSQLiteHabitRepository(db)
	}

	var statsOpts []services.StatsOption
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		habitRepo = repository.NewCachedHabitRepository(habitRepo, redisClient)
		statsOpts = append(statsOpts, services.WithStatsCache(cache.NewRedisStatsCache(redisClient, 0)))
		logger.Info("redis connected", "host", cfg.RedisHost, "db", cfg.RedisDB)
	} else {
		logger.Warn("REDIS_HOST not set, running without cache and rate limiting")
	}

	statsService := services.NewStatsService(habitRepo, stats.NewEngine(cfg.Location), statsOpts...)
	statsWorker := workers.NewStatsWorker(statsService)
	habitService := services.NewHabitService(habitRepo, statsWorker, cfg.Location)
	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, userRepo)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(authService, tokenService),
		HabitHandler: adapterHTTP.NewHabitHandler(habitService, cfg.Location),
		StatsHandler: adapterHTTP.NewStatsHandler(statsService),
		TokenService: tokenService,
		DB:           db,
		Redis:        redisClient,
		RateLimit:    cfg.RateLimit,
		RateWindow:   cfg.RateWindow,
		StartTime:    startTime,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	workerDone := statsWorker.Start(gctx)

	g.Go(func() error {
		logger.Info("Kanso Habit Stats running", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stop signal received, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		<-workerDone
		return err
	})

	return g.Wait()
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, string, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		return db, repository.DialectSQLite, err
	}
	db, err := repository.OpenPostgres(ctx, cfg.PostgresDSN())
	return db, repository.DialectPostgres, err
}
