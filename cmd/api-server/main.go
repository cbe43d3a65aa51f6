package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rrattigan/Belleview-Hospital/internal/api"
	"github.com/rrattigan/Belleview-Hospital/internal/clinic"
	"github.com/rrattigan/Belleview-Hospital/internal/config"
	"github.com/rrattigan/Belleview-Hospital/internal/db"
	"github.com/rrattigan/Belleview-Hospital/internal/lock"
)

const version = "1.0.0"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when a DSN is configured, otherwise in-memory.
	var (
		repo   clinic.Repository
		pgPool *pgxpool.Pool
	)
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()

		pgRepo := clinic.NewPgRepository(pgPool)
		if err := pgRepo.Migrate(rootCtx); err != nil {
			logger.Fatal().Err(err).Msg("postgres migration error")
		}
		repo = pgRepo
		logger.Info().Msg("connected to Postgres")
	} else {
		repo = clinic.NewMemoryRepository()
		logger.Info().Msg("running with in-memory storage")
	}

	// Locking: Redis when configured, otherwise a per-doctor mutex.
	var (
		locker lock.Locker
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb, err = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = lock.NewRedisDoctorLocker(rdb, cfg.LockTTL)
		logger.Info().Msg("connected to Redis")
	} else {
		locker = lock.NewLocalDoctorLocker()
		logger.Info().Msg("running with in-process doctor locks")
	}

	svc := clinic.NewService(repo, locker, clinic.NewIDGenerator(), cfg.ConsultationFee, logger)
	if err := svc.SyncIdentifiers(rootCtx); err != nil {
		logger.Fatal().Err(err).Msg("identifier sync error")
	}

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
