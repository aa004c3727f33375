package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/config"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository/memory"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository/postgres"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/migrations"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
)

// Storage is the configured persistence backend.
type Storage struct {
	Repos repository.Repositories
	UoW   repository.UnitOfWork

	// Pool is nil for the memory driver.
	Pool *pgxpool.Pool
}

// OpenStorage connects the backend selected by cfg.StorageDriver.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &Storage{Repos: store.Repositories(), UoW: store}, nil
	}

	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	return &Storage{
		Repos: postgres.NewRepositories(pool),
		UoW:   postgres.NewUnitOfWork(pool),
		Pool:  pool,
	}, nil
}

// Migrate applies pending schema migrations. It is a no-op for the memory
// driver.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) ([]string, error) {
	if s.Pool == nil {
		return nil, nil
	}
	applied, err := database.RunMigrations(ctx, s.Pool, migrations.FS, logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return applied, nil
}

// Ping checks the backend connection.
func (s *Storage) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
