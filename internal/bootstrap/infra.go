package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/profile-import/internal/config"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/db/models"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/progress"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Infra holds the shared connections of a process.
type Infra struct {
	DB        *gorm.DB
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Publisher *progress.RedisPublisher
}

// OpenInfra connects to Postgres and, when configured, Redis.
func OpenInfra(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	infra := &Infra{DB: db}

	if cfg.Database.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			infra.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database schema migrated")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	infra.Pool = pool

	if cfg.Redis.Addr != "" {
		client, err := progress.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Redis = client
		infra.Publisher = progress.NewRedisPublisher(client, cfg.Import.SessionTTL)
		logger.Info("progress publishing enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}

	return infra, nil
}

func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
	if i.DB != nil {
		if sqlDB, err := i.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
