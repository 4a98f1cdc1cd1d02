package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nomina/internal/platform/config"
)

func Connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = 2
	if poolCfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}
