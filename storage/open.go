package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-admin-session/internal/config"
	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Open builds the repo selected by cfg.GetStorageDriver().
func Open(ctx context.Context, cfg config.StorageConfig) (Repo, error) {
	switch cfg.GetStorageDriver() {
	case DriverMemory:
		return NewMemoryRepo(), nil
	case DriverFile:
		return NewFileRepo(cfg.GetStoragePath())
	case DriverRedis:
		return DialRedis(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisPrefix())
	case DriverSQLite:
		return NewSQLiteRepo(cfg.GetSQLitePath())
	default:
		return nil, fmt.Errorf("storage driver %q: %w", cfg.GetStorageDriver(), apperrors.ErrUnsupportedStorage)
	}
}
