package config

import (
	"os"
	"path/filepath"
)

type StorageConfig interface {
	GetStorageDriver() string
	GetStoragePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
	GetSQLitePath() string
}

type Storage struct {
	env EnvVars
}

var _ StorageConfig = Storage{}

// GetStorageDriver is one of "file", "memory", "redis" or "sqlite".
func (s Storage) GetStorageDriver() string {
	return s.env.get("STORAGE_DRIVER", "file")
}

func (s Storage) GetStoragePath() string {
	return s.env.get("STORAGE_PATH", defaultDataFile(".admin-session.yaml"))
}

func (s Storage) GetRedisAddr() string {
	return s.env.get("REDIS_ADDR", "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return s.env.get("REDIS_PASSWORD", "")
}

func (s Storage) GetRedisPrefix() string {
	return s.env.get("REDIS_PREFIX", "admin-session")
}

func (s Storage) GetSQLitePath() string {
	return s.env.get("SQLITE_PATH", defaultDataFile(".admin-session.db"))
}

func defaultDataFile(name string) string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, name)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, name)
	}
	return name
}
