package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
	ConsoleConfig
	CorsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBase() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// LookupFunc resolves a configuration key. os.Getenv is the default; the CLI
// substitutes viper so flags, config files and env all feed the same getters.
type LookupFunc func(key string) string

type mainConfig struct {
	EnvVars
	Session
	Storage
	Console
	Cors
}

func New() Config {
	return NewWithLookup(os.Getenv)
}

func NewWithLookup(lookup LookupFunc) Config {
	if lookup == nil {
		lookup = os.Getenv
	}
	env := EnvVars{lookup: lookup}
	return mainConfig{
		EnvVars: env,
		Session: Session{env: env},
		Storage: Storage{env: env},
		Console: Console{env: env},
		Cors:    Cors{env: env},
	}
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
