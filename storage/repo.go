package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
)

// Persisted keys. All three are written together and cleared together.
const (
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyTokenTimestamp = "tokenTimestamp"
)

// Keys lists every persisted key in a stable order.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenTimestamp}

// ErrNotFound is returned by Load when no complete record is stored.
var ErrNotFound = fmt.Errorf("stored session %w", apperrors.ErrNotFound)

// Record is the persisted mirror of a session's credentials.
type Record struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
}

// Repo persists a single session record. The session store is its only writer.
type Repo interface {
	// Load returns ErrNotFound when nothing (or only part of a record) is stored
	Load(ctx context.Context) (*Record, error)

	// Save writes all keys in one step
	Save(ctx context.Context, record Record) error

	// Clear removes all keys; clearing an empty repo is not an error
	Clear(ctx context.Context) error

	Close() error
}

// encode maps a record onto the persisted key/value layout.
func encode(record Record) map[string]string {
	return map[string]string{
		KeyAccessToken:    record.AccessToken,
		KeyRefreshToken:   record.RefreshToken,
		KeyTokenTimestamp: strconv.FormatInt(record.IssuedAt.UnixMilli(), 10),
	}
}

// decode is the inverse of encode. Missing or empty values mean no record.
func decode(values map[string]string) (*Record, error) {
	access, refresh, ts := values[KeyAccessToken], values[KeyRefreshToken], values[KeyTokenTimestamp]
	if access == "" || refresh == "" || ts == "" {
		return nil, ErrNotFound
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", KeyTokenTimestamp, ts, apperrors.ErrStorage)
	}
	return &Record{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     time.UnixMilli(ms),
	}, nil
}

func validate(record Record) error {
	if record.AccessToken == "" || record.RefreshToken == "" {
		return fmt.Errorf("access and refresh tokens are both required: %w", apperrors.ErrStorage)
	}
	if record.IssuedAt.IsZero() {
		return fmt.Errorf("issued at is required: %w", apperrors.ErrStorage)
	}
	return nil
}
