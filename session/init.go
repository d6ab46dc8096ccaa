package session

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/storage"
)

// Init restores a persisted session and reconciles it with the server:
// profile first, then a refresh and a second profile attempt, then logout.
func (s *Store) Init(ctx context.Context) (InitState, error) {
	done := s.begin()
	defer done()

	record, err := s.repo.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return InitEmpty, s.Logout(ctx)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("unreadable persisted session, clearing")
		return InitCleared, errors.Join(fmt.Errorf("[Store.Init] %w: %w", apperrors.ErrStorage, err), s.Logout(ctx))
	}

	if age := s.nowFunc().Sub(record.IssuedAt); age > s.maxAge {
		s.logger.Info().Dur("age", age).Msg("persisted session too old, clearing")
		return InitCleared, s.Logout(ctx)
	}

	s.mu.Lock()
	s.generation++
	s.accessToken = record.AccessToken
	s.refreshToken = record.RefreshToken
	s.issuedAt = record.IssuedAt
	s.authenticated = true
	s.user = nil
	s.lastErr = ""
	s.mu.Unlock()

	err = s.FetchProfile(ctx)
	if err == nil {
		return InitProfileOK, nil
	}
	if ctx.Err() != nil {
		return InitCleared, errors.Join(ctx.Err(), s.Logout(ctx))
	}
	s.logger.Debug().Err(err).Msg("restored session profile failed, refreshing")

	if err := s.Refresh(ctx); err != nil {
		// Refresh has already logged out unless ctx ended first.
		if ctx.Err() != nil {
			err = errors.Join(err, s.Logout(ctx))
		}
		return InitCleared, apperrors.Wrapf(err, "[Store.Init]")
	}

	if err := s.FetchProfile(ctx); err != nil {
		return InitRefreshed, apperrors.Wrapf(err, "[Store.Init]")
	}
	return InitRefreshedProfileOK, nil
}
