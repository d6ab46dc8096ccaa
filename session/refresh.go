package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/storage"
)

// Refresh renews the current credential. Any failure logs the session out
// and returns an error matching errors.ErrSessionExpired.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Renew(ctx, s.AccessToken())
}

// Renew refreshes the credential unless the access token has already moved
// past stale. Callers presenting the same stale token share one request; the
// caller may stop waiting when ctx ends while the shared request runs on
// under the refresh timeout.
func (s *Store) Renew(ctx context.Context, stale string) error {
	done := s.begin()
	defer done()

	ch := s.refreshes.DoChan(stale, func() (any, error) {
		return nil, s.refresh(stale)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.recordErr(res.Err)
		}
		return res.Err
	}
}

func (s *Store) refresh(stale string) error {
	s.mu.RLock()
	access, refreshToken, gen, prevIssued := s.accessToken, s.refreshToken, s.generation, s.issuedAt
	s.mu.RUnlock()

	if access != "" && access != stale {
		return nil
	}
	if refreshToken == "" {
		return s.expire(gen, apperrors.ErrNoRefreshToken)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	var resp authResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := s.auth.Do(ctx, http.MethodPost, "/auth/refresh", body, &resp); err != nil {
		return s.expire(gen, err)
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" {
		return s.expire(gen, fmt.Errorf("%w: no access_token", apperrors.ErrMalformedTokenResponse))
	}

	pair := *resp.Tokens
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	// Always move forward, even when the clock has not.
	issuedAt := s.now()
	if !issuedAt.After(prevIssued) {
		issuedAt = prevIssued.Add(time.Millisecond)
	}

	s.mu.Lock()
	if s.generation != gen {
		// Logged out (or back in) while the request was in flight; drop the result.
		authenticated := s.authenticated
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding refresh result for a replaced session")
		if !authenticated {
			return fmt.Errorf("[Store.Refresh] %w", apperrors.ErrSessionExpired)
		}
		return nil
	}
	if err := s.repo.Save(ctx, storage.Record{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, IssuedAt: issuedAt}); err != nil {
		s.mu.Unlock()
		return s.expire(gen, fmt.Errorf("%w: %w", apperrors.ErrStorage, err))
	}
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.issuedAt = issuedAt
	s.authenticated = true
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Debug().Msg("session refreshed")
	return nil
}

// expire logs out the session that started the refresh, unless it has
// already been replaced, and reports the session as expired.
func (s *Store) expire(gen uint64, cause error) error {
	s.logger.Info().Err(cause).Msg("refresh failed")
	if err := s.logoutIf(context.Background(), &gen); err != nil {
		s.logger.Warn().Err(err).Msg("logout after failed refresh")
	}
	return fmt.Errorf("[Store.Refresh] %w: %w", apperrors.ErrSessionExpired, cause)
}
