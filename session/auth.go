package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/storage"
	"github.com/jrsteele09/go-admin-session/users"
	"golang.org/x/oauth2"
)

// Login exchanges credentials for a token pair. The session only becomes
// authenticated once the pair has been persisted; a failure leaves it untouched.
func (s *Store) Login(ctx context.Context, email, password string) error {
	done := s.begin()
	defer done()

	if err := users.ValidateLogin(email, password); err != nil {
		err = fmt.Errorf("[Store.Login] %w: %w", apperrors.ErrInvalidCredentials, err)
		s.recordErr(err)
		return err
	}

	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.auth.Do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		s.recordErr(err)
		return apperrors.Wrapf(err, "[Store.Login]")
	}

	pair, err := s.loginPair(resp)
	if err != nil {
		s.recordErr(err)
		return apperrors.Wrapf(err, "[Store.Login]")
	}

	s.mu.Lock()
	issuedAt := s.now()
	if err := s.repo.Save(ctx, storage.Record{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, IssuedAt: issuedAt}); err != nil {
		s.lastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("[Store.Login] %w: %w", apperrors.ErrStorage, err)
	}
	s.generation++
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.issuedAt = issuedAt
	s.authenticated = true
	s.user = resp.User
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Info().Str("email", email).Msg("logged in")

	// A profile failure does not undo the login.
	if err := s.FetchProfile(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("profile fetch after login failed")
	}
	return nil
}

// loginPair extracts the credential pair, accepting a lone "token" only in legacy mode.
func (s *Store) loginPair(resp authResponse) (tokenPair, error) {
	if resp.Tokens != nil && resp.Tokens.AccessToken != "" {
		if resp.Tokens.RefreshToken == "" {
			return tokenPair{}, fmt.Errorf("%w: missing refresh_token", apperrors.ErrMalformedTokenResponse)
		}
		return *resp.Tokens, nil
	}
	if resp.Token != "" {
		if !s.legacySingleToken {
			return tokenPair{}, fmt.Errorf("%w: single token reply without a refresh token", apperrors.ErrMalformedTokenResponse)
		}
		return tokenPair{AccessToken: resp.Token, RefreshToken: resp.Token}, nil
	}
	return tokenPair{}, fmt.Errorf("%w: no tokens", apperrors.ErrMalformedTokenResponse)
}

// Register creates the account and then logs in with the same credentials.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	done := s.begin()
	defer done()

	if err := users.ValidateRegistration(name, email, password); err != nil {
		err = fmt.Errorf("[Store.Register] %w: %w", apperrors.ErrInvalidCredentials, err)
		s.recordErr(err)
		return err
	}

	body := map[string]string{"name": name, "email": email, "password": password}
	if err := s.auth.Do(ctx, http.MethodPost, "/auth/register", body, nil); err != nil {
		s.recordErr(err)
		return apperrors.Wrapf(err, "[Store.Register]")
	}
	return s.Login(ctx, email, password)
}

// Logout is idempotent. The server is told in the background; local state and
// storage are always cleared. A storage error is returned after memory is cleared.
func (s *Store) Logout(ctx context.Context) error {
	return s.logoutIf(ctx, nil)
}

// logoutIf clears the session when gen is nil or still names the current
// generation. The check and the clear share one critical section.
func (s *Store) logoutIf(ctx context.Context, gen *uint64) error {
	done := s.begin()
	defer done()

	s.mu.Lock()
	if gen != nil && *gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	access := s.accessToken
	s.generation++
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.authenticated = false
	s.issuedAt = time.Time{}
	s.lastErr = ""
	err := s.repo.Clear(context.WithoutCancel(ctx))
	s.mu.Unlock()

	if access != "" {
		s.notifyLogout(ctx, access)
		s.logger.Info().Msg("logged out")
	}
	if err != nil {
		return fmt.Errorf("[Store.Logout] %w: %w", apperrors.ErrStorage, err)
	}
	return nil
}

func (s *Store) notifyLogout(ctx context.Context, access string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		defer cancel()

		req, err := s.auth.NewRequest(ctx, http.MethodPost, "/auth/logout", nil)
		if err != nil {
			s.logger.Debug().Err(err).Msg("server logout request")
			return
		}
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(req)
		if err := s.auth.Send(req, nil); err != nil {
			s.logger.Debug().Err(err).Msg("server logout failed")
		}
	}()
}
