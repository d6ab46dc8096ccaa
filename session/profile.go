package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/users"
)

// FetchProfile loads the user profile through the intercepting client, so an
// expired access token is renewed there rather than here.
func (s *Store) FetchProfile(ctx context.Context) error {
	done := s.begin()
	defer done()

	s.mu.RLock()
	access, gen := s.accessToken, s.generation
	s.mu.RUnlock()
	if access == "" {
		return fmt.Errorf("[Store.FetchProfile] %w", apperrors.ErrNoAccessToken)
	}

	var raw json.RawMessage
	if err := s.api.Do(ctx, http.MethodGet, "/user/profile", nil, &raw); err != nil {
		s.recordErr(err)
		return apperrors.Wrapf(err, "[Store.FetchProfile]")
	}
	profile, err := decodeProfile(raw)
	if err != nil {
		s.recordErr(err)
		return apperrors.Wrapf(err, "[Store.FetchProfile]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || !s.authenticated {
		return fmt.Errorf("[Store.FetchProfile] %w", apperrors.ErrSessionExpired)
	}
	s.user = profile
	s.lastErr = ""
	return nil
}

// decodeProfile accepts a bare profile or one wrapped as {"user": {...}}.
func decodeProfile(raw json.RawMessage) (*users.Profile, error) {
	var wrapped struct {
		User *users.Profile `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var profile users.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if profile.ID == 0 && profile.Email == "" {
		return nil, fmt.Errorf("profile response has no user")
	}
	return &profile, nil
}
