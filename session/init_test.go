package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/jrsteele09/go-admin-session/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// stubAPI serves fixed opaque tokens so exact values can be asserted.
type stubAPI struct {
	profileStatus func(bearer string) int
	refreshStatus atomic.Int32
	refreshes     atomic.Int32
}

func (a *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "POST /api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tokens": map[string]string{"access_token": "A1", "refresh_token": "R1"},
		})
	case "POST /api/auth/refresh":
		a.refreshes.Add(1)
		if status := a.refreshStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "refresh rejected"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tokens": map[string]string{"access_token": "A2", "refresh_token": "R2"},
		})
	case "GET /api/user/profile":
		status := http.StatusOK
		if a.profileStatus != nil {
			status = a.profileStatus(r.Header.Get("Authorization"))
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": 1, "name": "Ana Admin", "email": "a@b.com", "plan": "pro"},
		})
	case "POST /api/auth/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func newStub(t *testing.T, api *stubAPI) (string, *storage.MemoryRepo) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv.URL + "/api", storage.NewMemoryRepo()
}

func newStubStore(t *testing.T, base string, repo storage.Repo) *session.Store {
	t.Helper()
	s, err := session.New(base, repo, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(s.Wait)
	return s
}

func TestLogin_PersistsExactPair(t *testing.T) {
	ctx := context.Background()
	base, repo := newStub(t, &stubAPI{})
	s := newStubStore(t, base, repo)

	require.NoError(t, s.Login(ctx, "a@b.com", "Secret123"))
	require.True(t, s.IsAuthenticated())
	require.Equal(t, "A1", repo.Values()[storage.KeyAccessToken])
	require.Equal(t, "R1", repo.Values()[storage.KeyRefreshToken])
	require.Equal(t, "Ana Admin", s.User().Name)
}

func TestInit_States(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T, repo storage.Repo) {
		t.Helper()
		require.NoError(t, repo.Save(ctx, storage.Record{AccessToken: "A1", RefreshToken: "R1", IssuedAt: time.Now().Add(-time.Hour)}))
	}

	t.Run("refreshed then profile ok", func(t *testing.T) {
		api := &stubAPI{profileStatus: func(bearer string) int {
			if bearer == "Bearer A2" {
				return http.StatusOK
			}
			return http.StatusInternalServerError
		}}
		base, repo := newStub(t, api)
		seed(t, repo)

		s := newStubStore(t, base, repo)
		state, err := s.Init(ctx)
		require.NoError(t, err)
		require.Equal(t, session.InitRefreshedProfileOK, state)
		require.Equal(t, "A2", s.AccessToken())
		require.Equal(t, "A2", repo.Values()[storage.KeyAccessToken])
		require.Equal(t, "R2", repo.Values()[storage.KeyRefreshToken])
	})

	t.Run("refreshed without profile", func(t *testing.T) {
		api := &stubAPI{profileStatus: func(string) int { return http.StatusBadGateway }}
		base, repo := newStub(t, api)
		seed(t, repo)

		s := newStubStore(t, base, repo)
		state, err := s.Init(ctx)
		require.True(t, apperrors.IsServer(err))
		require.Equal(t, session.InitRefreshed, state)
		require.True(t, s.IsAuthenticated())
		require.Nil(t, s.User())
	})

	t.Run("refresh rejected", func(t *testing.T) {
		api := &stubAPI{profileStatus: func(string) int { return http.StatusInternalServerError }}
		api.refreshStatus.Store(http.StatusUnauthorized)
		base, repo := newStub(t, api)
		seed(t, repo)

		s := newStubStore(t, base, repo)
		state, err := s.Init(ctx)
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
		require.Equal(t, session.InitCleared, state)
		require.Empty(t, repo.Values())
		require.EqualValues(t, 1, api.refreshes.Load())
	})

	t.Run("unreadable storage", func(t *testing.T) {
		base, repo := newStub(t, &stubAPI{})
		s := newStubStore(t, base, brokenRepo{repo})
		state, err := s.Init(ctx)
		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.Equal(t, session.InitCleared, state)
	})

	t.Run("state names", func(t *testing.T) {
		require.Equal(t, "refreshed_profile_ok", session.InitRefreshedProfileOK.String())
		require.Equal(t, "empty", session.InitEmpty.String())
	})
}

type brokenRepo struct{ *storage.MemoryRepo }

func (brokenRepo) Load(context.Context) (*storage.Record, error) {
	return nil, apperrors.ErrInternal
}
