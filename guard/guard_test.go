package guard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-admin-session/guard"
	"github.com/jrsteele09/go-admin-session/internal/config"
	"github.com/jrsteele09/go-admin-session/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	authenticated bool
	class         token.Classification
	refreshErr    error
	refreshes     int
	logouts       int
}

func (f *fakeSession) IsAuthenticated() bool {
	return f.authenticated
}

func (f *fakeSession) Classify() token.Classification {
	return f.class
}

func (f *fakeSession) Refresh(context.Context) error {
	f.refreshes++
	if f.refreshErr != nil {
		f.authenticated = false
		return f.refreshErr
	}
	f.class = token.Valid
	return nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.logouts++
	f.authenticated = false
	return nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		session   fakeSession
		target    string
		want      guard.Decision
		refreshes int
		logouts   int
	}{
		{
			name:   "protected without session",
			target: "/clients?page=2",
			want:   guard.Decision{Action: guard.Redirect, Location: "/auth/login?redirect=%2Fclients%3Fpage%3D2"},
		},
		{
			name:    "protected with valid token",
			session: fakeSession{authenticated: true, class: token.Valid},
			target:  "/clients",
			want:    guard.Decision{Action: guard.Proceed},
		},
		{
			name:    "protected with opaque token",
			session: fakeSession{authenticated: true, class: token.Malformed},
			target:  "/tasks",
			want:    guard.Decision{Action: guard.Proceed},
		},
		{
			name:      "protected with expiring token refreshes",
			session:   fakeSession{authenticated: true, class: token.ExpiringSoon},
			target:    "/payments",
			want:      guard.Decision{Action: guard.Proceed},
			refreshes: 1,
		},
		{
			name:      "protected with expired token and failed refresh",
			session:   fakeSession{authenticated: true, class: token.Expired, refreshErr: errors.New("session expired")},
			target:    "/payments",
			want:      guard.Decision{Action: guard.Redirect, Location: "/auth/login?expired=true&redirect=%2Fpayments"},
			refreshes: 1,
			logouts:   1,
		},
		{
			name:    "public with session goes to landing",
			session: fakeSession{authenticated: true, class: token.Valid},
			target:  "/auth/login",
			want:    guard.Decision{Action: guard.Redirect, Location: "/"},
		},
		{
			name:   "public without session",
			target: "/auth/register",
			want:   guard.Decision{Action: guard.Proceed},
		},
		{
			name:   "public match is exact",
			target: "/auth/login/extra",
			want:   guard.Decision{Action: guard.Redirect, Location: "/auth/login?redirect=%2Fauth%2Flogin%2Fextra"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.session
			g := guard.New(&s, guard.WithLogger(zerolog.Nop()))
			require.Equal(t, tt.want, g.Decide(ctx, mustURL(t, tt.target)))
			require.Equal(t, tt.refreshes, s.refreshes)
			require.Equal(t, tt.logouts, s.logouts)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	env := map[string]string{
		"PUBLIC_ROUTES": "/login, /status",
		"LOGIN_ROUTE":   "/login",
		"LANDING_ROUTE": "/dashboard",
	}
	cfg := config.NewWithLookup(func(k string) string { return env[k] })

	s := &fakeSession{}
	g := guard.NewFromConfig(s, cfg, guard.WithLogger(zerolog.Nop()))
	require.True(t, g.IsPublic("/status"))
	require.False(t, g.IsPublic("/auth/login"))
	require.Equal(t, "/login?redirect=%2F", g.Decide(context.Background(), mustURL(t, "/")).Location)

	s.authenticated = true
	require.Equal(t, "/dashboard", g.Decide(context.Background(), mustURL(t, "/login")).Location)
}

func TestMiddleware(t *testing.T) {
	s := &fakeSession{}
	g := guard.New(s, guard.WithLogger(zerolog.Nop()))
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("redirects with see other", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/auth/login?redirect=%2Fclients", rec.Header().Get("Location"))
	})

	t.Run("proceeds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	})
}
