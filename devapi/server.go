package devapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-admin-session/internal/config"
	"github.com/jrsteele09/go-admin-session/internal/utils"
	"github.com/jrsteele09/go-admin-session/resources"
	"github.com/jrsteele09/go-admin-session/users"
	fakeuserrepo "github.com/jrsteele09/go-admin-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server is an in-memory implementation of the admin REST API, used for
// tests and local demos.
type Server struct {
	mux      *http.ServeMux
	routes   []string
	basePath string

	accounts users.AccountRepo
	signer   *HMACSigner
	refresh  *refreshManager
	revoked  *revokedTokens
	cors     config.CorsConfig

	accessTTL         time.Duration
	refreshTTL        time.Duration
	secret            string
	legacySingleToken bool
	nowFunc           func() time.Time
	logger            zerolog.Logger

	hitsMu sync.Mutex
	hits   map[string]int

	refreshStatus atomic.Int32
	refreshDelay  atomic.Int64

	clients  *table[resources.Client]
	tasks    *table[resources.Task]
	payments *table[resources.Payment]
}

type Option func(*Server)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = accessTokenExpiry
		s.refreshTTL = refreshTokenExpiry
	}
}

// WithBasePath mounts the API under path instead of /api.
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = strings.TrimSuffix(path, "/")
	}
}

func WithCors(cfg config.CorsConfig) Option {
	return func(s *Server) {
		s.cors = cfg
	}
}

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

func WithAccountRepo(repo users.AccountRepo) Option {
	return func(s *Server) {
		s.accounts = repo
	}
}

// WithLegacySingleToken makes login reply with a lone "token" the way older backends did.
func WithLegacySingleToken(enabled bool) Option {
	return func(s *Server) {
		s.legacySingleToken = enabled
	}
}

func New(options ...Option) (*Server, error) {
	s := &Server{
		mux:        http.NewServeMux(),
		basePath:   "/api",
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		nowFunc:    time.Now,
		logger:     log.Logger,
		hits:       make(map[string]int),
		revoked:    newRevokedTokens(),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.accounts == nil {
		s.accounts = fakeuserrepo.NewFakeUserRepo()
	}
	if s.secret == "" {
		secret := make([]byte, 32) // 256 bits
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("[devapi.New] failed to generate HMAC secret: %w", err)
		}
		s.secret = hex.EncodeToString(secret)
	}
	s.signer = NewHMACSigner(s.secret)
	s.refresh = newRefreshManager(s.refreshTTL, s.nowFunc)

	s.clients = newTable(func(c *resources.Client, id int64, now time.Time) {
		c.ID = id
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		if c.Status == "" {
			c.Status = resources.ClientActive
		}
	})
	s.tasks = newTable(func(t *resources.Task, id int64, now time.Time) {
		t.ID = id
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if t.Status == "" {
			t.Status = resources.TaskTodo
		}
		if t.Priority == "" {
			t.Priority = resources.PriorityMedium
		}
	})
	s.payments = newTable(func(p *resources.Payment, id int64, now time.Time) {
		p.ID = id
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if p.Status == "" {
			p.Status = resources.PaymentPending
		}
		if p.Currency == "" {
			p.Currency = "USD"
		}
		if p.Status == resources.PaymentPaid && p.PaidDate == nil {
			p.PaidDate = utils.Ptr(now)
		}
	})

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns.
func (s *Server) Routes() []string {
	routes := append([]string(nil), s.routes...)
	sort.Strings(routes)
	return routes
}

// AddAccount registers an active account directly, bypassing the register endpoint.
func (s *Server) AddAccount(name, email, password string, plan users.PlanType) (*users.Profile, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if plan == "" {
		plan = users.PlanFree
	}
	account := &users.Account{
		Profile:      users.Profile{Name: name, Email: email, Plan: plan},
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, fmt.Errorf("failed to store account: %w", err)
	}
	profile := account.Profile
	return &profile, nil
}

// RevokeAccessTokens invalidates every access token issued so far, forcing
// clients through a refresh. It returns how many were revoked.
func (s *Server) RevokeAccessTokens() int {
	return s.revoked.RevokeAll()
}

// FailRefresh makes the refresh endpoint answer with status; 0 restores normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.refreshStatus.Store(int32(status))
}

// DelayRefresh holds every refresh reply for d.
func (s *Server) DelayRefresh(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// Hits returns how often route ("POST /auth/refresh") was called.
func (s *Server) Hits(route string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[route]
}

func (s *Server) hit(route string) {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	s.hits[route]++
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("base", s.basePath).Msg("development API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
