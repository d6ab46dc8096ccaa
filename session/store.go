package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-admin-session/interceptor"
	"github.com/jrsteele09/go-admin-session/internal/apiclient"
	"github.com/jrsteele09/go-admin-session/internal/config"
	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/pipeline"
	"github.com/jrsteele09/go-admin-session/storage"
	"github.com/jrsteele09/go-admin-session/token"
	"github.com/jrsteele09/go-admin-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Store owns the session and its persisted mirror. It is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	user          *users.Profile
	accessToken   string
	refreshToken  string
	authenticated bool
	issuedAt      time.Time
	lastErr       string
	generation    uint64 // bumped by Login and Logout

	inflight   atomic.Int32
	refreshes  singleflight.Group
	background sync.WaitGroup

	repo        storage.Repo
	auth        *apiclient.Client // no interceptor: /auth/* must never recurse into a refresh
	api         *apiclient.Client
	httpClient  *http.Client
	interceptor *interceptor.Interceptor

	apiBase           string
	skew              time.Duration
	maxAge            time.Duration
	refreshTimeout    time.Duration
	logoutTimeout     time.Duration
	requestTimeout    time.Duration
	legacySingleToken bool
	transport         http.RoundTripper
	middleware        []pipeline.Middleware
	nowFunc           func() time.Time
	logger            zerolog.Logger
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTransport sets the round tripper at the bottom of the request pipeline.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Store) {
		s.transport = rt
	}
}

// WithMiddleware adds request middleware below the interceptor, so it sees every attempt.
func WithMiddleware(mw ...pipeline.Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithLegacySingleToken accepts login replies that carry one "token" instead of a pair.
func WithLegacySingleToken(enabled bool) Option {
	return func(s *Store) {
		s.legacySingleToken = enabled
	}
}

func WithSkew(skew time.Duration) Option {
	return func(s *Store) {
		s.skew = skew
	}
}

func WithMaxSessionAge(age time.Duration) Option {
	return func(s *Store) {
		s.maxAge = age
	}
}

func WithRefreshTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.refreshTimeout = timeout
	}
}

func WithLogoutTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.logoutTimeout = timeout
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.requestTimeout = timeout
	}
}

// New creates an empty store talking to apiBase. Call Init to restore a persisted session.
func New(apiBase string, repo storage.Repo, options ...Option) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[session.New] storage repo is required")
	}

	s := &Store{
		repo:           repo,
		apiBase:        apiBase,
		skew:           token.DefaultSkew,
		maxAge:         7 * 24 * time.Hour,
		refreshTimeout: 10 * time.Second,
		logoutTimeout:  5 * time.Second,
		requestTimeout: 30 * time.Second,
		transport:      http.DefaultTransport,
		nowFunc:        time.Now,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	i, err := interceptor.New(s, apiBase, interceptor.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("[session.New] %w", err)
	}
	s.interceptor = i

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[session.New] cookie jar: %w", err)
	}

	s.auth = apiclient.New(apiBase, &http.Client{
		Transport: pipeline.Chain(s.transport, s.middleware...),
		Jar:       jar,
		Timeout:   s.requestTimeout,
	})

	apiMiddleware := append([]pipeline.Middleware{i.Middleware()}, s.middleware...)
	s.httpClient = &http.Client{
		Transport: pipeline.Chain(s.transport, apiMiddleware...),
		Jar:       jar,
		Timeout:   s.requestTimeout,
	}
	s.api = apiclient.New(apiBase, s.httpClient)

	return s, nil
}

// NewFromConfig creates a store from configuration; options override it.
func NewFromConfig(cfg config.Config, repo storage.Repo, options ...Option) (*Store, error) {
	base := []Option{
		WithSkew(cfg.GetTokenSkew()),
		WithMaxSessionAge(cfg.GetMaxSessionAge()),
		WithRefreshTimeout(cfg.GetRefreshTimeout()),
		WithLogoutTimeout(cfg.GetLogoutTimeout()),
		WithRequestTimeout(cfg.GetRequestTimeout()),
		WithLegacySingleToken(cfg.GetLegacySingleToken()),
	}
	return New(cfg.GetAPIBase(), repo, append(base, options...)...)
}

// HTTPClient returns the client that attaches the credential and recovers from 401s.
func (s *Store) HTTPClient() *http.Client {
	return s.httpClient
}

// APIClient is HTTPClient wrapped for JSON endpoints under the API base.
func (s *Store) APIClient() *apiclient.Client {
	return s.api
}

func (s *Store) APIBase() string {
	return s.apiBase
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user *users.Profile
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return Snapshot{
		User:            user,
		AccessToken:     s.accessToken,
		RefreshToken:    s.refreshToken,
		IsAuthenticated: s.authenticated,
		IssuedAt:        s.issuedAt,
		Loading:         s.Loading(),
		Err:             s.lastErr,
	}
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) User() *users.Profile {
	return s.Snapshot().User
}

func (s *Store) Plan() users.PlanType {
	return s.Snapshot().Plan()
}

// Loading is true while any store operation is running.
func (s *Store) Loading() bool {
	return s.inflight.Load() > 0
}

// Err is the message of the last failed operation, cleared by the next success.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Classify reports the freshness of the current access token.
func (s *Store) Classify() token.Classification {
	return token.Classify(s.AccessToken(), s.nowFunc(), s.skew)
}

// Token implements oauth2.TokenSource, renewing the credential when it is about to expire.
func (s *Store) Token() (*oauth2.Token, error) {
	access := s.AccessToken()
	if access == "" {
		return nil, apperrors.ErrNoAccessToken
	}
	if token.Classify(access, s.nowFunc(), s.skew).NeedsRenewal() {
		if err := s.Renew(context.Background(), access); err != nil {
			return nil, err
		}
	}

	snap := s.Snapshot()
	if snap.AccessToken == "" {
		return nil, apperrors.ErrNoAccessToken
	}
	return &oauth2.Token{
		AccessToken:  snap.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: snap.RefreshToken,
		Expiry:       token.ExpiresAt(snap.AccessToken),
	}, nil
}

// Wait blocks until background server-side logouts have finished.
func (s *Store) Wait() {
	s.background.Wait()
}

// Close waits for background work and closes the storage repo.
func (s *Store) Close() error {
	s.Wait()
	return s.repo.Close()
}

// begin marks an operation in flight; the returned func must run on every exit.
func (s *Store) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

func (s *Store) now() time.Time {
	return time.UnixMilli(s.nowFunc().UnixMilli())
}

func (s *Store) recordErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = errMessage(err)
}

// errMessage prefers the server's message so it can be shown verbatim.
func errMessage(err error) string {
	var apiErr *apperrors.APIError
	if apperrors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
