package guard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-admin-session/internal/config"
	"github.com/jrsteele09/go-admin-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is the part of the session store the guard reads.
type Session interface {
	IsAuthenticated() bool
	Classify() token.Classification
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

type Action int

const (
	Proceed Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "proceed"
}

// Decision is the outcome of one navigation attempt.
type Decision struct {
	Action   Action
	Location string
}

// Guard decides whether a navigation may proceed given the current session.
type Guard struct {
	session Session
	public  map[string]struct{}
	login   string
	landing string
	logger  zerolog.Logger
}

type Option func(*Guard)

// WithPublicRoutes replaces the set of paths reachable without a session.
func WithPublicRoutes(paths ...string) Option {
	return func(g *Guard) {
		g.public = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			g.public[p] = struct{}{}
		}
	}
}

func WithLoginRoute(path string) Option {
	return func(g *Guard) {
		g.login = path
	}
}

func WithLandingRoute(path string) Option {
	return func(g *Guard) {
		g.landing = path
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func New(session Session, options ...Option) *Guard {
	g := &Guard{
		session: session,
		login:   "/auth/login",
		landing: "/",
		logger:  log.Logger,
	}
	WithPublicRoutes("/auth/login", "/auth/register", "/auth/forgot-password", "/auth/reset-password")(g)
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewFromConfig builds a guard from console configuration; options override it.
func NewFromConfig(session Session, cfg config.ConsoleConfig, options ...Option) *Guard {
	base := []Option{
		WithPublicRoutes(cfg.GetPublicRoutes()...),
		WithLoginRoute(cfg.GetLoginRoute()),
		WithLandingRoute(cfg.GetLandingRoute()),
	}
	return New(session, append(base, options...)...)
}

// IsPublic reports whether path is in the public set. Matching is exact.
func (g *Guard) IsPublic(path string) bool {
	_, ok := g.public[path]
	return ok
}

// Decide evaluates one navigation to target. A failed in-guard refresh always
// ends in a redirect; the guard never retries.
func (g *Guard) Decide(ctx context.Context, target *url.URL) Decision {
	authenticated := g.session.IsAuthenticated()

	if g.IsPublic(target.Path) {
		if authenticated {
			return Decision{Action: Redirect, Location: g.landing}
		}
		return Decision{Action: Proceed}
	}

	if !authenticated {
		return Decision{Action: Redirect, Location: g.loginLocation(target, false)}
	}

	// Malformed tokens may be opaque; the interceptor deals with their 401s.
	if !g.session.Classify().NeedsRenewal() {
		return Decision{Action: Proceed}
	}

	if err := g.session.Refresh(ctx); err != nil {
		g.logger.Info().Err(err).Str("path", target.Path).Msg("guard refresh failed")
		if err := g.session.Logout(context.WithoutCancel(ctx)); err != nil {
			g.logger.Warn().Err(err).Msg("guard logout")
		}
		return Decision{Action: Redirect, Location: g.loginLocation(target, true)}
	}
	return Decision{Action: Proceed}
}

// Middleware applies Decide to every request, answering redirects with 303.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r.Context(), r.URL)
		if d.Action == Redirect {
			g.logger.Debug().Str("from", r.URL.Path).Str("to", d.Location).Msg("guard redirect")
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) loginLocation(target *url.URL, expired bool) string {
	q := url.Values{}
	q.Set("redirect", target.RequestURI())
	if expired {
		q.Set("expired", "true")
	}
	return g.login + "?" + q.Encode()
}
