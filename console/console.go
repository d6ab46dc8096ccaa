package console

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-admin-session/guard"
	"github.com/jrsteele09/go-admin-session/internal/apiclient"
	"github.com/jrsteele09/go-admin-session/resources"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is what the console needs from the session store.
type Session interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
	Logout(ctx context.Context) error
	Snapshot() session.Snapshot
	APIClient() *apiclient.Client
}

// Console is a small local admin front end. Every route passes through the guard.
type Console struct {
	router    chi.Router
	session   Session
	guard     *guard.Guard
	resources *resources.Service
	landing   string
	login     string
	dev       bool
	logger    zerolog.Logger

	loginTmpl    *template.Template
	registerTmpl *template.Template
}

type Option func(*Console)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithDevelopment prints routes and requests in colour.
func WithDevelopment(dev bool) Option {
	return func(c *Console) {
		c.dev = dev
	}
}

func WithLandingRoute(path string) Option {
	return func(c *Console) {
		c.landing = path
	}
}

func WithLoginRoute(path string) Option {
	return func(c *Console) {
		c.login = path
	}
}

func New(s Session, g *guard.Guard, options ...Option) (*Console, error) {
	c := &Console{
		session:   s,
		guard:     g,
		resources: resources.New(s.APIClient()),
		landing:   "/",
		login:     "/auth/login",
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}

	var err error
	if c.loginTmpl, err = parseTemplate("login.html"); err != nil {
		return nil, fmt.Errorf("[console.New] login template: %w", err)
	}
	if c.registerTmpl, err = parseTemplate("register.html"); err != nil {
		return nil, fmt.Errorf("[console.New] register template: %w", err)
	}

	c.initRoutes()
	c.logRoutes()
	return c, nil
}

func (c *Console) initRoutes() {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(c.loggingMiddleware)
	r.Use(frameSecurityMiddleware)
	r.Use(chiMiddleware.Compress(5))
	r.Use(c.guard.Middleware)

	r.Get("/", c.dashboardHandler)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", c.loginPageHandler)
		r.Post("/login", c.loginHandler)
		r.Get("/register", c.registerPageHandler)
		r.Post("/register", c.registerHandler)
		r.Post("/logout", c.logoutHandler)
	})
	r.Get("/clients", listHandler(c, c.resources.Clients, "clients"))
	r.Get("/tasks", listHandler(c, c.resources.Tasks, "tasks"))
	r.Get("/payments", listHandler(c, c.resources.Payments, "payments"))

	c.router = r
}

func (c *Console) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

// Routes lists the registered "METHOD /path" patterns.
func (c *Console) Routes() []string {
	var routes []string
	_ = chi.Walk(c.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	return routes
}

func (c *Console) logRoutes() {
	if !c.dev {
		return
	}
	_ = chi.Walk(c.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		c.logger.Info().Msg(routeLine(method, route, 0))
		return nil
	})
}

func (c *Console) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		if c.dev {
			c.logger.Info().Msg(routeLine(r.Method, r.URL.Path, ww.Status()))
			return
		}
		c.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("console")
	})
}

func frameSecurityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled.
func (c *Console) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info().Str("addr", addr).Msg("console listening")
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
