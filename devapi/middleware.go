package devapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-admin-session/internal/utils"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) publicMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.CorsMiddleware,
		s.CountMiddleware,
	}
}

func (s *Server) protectedMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.publicMiddleware(), s.RequireBearer)
}

// CountMiddleware records a hit per route pattern.
func (s *Server) CountMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hit(r.Method + " " + strings.TrimPrefix(r.URL.Path, s.basePath))
		next(w, r)
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("auth", utils.Mask(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))).
			Dur("elapsed", time.Since(start)).
			Msg("devapi")
	}
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" || s.cors == nil {
			next(w, r)
			return
		}

		if s.cors.GetAllowedOrigins().IsAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", s.cors.GetAllowedMethods())
			w.Header().Set("Access-Control-Allow-Headers", s.cors.GetAllowedHeaders())
		}
		next(w, r)
	}
}

// RequireBearer rejects requests without a valid, unrevoked access token.
func (s *Server) RequireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSONError(w, "token not provided", http.StatusUnauthorized)
			return
		}
		userID, err := s.verifyAccessToken(raw)
		if err != nil {
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyUserID, userID)))
	}
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKeyUserID).(int64)
	return id
}
