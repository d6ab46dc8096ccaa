package console

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/resources"
)

func (c *Console) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := c.resources.Summary(r.Context())
	if err != nil {
		c.apiFailure(w, r, err)
		return
	}
	snap := c.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    snap.User,
		"plan":    snap.Plan(),
		"summary": summary,
	})
}

func (c *Console) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c.render(w, c.loginTmpl, http.StatusOK, formPage{
		Title:    "Sign in",
		Action:   c.login,
		Redirect: q.Get("redirect"),
		Expired:  q.Get("expired") == "true",
		Email:    q.Get("email"),
	})
}

func (c *Console) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	redirect := r.PostForm.Get("redirect")

	if err := c.session.Login(r.Context(), email, r.PostForm.Get("password")); err != nil {
		c.logger.Info().Err(err).Str("email", email).Msg("console login failed")
		c.render(w, c.loginTmpl, formStatus(err), formPage{
			Title:    "Sign in",
			Action:   c.login,
			Redirect: redirect,
			Error:    c.session.Snapshot().Err,
			Email:    email,
		})
		return
	}
	http.Redirect(w, r, safeRedirect(redirect, c.landing), http.StatusSeeOther)
}

func (c *Console) registerPageHandler(w http.ResponseWriter, r *http.Request) {
	c.render(w, c.registerTmpl, http.StatusOK, formPage{Title: "Create account", Action: "/auth/register"})
}

func (c *Console) registerHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("name"))
	email := strings.TrimSpace(r.PostForm.Get("email"))

	if err := c.session.Register(r.Context(), name, email, r.PostForm.Get("password")); err != nil {
		c.render(w, c.registerTmpl, formStatus(err), formPage{
			Title:  "Create account",
			Action: "/auth/register",
			Error:  c.session.Snapshot().Err,
			Name:   name,
			Email:  email,
		})
		return
	}
	http.Redirect(w, r, c.landing, http.StatusSeeOther)
}

func (c *Console) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := c.session.Logout(r.Context()); err != nil {
		c.logger.Warn().Err(err).Msg("console logout")
	}
	http.Redirect(w, r, c.login, http.StatusSeeOther)
}

func listHandler[T any](c *Console, coll *resources.Collection[T], key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, total, err := coll.List(r.Context(), r.URL.Query())
		if err != nil {
			c.apiFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{key: items, "total": total})
	}
}

// apiFailure reports a failed API call. When the call cost the session (a
// failed renewal logs out) the user is sent to sign in again.
func (c *Console) apiFailure(w http.ResponseWriter, r *http.Request, err error) {
	if !c.session.Snapshot().IsAuthenticated {
		q := url.Values{}
		q.Set("redirect", r.URL.RequestURI())
		q.Set("expired", "true")
		http.Redirect(w, r, c.login+"?"+q.Encode(), http.StatusSeeOther)
		return
	}

	var apiErr *apperrors.APIError
	if apperrors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode, map[string]string{"error": apiErr.Message, "details": apiErr.Details})
		return
	}
	c.logger.Error().Err(err).Str("path", r.URL.Path).Msg("console api call")
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "api unavailable"})
}

func (c *Console) render(w http.ResponseWriter, tmpl *template.Template, status int, data formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		c.logger.Error().Err(err).Str("template", tmpl.Name()).Msg("render")
	}
}

func formStatus(err error) int {
	var apiErr *apperrors.APIError
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusBadRequest
	case apperrors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// safeRedirect only follows local absolute paths.
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
