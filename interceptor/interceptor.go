package interceptor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-admin-session/pipeline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Session is the part of the session store the interceptor drives.
type Session interface {
	AccessToken() string
	// Renew refreshes the credential unless it has already moved past stale.
	Renew(ctx context.Context, stale string) error
	Logout(ctx context.Context) error
}

// Interceptor attaches the session credential to API requests and recovers
// from a 401 with one shared refresh and a single replay.
type Interceptor struct {
	session Session
	base    *url.URL
	logger  zerolog.Logger
}

type Option func(*Interceptor)

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

func New(session Session, apiBase string, options ...Option) (*Interceptor, error) {
	base, err := url.Parse(strings.TrimSuffix(apiBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("[interceptor.New] invalid api base %q: %w", apiBase, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("[interceptor.New] api base %q must be absolute", apiBase)
	}

	i := &Interceptor{
		session: session,
		base:    base,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// InScope reports whether u is under the API base.
func (i *Interceptor) InScope(u *url.URL) bool {
	if u == nil || !strings.EqualFold(u.Scheme, i.base.Scheme) || !strings.EqualFold(u.Host, i.base.Host) {
		return false
	}
	if i.base.Path == "" {
		return true
	}
	return u.Path == i.base.Path || strings.HasPrefix(u.Path, i.base.Path+"/")
}

func (i *Interceptor) Middleware() pipeline.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return pipeline.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if !i.InScope(r.URL) {
				return next.RoundTrip(r)
			}
			return i.roundTrip(next, r)
		})
	}
}

func (i *Interceptor) roundTrip(next http.RoundTripper, r *http.Request) (*http.Response, error) {
	body, err := bufferBody(r)
	if err != nil {
		return nil, err
	}

	sent := i.session.AccessToken()
	resp, err := next.RoundTrip(i.prepare(r, body, sent))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Renew is shared with every other request that saw the same token fail,
	// and is a no-op when the token was rotated while this one was in flight.
	if err := i.session.Renew(r.Context(), sent); err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			discard(resp)
			return nil, ctxErr
		}
		i.logger.Info().Err(err).Str("url", r.URL.Path).Msg("refresh after 401 failed, logging out")
		if err := i.session.Logout(context.WithoutCancel(r.Context())); err != nil {
			i.logger.Warn().Err(err).Msg("logout after failed refresh")
		}
		return resp, nil
	}

	discard(resp)
	return next.RoundTrip(i.prepare(r, body, i.session.AccessToken()))
}

// prepare clones r with the JSON content type and bearer token applied.
func (i *Interceptor) prepare(r *http.Request, body []byte, accessToken string) *http.Request {
	req := r.Clone(r.Context())
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Del("Authorization")
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	return req
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return body, nil
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
