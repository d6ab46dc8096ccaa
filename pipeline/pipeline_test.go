package pipeline_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jrsteele09/go-admin-session/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func okTransport(seen *[]*http.Request) pipeline.RoundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		*seen = append(*seen, r)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Header:     http.Header{},
			Request:    r,
		}, nil
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) pipeline.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return pipeline.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	var seen []*http.Request
	rt := pipeline.Chain(okTransport(&seen), mark("outer"), mark("middle"), mark("inner"))

	req, err := http.NewRequest(http.MethodGet, "http://example.test/api/clients", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.Equal(t, []string{"outer", "middle", "inner"}, order)
	require.Len(t, seen, 1)
}

func TestRequestID(t *testing.T) {
	var seen []*http.Request
	rt := pipeline.Chain(okTransport(&seen), pipeline.RequestID())

	t.Run("generated", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NotEmpty(t, seen[len(seen)-1].Header.Get(pipeline.RequestIDHeader))
		// caller's request is not mutated
		require.Empty(t, req.Header.Get(pipeline.RequestIDHeader))
	})

	t.Run("kept", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
		req.Header.Set(pipeline.RequestIDHeader, "fixed")
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.Equal(t, "fixed", seen[len(seen)-1].Header.Get(pipeline.RequestIDHeader))
	})
}

func TestUserAgent(t *testing.T) {
	var seen []*http.Request
	rt := pipeline.Chain(okTransport(&seen), pipeline.UserAgent("admin-cli/1"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "admin-cli/1", seen[0].Header.Get("User-Agent"))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	t.Run("success", func(t *testing.T) {
		var seen []*http.Request
		rt := pipeline.Chain(okTransport(&seen), pipeline.Logging(&logger))
		req, _ := http.NewRequest(http.MethodGet, "http://example.test/api/user/profile", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.Contains(t, buf.String(), `"status":200`)
		require.NotContains(t, buf.String(), "secret-token")
	})

	t.Run("transport error passes through", func(t *testing.T) {
		boom := errors.New("connection refused")
		rt := pipeline.Chain(pipeline.RoundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, boom
		}), pipeline.Logging(&logger))
		req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
		_, err := rt.RoundTrip(req)
		require.ErrorIs(t, err, boom)
		require.Contains(t, buf.String(), "request failed")
	})
}
