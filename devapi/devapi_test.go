package devapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-admin-session/devapi"
	"github.com/jrsteele09/go-admin-session/users"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	api *devapi.Server
	srv *httptest.Server
}

func newHarness(t *testing.T, options ...devapi.Option) *harness {
	t.Helper()
	api, err := devapi.New(options...)
	require.NoError(t, err)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &harness{t: t, api: api, srv: srv}
}

func (h *harness) do(method, path, bearer string, body any) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+"/api"+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) login(email, password string) (string, string) {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(h.t, http.StatusOK, status, body)
	tokens := body["tokens"].(map[string]any)
	return tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	_, err := h.api.AddAccount("Ana Admin", "a@b.com", "Secret123", users.PlanPro)
	require.NoError(t, err)

	t.Run("login failures", func(t *testing.T) {
		status, body := h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "x@b.com", "password": "Secret123"})
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "user not found", body["error"])

		status, _ = h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, status)
	})

	access, refresh := h.login("a@b.com", "Secret123")

	t.Run("profile", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/user/profile", access, nil)
		require.Equal(t, http.StatusOK, status)
		user := body["user"].(map[string]any)
		require.Equal(t, "a@b.com", user["email"])
		require.Equal(t, "pro", user["plan"])

		status, _ = h.do(http.MethodGet, "/user/profile", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("refresh rotates", func(t *testing.T) {
		status, body := h.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
		require.Equal(t, http.StatusOK, status)
		tokens := body["tokens"].(map[string]any)
		require.NotEqual(t, access, tokens["access_token"])
		require.NotEqual(t, refresh, tokens["refresh_token"])

		// the old refresh token is spent
		status, _ = h.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, 2, h.api.Hits("POST /auth/refresh"))

		access = tokens["access_token"].(string)
	})

	t.Run("revoke", func(t *testing.T) {
		require.Positive(t, h.api.RevokeAccessTokens())
		status, _ := h.do(http.MethodGet, "/user/profile", access, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("logout", func(t *testing.T) {
		access, refresh := h.login("a@b.com", "Secret123")
		status, _ := h.do(http.MethodPost, "/auth/logout", access, nil)
		require.Equal(t, http.StatusNoContent, status)

		status, _ = h.do(http.MethodGet, "/user/profile", access, nil)
		require.Equal(t, http.StatusUnauthorized, status)
		status, _ = h.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodPost, "/auth/register", "", map[string]string{"name": "Bo", "email": "bo@b.com", "password": "Secret123"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "name must be at least 3 characters long", body["details"])

	register := map[string]string{"name": "Bob Builder", "email": "bob@b.com", "password": "Secret123"}
	status, body = h.do(http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusCreated, status)
	require.Nil(t, body["tokens"])

	status, body = h.do(http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "email already registered", body["error"])

	h.login("bob@b.com", "Secret123")
}

func TestAccessTokenExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHarness(t, devapi.WithNowFunc(func() time.Time { return now }), devapi.WithTokenExpiry(time.Minute, time.Hour))
	_, err := h.api.AddAccount("Ana Admin", "a@b.com", "Secret123", "")
	require.NoError(t, err)

	access, _ := h.login("a@b.com", "Secret123")
	status, _ := h.do(http.MethodGet, "/user/profile", access, nil)
	require.Equal(t, http.StatusOK, status)

	now = now.Add(2 * time.Minute)
	status, _ = h.do(http.MethodGet, "/user/profile", access, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshKnobs(t *testing.T) {
	h := newHarness(t)
	_, err := h.api.AddAccount("Ana Admin", "a@b.com", "Secret123", "")
	require.NoError(t, err)
	_, refresh := h.login("a@b.com", "Secret123")

	h.api.FailRefresh(http.StatusBadRequest)
	status, body := h.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "refresh rejected", body["error"])

	h.api.FailRefresh(0)
	h.api.DelayRefresh(50 * time.Millisecond)
	start := time.Now()
	status, _ = h.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLegacySingleToken(t *testing.T) {
	h := newHarness(t, devapi.WithLegacySingleToken(true))
	_, err := h.api.AddAccount("Ana Admin", "a@b.com", "Secret123", "")
	require.NoError(t, err)

	status, body := h.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["token"])
	require.Nil(t, body["tokens"])
}

func TestResources(t *testing.T) {
	h := newHarness(t)
	_, err := h.api.AddAccount("Ana Admin", "a@b.com", "Secret123", users.PlanFree)
	require.NoError(t, err)
	_, err = h.api.AddAccount("Other User", "o@b.com", "Secret123", users.PlanFree)
	require.NoError(t, err)
	access, _ := h.login("a@b.com", "Secret123")
	other, _ := h.login("o@b.com", "Secret123")

	status, client := h.do(http.MethodPost, "/clients", access, map[string]string{"name": "Acme", "email": "ops@acme.test"})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "active", client["status"])
	id := int64(client["id"].(float64))

	t.Run("validation", func(t *testing.T) {
		status, body := h.do(http.MethodPost, "/clients", access, map[string]string{"name": "A"})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid data", body["error"])
	})

	t.Run("owner isolation", func(t *testing.T) {
		status, _ := h.do(http.MethodGet, fmt.Sprintf("/clients/%d", id), other, nil)
		require.Equal(t, http.StatusNotFound, status)
		status, body := h.do(http.MethodGet, "/clients", other, nil)
		require.Equal(t, http.StatusOK, status)
		require.EqualValues(t, 0, body["total"])
	})

	t.Run("payments by client", func(t *testing.T) {
		status, payment := h.do(http.MethodPost, "/payments", access, map[string]any{"client_id": id, "amount": 150.5})
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, "pending", payment["status"])
		require.Equal(t, "USD", payment["currency"])

		status, body := h.do(http.MethodGet, fmt.Sprintf("/payments/client/%d", id), access, nil)
		require.Equal(t, http.StatusOK, status)
		require.EqualValues(t, 1, body["total"])
	})

	t.Run("update and delete", func(t *testing.T) {
		status, body := h.do(http.MethodPut, fmt.Sprintf("/clients/%d", id), access, map[string]string{"name": "Acme Ltd", "email": "ops@acme.test", "status": "inactive"})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "Acme Ltd", body["name"])

		status, _ = h.do(http.MethodDelete, fmt.Sprintf("/clients/%d", id), access, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = h.do(http.MethodDelete, fmt.Sprintf("/clients/%d", id), access, nil)
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("free plan client limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			status, _ := h.do(http.MethodPost, "/clients", other, map[string]string{"name": fmt.Sprintf("Client %d", i), "email": "c@x.test"})
			require.Equal(t, http.StatusCreated, status)
		}
		status, body := h.do(http.MethodPost, "/clients", other, map[string]string{"name": "One Too Many", "email": "c@x.test"})
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "client limit exceeded for plan", body["error"])
	})
}

func TestCorsPreflight(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/clients", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, h.api.Routes(), "POST /api/auth/refresh")
}
