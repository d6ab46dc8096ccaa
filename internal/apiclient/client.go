package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
)

// Client sends JSON requests to endpoints under BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimSuffix(baseURL, "/"), HTTPClient: httpClient}
}

// Do sends body as JSON and decodes a 2xx reply into result. Non-2xx replies
// become *errors.APIError; transport failures wrap errors.ErrNetwork.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, result any) error {
	req, err := c.NewRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return c.Send(req, result)
}

// NewRequest builds a JSON request for endpoint.
func (c *Client) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	fullURL, err := c.URL(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Send dispatches req and handles the response.
func (c *Client) Send(req *http.Request, result any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, apperrors.ErrNetwork, err)
	}
	return HandleResponse(resp, result)
}

// URL joins endpoint (which may carry a query string) onto the base URL.
func (c *Client) URL(endpoint string) (string, error) {
	path, query, _ := strings.Cut(endpoint, "?")
	fullURL, err := url.JoinPath(c.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("failed to join URL path: %w", err)
	}
	if query != "" {
		fullURL += "?" + query
	}
	return fullURL, nil
}

// HandleResponse processes the HTTP response and handles errors.
// It always closes the response body.
func HandleResponse(resp *http.Response, result any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return ParseAPIError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// ParseAPIError keeps the server message verbatim, preferring "error" over "message".
func ParseAPIError(status int, body []byte) *apperrors.APIError {
	apiError := &apperrors.APIError{StatusCode: status}

	var errorResp map[string]any
	if json.Unmarshal(body, &errorResp) == nil {
		if msg, ok := errorResp["error"].(string); ok {
			apiError.Message = msg
		} else if msg, ok := errorResp["message"].(string); ok {
			apiError.Message = msg
		}
		if details, ok := errorResp["details"].(string); ok {
			apiError.Details = details
		}
	}

	if apiError.Message == "" {
		apiError.Message = strings.TrimSpace(string(body))
	}
	if apiError.Message == "" {
		apiError.Message = http.StatusText(status)
	}
	return apiError
}
