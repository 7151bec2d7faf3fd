// Package sessionclient calls the session endpoints of the session guard API.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("session api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("session api: %d", e.StatusCode)
}

// SignOutResult mirrors the sign-out response body.
type SignOutResult struct {
	Success       bool   `json:"success"`
	ProviderError string `json:"providerError,omitempty"`
	RegistryError string `json:"registryError,omitempty"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the API at baseURL authenticating with the bearer token.
// A nil httpClient uses http.DefaultClient.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// Register claims the active-session slot for sessionID.
func (c *Client) Register(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return err
	}
	var out struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodPost, "/session/register", body, &out)
}

// Validate reports whether sessionID still holds the slot.
func (c *Client) Validate(ctx context.Context, sessionID string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	path := "/session/validate?sid=" + url.QueryEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// SignOutAll revokes every credential of the caller. On partial failure the
// decoded result is returned together with a *StatusError.
func (c *Client) SignOutAll(ctx context.Context) (SignOutResult, error) {
	var out SignOutResult
	err := c.do(ctx, http.MethodPost, "/session/sign-out-all", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			statusErr.Code = envelope.Error.Code
			statusErr.Message = envelope.Error.Message
		}
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return statusErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
