package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/notepid/autocode/internal/server"
	"github.com/notepid/autocode/internal/settings"
)

// Client talks to a running server's admin API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Statuses lists every user's auto-code status.
func (c *Client) Statuses(ctx context.Context) ([]server.UserStatus, error) {
	var out []server.UserStatus
	if err := c.do(ctx, http.MethodGet, "/admin/settings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetLockout clears one user's lockout. It returns 0 when the user had
// no settings to reset.
func (c *Client) ResetLockout(ctx context.Context, id settings.UserID) (int, error) {
	var res server.ResetResult
	if err := c.do(ctx, http.MethodPost, "/admin/lockouts/"+url.PathEscape(string(id))+"/reset", &res); err != nil {
		return 0, err
	}
	return res.Reset, nil
}

// ResetAllLockouts clears every lockout and returns how many records were
// touched.
func (c *Client) ResetAllLockouts(ctx context.Context) (int, error) {
	var res server.ResetResult
	if err := c.do(ctx, http.MethodPost, "/admin/lockouts/reset", &res); err != nil {
		return 0, err
	}
	return res.Reset, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
