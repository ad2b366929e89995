package authgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

// Client talks to the platform's auth routes. Auth calls are never
// retried automatically; failures are classified and surfaced once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func New(cfg config.PlatformConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	payload := domain.LoginRequest{Email: email, Password: password}

	var response domain.AuthResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/auth/login", "", payload, &response); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return &response, nil
}

func (c *Client) Signup(ctx context.Context, email, password string, metadata json.RawMessage) (*domain.AuthResponse, error) {
	payload := domain.SignupRequest{Email: email, Password: password, Metadata: metadata}

	var response domain.AuthResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/auth/signup", "", payload, &response); err != nil {
		return nil, fmt.Errorf("signup failed: %w", err)
	}

	return &response, nil
}

// Logout notifies the platform that the token is abandoned. Best-effort:
// callers clear local state first and ignore this error.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.makeRequest(ctx, http.MethodPost, "/api/auth/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout notification failed: %w", err)
	}
	return nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*domain.AuthResponse, error) {
	var response domain.AuthResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/auth/profile", accessToken, nil, &response); err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	return &response, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	payload := domain.RefreshRequest{RefreshToken: refreshToken}

	var response domain.AuthResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/auth/refresh", "", payload, &response); err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	return &response, nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint, accessToken string, body interface{}, response interface{}) error {
	fullURL := c.baseURL + endpoint

	var reqBody []byte
	var err error
	if body != nil {
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", fullURL).Msg("Auth gateway request failed")
		return &domain.TransientError{Message: "auth gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransientError{Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if response != nil {
			if err := json.Unmarshal(respBody, response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}

	message := errorMessage(respBody)

	if resp.StatusCode >= 500 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", fullURL).Msg("Auth gateway server error")
		return &domain.TransientError{StatusCode: resp.StatusCode, Message: message}
	}

	return &domain.AuthError{StatusCode: resp.StatusCode, Message: message}
}

func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return string(body)
}
