package endpointgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

// Client wraps the platform's endpoint CRUD and marketplace routes.
// Thin request/response passthrough, no local invariants.
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

func (c *Client) ListMine(ctx context.Context, accessToken string) (*domain.EndpointsResponse, error) {
	var response domain.EndpointsResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/endpoints", accessToken, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	return &response, nil
}

func (c *Client) Marketplace(ctx context.Context, accessToken string) (*domain.MarketplaceResponse, error) {
	var response domain.MarketplaceResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/endpoints/marketplace", accessToken, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch marketplace: %w", err)
	}
	return &response, nil
}

func (c *Client) Create(ctx context.Context, accessToken string, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	var response struct {
		Success  bool            `json:"success"`
		Message  string          `json:"message"`
		Endpoint domain.Endpoint `json:"endpoint"`
	}
	if err := c.makeRequest(ctx, http.MethodPost, "/api/endpoints", accessToken, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to create endpoint: %w", err)
	}
	return &response.Endpoint, nil
}

func (c *Client) Update(ctx context.Context, accessToken, endpointID string, updates *domain.Endpoint) (*domain.Endpoint, error) {
	var response struct {
		Success  bool            `json:"success"`
		Message  string          `json:"message"`
		Endpoint domain.Endpoint `json:"endpoint"`
	}
	path := "/api/endpoints/" + url.PathEscape(endpointID)
	if err := c.makeRequest(ctx, http.MethodPut, path, accessToken, updates, &response); err != nil {
		return nil, fmt.Errorf("failed to update endpoint %s: %w", endpointID, err)
	}
	return &response.Endpoint, nil
}

func (c *Client) Delete(ctx context.Context, accessToken, endpointName string) error {
	path := "/api/endpoints/" + url.PathEscape(endpointName)
	if err := c.makeRequest(ctx, http.MethodDelete, path, accessToken, nil, nil); err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", endpointName, err)
	}
	return nil
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
		c.logger.Warn().Err(err).Str("url", fullURL).Msg("Endpoint gateway request failed")
		return &domain.TransientError{Message: "endpoint gateway unreachable", Err: err}
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

	var envelope struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(respBody, &envelope)
	message := envelope.Message
	if message == "" {
		message = string(respBody)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.AuthError{StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode >= 500:
		return &domain.TransientError{StatusCode: resp.StatusCode, Message: message}
	default:
		return fmt.Errorf("request rejected (status %d): %s", resp.StatusCode, message)
	}
}
