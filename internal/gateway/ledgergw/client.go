package ledgergw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

// Client talks to the platform's balance and deposit routes. Credit is
// the one retryable call: an ambiguous network fault is retried with the
// identical transaction hash so the ledger can deduplicate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func New(cfg config.PlatformConfig, rec config.ReconcilerConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: rec.CreditMaxRetries,
		retryDelay: rec.CreditRetryBackoffBase,
		logger:     logger,
	}
}

func (c *Client) Balance(ctx context.Context, accessToken string) (*domain.BalanceResponse, error) {
	var response domain.BalanceResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/balance", accessToken, nil, &response); err != nil {
		return nil, fmt.Errorf("balance query failed: %w", err)
	}

	return &response, nil
}

// Credit asks the ledger to credit a confirmed on-chain deposit. The
// call is idempotent per transaction hash: transient faults are retried
// with the same request, and an already-credited rejection is returned
// as domain.ErrAlreadyCredited for the caller to treat as success.
func (c *Client) Credit(ctx context.Context, accessToken string, req domain.CreditRequest) (*domain.CreditResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		var response domain.CreditResponse
		err := c.doRequest(ctx, http.MethodPost, "/api/deposit/credit", accessToken, req, &response)
		if err == nil {
			return &response, nil
		}

		if isAlreadyCredited(err) {
			c.logger.Info().
				Str("tx_hash", req.TransactionHash).
				Msg("Ledger reports transaction already credited")
			return nil, domain.ErrAlreadyCredited
		}

		if !domain.IsTransient(err) {
			return nil, fmt.Errorf("credit rejected for tx %s: %w", req.TransactionHash, err)
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Str("tx_hash", req.TransactionHash).
			Int("attempt", attempt+1).
			Msg("Credit request failed, retrying with same transaction hash")
	}

	return nil, fmt.Errorf("credit failed after %d retries for tx %s: %w", c.maxRetries, req.TransactionHash, lastErr)
}

// ManualDeposit credits a balance without an on-chain transfer. Dev-only
// path kept behind the platform's own authorization.
func (c *Client) ManualDeposit(ctx context.Context, accessToken, amountETH string) (*domain.CreditResponse, error) {
	payload := map[string]string{"amount_eth": amountETH}

	var response domain.CreditResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/deposit/manual", accessToken, payload, &response); err != nil {
		return nil, fmt.Errorf("manual deposit failed: %w", err)
	}

	return &response, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint, accessToken string, body interface{}, response interface{}) error {
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
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransientError{Message: "ledger gateway unreachable", Err: err}
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

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.AuthError{StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode == http.StatusConflict:
		return &creditConflictError{message: message}
	case resp.StatusCode >= 500:
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", fullURL).Msg("Ledger gateway server error")
		return &domain.TransientError{StatusCode: resp.StatusCode, Message: message}
	default:
		return fmt.Errorf("ledger rejected request (status %d): %s", resp.StatusCode, message)
	}
}

// creditConflictError marks an HTTP 409 from the credit route.
type creditConflictError struct {
	message string
}

func (e *creditConflictError) Error() string {
	return "credit conflict: " + e.message
}

func isAlreadyCredited(err error) bool {
	var conflict *creditConflictError
	if errors.As(err, &conflict) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already credited")
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
