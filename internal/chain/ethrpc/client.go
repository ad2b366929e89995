package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/config"
)

// Client submits value transfers through an Ethereum JSON-RPC node with
// an unlocked sending account and polls for transaction receipts.
type Client struct {
	rpcURL          string
	fromAddress     string
	pollingInterval time.Duration
	receiptTimeout  time.Duration
	httpClient      *http.Client
	logger          zerolog.Logger
}

func New(cfg config.ChainConfig, logger zerolog.Logger) *Client {
	return &Client{
		rpcURL:          cfg.RPCURL,
		fromAddress:     cfg.FromAddress,
		pollingInterval: cfg.PollingInterval,
		receiptTimeout:  cfg.ReceiptTimeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

type txReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
}

// SubmitTransfer sends amountWei to toAddress from the configured
// account and returns the transaction hash.
func (c *Client) SubmitTransfer(ctx context.Context, toAddress string, amountWei *big.Int) (string, error) {
	params := map[string]string{
		"from":  c.fromAddress,
		"to":    toAddress,
		"value": "0x" + amountWei.Text(16),
	}

	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", []interface{}{params}, &txHash); err != nil {
		return "", fmt.Errorf("failed to submit transfer: %w", err)
	}

	c.logger.Info().
		Str("tx_hash", txHash).
		Str("to", toAddress).
		Str("value_wei", amountWei.String()).
		Msg("Transfer submitted")
	return txHash, nil
}

// AwaitReceipt polls eth_getTransactionReceipt until the transaction is
// mined or the receipt timeout elapses. A mined receipt with status 0x0
// reports a failed transaction, not an error.
func (c *Client) AwaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollingInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.getReceipt(ctx, txHash)
		if err != nil {
			if domain.IsTransient(err) {
				c.logger.Warn().Err(err).Str("tx_hash", txHash).Msg("Receipt poll failed, will retry")
			} else {
				return nil, err
			}
		} else if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("receipt wait for %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) getReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash}, &raw); err != nil {
		return nil, err
	}

	// Pending transactions have a null receipt.
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var receipt txReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse receipt: %w", err)
	}

	status := domain.ReceiptStatusFailed
	if receipt.Status == "0x1" {
		status = domain.ReceiptStatusConfirmed
	}

	blockNumber, _ := strconv.ParseUint(strings.TrimPrefix(receipt.BlockNumber, "0x"), 16, 64)

	return &domain.Receipt{
		TransactionHash: receipt.TransactionHash,
		Status:          status,
		BlockNumber:     blockNumber,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransientError{Message: "chain RPC unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &domain.TransientError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return fmt.Errorf("RPC request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransientError{Message: "failed to read RPC response", Err: err}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse RPC response: %w", err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to parse RPC result: %w", err)
		}
	}

	return nil
}
