package interfaces

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
)

type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	Signup(ctx context.Context, email, password string, metadata json.RawMessage) (*domain.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, accessToken string) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error)
}

type LedgerGateway interface {
	Balance(ctx context.Context, accessToken string) (*domain.BalanceResponse, error)
	Credit(ctx context.Context, accessToken string, req domain.CreditRequest) (*domain.CreditResponse, error)
	ManualDeposit(ctx context.Context, accessToken, amountETH string) (*domain.CreditResponse, error)
}

type EndpointGateway interface {
	ListMine(ctx context.Context, accessToken string) (*domain.EndpointsResponse, error)
	Marketplace(ctx context.Context, accessToken string) (*domain.MarketplaceResponse, error)
	Create(ctx context.Context, accessToken string, endpoint *domain.Endpoint) (*domain.Endpoint, error)
	Update(ctx context.Context, accessToken, endpointID string, updates *domain.Endpoint) (*domain.Endpoint, error)
	Delete(ctx context.Context, accessToken, endpointName string) error
}

// ChainSubmitter submits a value transfer and reports its terminal
// status. AwaitReceipt blocks until the chain reports confirmed or
// failed, or ctx is cancelled.
type ChainSubmitter interface {
	SubmitTransfer(ctx context.Context, toAddress string, amountWei *big.Int) (string, error)
	AwaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error)
}

// TokenStore persists the session across restarts. Implementations are
// no-ops when no durable medium is available.
type TokenStore interface {
	Load() (*domain.PersistedSession, error)
	Save(session *domain.Session) error
	Clear() error
}
