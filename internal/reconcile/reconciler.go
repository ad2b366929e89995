package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain/interfaces"
	"github.com/ragingrahul/mcp-marketplace-frontend/pkg/ethunits"
)

// TokenSource supplies a valid access token for ledger calls.
type TokenSource interface {
	EnsureValidSession(ctx context.Context) (string, error)
}

// Publisher receives attempt and balance updates for the UI stream.
type Publisher interface {
	PublishDeposit(attempt domain.DepositAttempt)
	PublishBalance(balance domain.Balance)
}

// Reconciler drives each deposit attempt from submission through ledger
// crediting. A confirmed transaction hash is credited at most once per
// attempt; ambiguous credit results are retried by the ledger client
// with the identical hash so the ledger can deduplicate. Failed attempts
// are terminal; resubmitting produces a new attempt and a new hash.
type Reconciler struct {
	ledger interfaces.LedgerGateway
	chain  interfaces.ChainSubmitter
	tokens TokenSource
	pub    Publisher
	logger zerolog.Logger

	mu              sync.RWMutex
	attempts        map[string]*domain.DepositAttempt
	byHash          map[string]string
	balance         *domain.Balance
	platformAddress string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ledger interfaces.LedgerGateway, chain interfaces.ChainSubmitter, tokens TokenSource, pub Publisher, logger zerolog.Logger) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		ledger:   ledger,
		chain:    chain,
		tokens:   tokens,
		pub:      pub,
		logger:   logger,
		attempts: make(map[string]*domain.DepositAttempt),
		byHash:   make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close stops confirmation watchers. Submitted transactions keep
// existing on chain and can be reconciled later through Resume.
func (r *Reconciler) Close() {
	r.cancel()
	r.wg.Wait()
}

// Submit validates and submits a new transfer. Validation failures
// reject before any network call. The returned attempt is already
// Confirming; crediting completes asynchronously.
func (r *Reconciler) Submit(ctx context.Context, amountETH, toAddress string) (*domain.DepositAttempt, error) {
	if !ethunits.ValidDecimalAmount(amountETH) {
		return nil, domain.NewValidationError("amount_eth", "must be a positive decimal amount")
	}
	if !ethunits.IsHexAddress(toAddress) {
		return nil, domain.NewValidationError("to_address", "must be a 0x-prefixed 20-byte hex address")
	}

	amountWei, err := ethunits.ParseEther(amountETH)
	if err != nil {
		return nil, domain.NewValidationError("amount_eth", err.Error())
	}

	attempt := &domain.DepositAttempt{
		ID:        uuid.New().String(),
		AmountETH: amountETH,
		ToAddress: toAddress,
		Phase:     domain.DepositPhaseDrafted,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	r.track(attempt)

	txHash, err := r.chain.SubmitTransfer(ctx, toAddress, amountWei)
	if err != nil {
		r.transition(attempt.ID, domain.DepositPhaseFailed, err.Error())
		return r.Get(attempt.ID), fmt.Errorf("transfer submission failed: %w", err)
	}

	r.mu.Lock()
	attempt.TransactionHash = txHash
	attempt.Phase = domain.DepositPhaseSubmitted
	attempt.UpdatedAt = time.Now().UTC()
	r.byHash[txHash] = attempt.ID
	snapshot := *attempt
	r.mu.Unlock()
	r.publish(snapshot)

	r.transition(attempt.ID, domain.DepositPhaseConfirming, "")
	r.watch(attempt.ID, txHash, amountETH)

	return r.Get(attempt.ID), nil
}

// Resume re-attaches to a transaction that was submitted earlier (for
// example before a restart) and walks it through confirmation and
// crediting. The ledger's per-hash deduplication makes this safe even
// when the original attempt already credited.
func (r *Reconciler) Resume(txHash, amountETH string) (*domain.DepositAttempt, error) {
	if !ethunits.IsHexHash(txHash) {
		return nil, domain.NewValidationError("tx_hash", "must be a 0x-prefixed 32-byte hex hash")
	}
	if !ethunits.ValidDecimalAmount(amountETH) {
		return nil, domain.NewValidationError("amount_eth", "must be a positive decimal amount")
	}

	r.mu.RLock()
	existingID, tracked := r.byHash[txHash]
	r.mu.RUnlock()
	if tracked {
		return r.Get(existingID), nil
	}

	attempt := &domain.DepositAttempt{
		ID:              uuid.New().String(),
		AmountETH:       amountETH,
		TransactionHash: txHash,
		Phase:           domain.DepositPhaseConfirming,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	r.mu.Lock()
	r.attempts[attempt.ID] = attempt
	r.byHash[txHash] = attempt.ID
	snapshot := *attempt
	r.mu.Unlock()
	r.publish(snapshot)

	r.watch(attempt.ID, txHash, amountETH)
	return r.Get(attempt.ID), nil
}

// watch waits for the chain's terminal status and then credits exactly
// once. One watcher per attempt; it is the only writer of the attempt's
// terminal phase.
func (r *Reconciler) watch(attemptID, txHash, amountETH string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		receipt, err := r.chain.AwaitReceipt(r.ctx, txHash)
		if err != nil {
			r.logger.Error().Err(err).Str("tx_hash", txHash).Msg("Confirmation wait failed")
			r.transition(attemptID, domain.DepositPhaseFailed, "confirmation wait failed: "+err.Error())
			return
		}

		if receipt.Status != domain.ReceiptStatusConfirmed {
			r.logger.Warn().Str("tx_hash", txHash).Msg("Transaction failed on chain")
			r.transition(attemptID, domain.DepositPhaseFailed, "transaction reverted on chain")
			return
		}

		r.credit(attemptID, txHash, amountETH)
	}()
}

func (r *Reconciler) credit(attemptID, txHash, amountETH string) {
	token, err := r.tokens.EnsureValidSession(r.ctx)
	if err != nil {
		r.logger.Error().Err(err).Str("tx_hash", txHash).Msg("No valid session to credit deposit")
		r.transition(attemptID, domain.DepositPhaseFailed, "not authenticated; resume the deposit after login")
		return
	}

	response, err := r.ledger.Credit(r.ctx, token, domain.CreditRequest{
		AmountETH:       amountETH,
		TransactionHash: txHash,
	})

	switch {
	case err == nil:
		if response.Balance != nil {
			r.setBalance(*response.Balance)
		}
		r.transition(attemptID, domain.DepositPhaseCredited, "")
		r.logger.Info().Str("tx_hash", txHash).Str("amount_eth", amountETH).Msg("Deposit credited")

	case errors.Is(err, domain.ErrAlreadyCredited):
		// The ledger already holds this hash: a duplicate invocation or
		// an earlier ambiguous call that actually landed. Terminal
		// success either way.
		r.transition(attemptID, domain.DepositPhaseCredited, "")
		r.refreshBalanceBestEffort()

	default:
		r.logger.Error().Err(err).Str("tx_hash", txHash).Msg("Ledger rejected credit")
		r.transition(attemptID, domain.DepositPhaseFailed, "credit failed: "+err.Error())
	}
}

// Get returns a snapshot of an attempt, or nil.
func (r *Reconciler) Get(attemptID string) *domain.DepositAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return nil
	}
	snapshot := *attempt
	return &snapshot
}

// List returns snapshots of all tracked attempts.
func (r *Reconciler) List() []domain.DepositAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DepositAttempt, 0, len(r.attempts))
	for _, attempt := range r.attempts {
		out = append(out, *attempt)
	}
	return out
}

// ManualDeposit credits the ledger directly without an on-chain
// transfer. Dev-only path; the platform enforces its own authorization.
// The returned balance replaces the cached copy wholesale.
func (r *Reconciler) ManualDeposit(ctx context.Context, amountETH string) (*domain.CreditResponse, error) {
	if !ethunits.ValidDecimalAmount(amountETH) {
		return nil, domain.NewValidationError("amount_eth", "must be a positive decimal amount")
	}

	token, err := r.tokens.EnsureValidSession(ctx)
	if err != nil {
		return nil, err
	}

	response, err := r.ledger.ManualDeposit(ctx, token, amountETH)
	if err != nil {
		return nil, err
	}

	if response.Balance != nil {
		r.setBalance(*response.Balance)
	}

	r.logger.Info().Str("amount_eth", amountETH).Msg("Manual deposit credited")
	return response, nil
}

// RefreshBalance fetches the ledger balance and replaces the cached copy
// wholesale. Balance arithmetic never happens locally.
func (r *Reconciler) RefreshBalance(ctx context.Context) (*domain.BalanceResponse, error) {
	token, err := r.tokens.EnsureValidSession(ctx)
	if err != nil {
		return nil, err
	}

	response, err := r.ledger.Balance(ctx, token)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	balance := response.Balance()
	r.balance = &balance
	if response.PlatformWalletAddress != "" {
		r.platformAddress = response.PlatformWalletAddress
	}
	r.mu.Unlock()

	return response, nil
}

// PlatformAddress returns the deposit destination from the last balance
// query, fetching one if none is cached yet.
func (r *Reconciler) PlatformAddress(ctx context.Context) (string, error) {
	r.mu.RLock()
	addr := r.platformAddress
	r.mu.RUnlock()
	if addr != "" {
		return addr, nil
	}

	if _, err := r.RefreshBalance(ctx); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.platformAddress == "" {
		return "", fmt.Errorf("platform wallet address not available")
	}
	return r.platformAddress, nil
}

// CachedBalance returns the last balance received from the ledger, or nil.
func (r *Reconciler) CachedBalance() *domain.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.balance == nil {
		return nil
	}
	snapshot := *r.balance
	return &snapshot
}

func (r *Reconciler) track(attempt *domain.DepositAttempt) {
	r.mu.Lock()
	r.attempts[attempt.ID] = attempt
	snapshot := *attempt
	r.mu.Unlock()
	r.publish(snapshot)
}

func (r *Reconciler) transition(attemptID string, phase domain.DepositPhase, errorMessage string) {
	r.mu.Lock()
	attempt, ok := r.attempts[attemptID]
	if !ok || attempt.Phase.Terminal() {
		r.mu.Unlock()
		return
	}
	attempt.Phase = phase
	attempt.ErrorMessage = errorMessage
	attempt.UpdatedAt = time.Now().UTC()
	snapshot := *attempt
	r.mu.Unlock()

	r.publish(snapshot)
}

func (r *Reconciler) setBalance(balance domain.Balance) {
	r.mu.Lock()
	r.balance = &balance
	r.mu.Unlock()

	if r.pub != nil {
		r.pub.PublishBalance(balance)
	}
}

func (r *Reconciler) refreshBalanceBestEffort() {
	if response, err := r.RefreshBalance(r.ctx); err == nil {
		balance := response.Balance()
		if r.pub != nil {
			r.pub.PublishBalance(balance)
		}
	}
}

func (r *Reconciler) publish(attempt domain.DepositAttempt) {
	if r.pub != nil {
		r.pub.PublishDeposit(attempt)
	}
}
