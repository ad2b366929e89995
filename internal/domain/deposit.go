package domain

import "time"

type DepositPhase string

const (
	DepositPhaseDrafted    DepositPhase = "drafted"
	DepositPhaseSubmitted  DepositPhase = "submitted"
	DepositPhaseConfirming DepositPhase = "confirming"
	DepositPhaseCredited   DepositPhase = "credited"
	DepositPhaseFailed     DepositPhase = "failed"
)

// Terminal reports whether the phase permits no further transitions.
func (p DepositPhase) Terminal() bool {
	return p == DepositPhaseCredited || p == DepositPhaseFailed
}

// DepositAttempt tracks one user-initiated transfer from submission
// through ledger crediting. A confirmed transaction hash is presented to
// the ledger's credit operation at most once per attempt lifecycle; an
// ambiguous credit result is retried with the same hash so the ledger
// can deduplicate.
type DepositAttempt struct {
	ID              string       `json:"id"`
	AmountETH       string       `json:"amount_eth"`
	ToAddress       string       `json:"to_address"`
	TransactionHash string       `json:"transaction_hash,omitempty"`
	Phase           DepositPhase `json:"phase"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type ReceiptStatus string

const (
	ReceiptStatusConfirmed ReceiptStatus = "confirmed"
	ReceiptStatusFailed    ReceiptStatus = "failed"
)

// Receipt is the chain's terminal acknowledgement for a submitted
// transaction hash.
type Receipt struct {
	TransactionHash string        `json:"transaction_hash"`
	Status          ReceiptStatus `json:"status"`
	BlockNumber     uint64        `json:"block_number,omitempty"`
}

type CreditRequest struct {
	AmountETH       string `json:"amount_eth"`
	TransactionHash string `json:"tx_hash"`
}

type CreditResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Balance *Balance `json:"balance,omitempty"`
}
