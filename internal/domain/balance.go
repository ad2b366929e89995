package domain

// Balance is the ledger-held account state, displayed as-is. Amounts are
// decimal ether strings from the ledger; the dashboard never recomputes
// them locally (available = deposited - spent is the ledger's invariant).
type Balance struct {
	AvailableETH      string `json:"balance_eth"`
	TotalDepositedETH string `json:"total_deposited_eth"`
	TotalSpentETH     string `json:"total_spent_eth"`
}

type BalanceResponse struct {
	Success               bool   `json:"success"`
	AvailableETH          string `json:"balance_eth"`
	TotalDepositedETH     string `json:"total_deposited_eth"`
	TotalSpentETH         string `json:"total_spent_eth"`
	PlatformWalletAddress string `json:"platform_wallet_address,omitempty"`
}

func (r *BalanceResponse) Balance() Balance {
	return Balance{
		AvailableETH:      r.AvailableETH,
		TotalDepositedETH: r.TotalDepositedETH,
		TotalSpentETH:     r.TotalSpentETH,
	}
}
