package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/reconcile"
)

type WalletHandler struct {
	reconciler *reconcile.Reconciler
	logger     zerolog.Logger
}

func NewWalletHandler(reconciler *reconcile.Reconciler, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{reconciler: reconciler, logger: logger}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	response, err := h.reconciler.RefreshBalance(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"balance":                 response.Balance(),
		"platform_wallet_address": response.PlatformWalletAddress,
	})
}

type submitDepositBody struct {
	AmountETH string `json:"amount_eth" binding:"required"`
	// ToAddress is optional; defaults to the platform wallet address.
	ToAddress string `json:"to_address"`
}

func (h *WalletHandler) SubmitDeposit(c *gin.Context) {
	var body submitDepositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	toAddress := body.ToAddress
	if toAddress == "" {
		addr, err := h.reconciler.PlatformAddress(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		toAddress = addr
	}

	attempt, err := h.reconciler.Submit(c.Request.Context(), body.AmountETH, toAddress)
	if err != nil {
		if attempt != nil {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": err.Error(), "attempt": attempt})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "attempt": attempt})
}

func (h *WalletHandler) GetDeposit(c *gin.Context) {
	attempt := h.reconciler.Get(c.Param("id"))
	if attempt == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "deposit attempt not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "attempt": attempt})
}

func (h *WalletHandler) ListDeposits(c *gin.Context) {
	attempts := h.reconciler.List()
	c.JSON(http.StatusOK, gin.H{"success": true, "attempts": attempts, "count": len(attempts)})
}

type manualDepositBody struct {
	AmountETH string `json:"amount_eth" binding:"required"`
}

// ManualDeposit credits the ledger without an on-chain transfer.
func (h *WalletHandler) ManualDeposit(c *gin.Context) {
	var body manualDepositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	response, err := h.reconciler.ManualDeposit(c.Request.Context(), body.AmountETH)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": response.Message, "balance": response.Balance})
}

type resumeDepositBody struct {
	TransactionHash string `json:"tx_hash" binding:"required"`
	AmountETH       string `json:"amount_eth" binding:"required"`
}

func (h *WalletHandler) ResumeDeposit(c *gin.Context) {
	var body resumeDepositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	attempt, err := h.reconciler.Resume(body.TransactionHash, body.AmountETH)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "attempt": attempt})
}
