package ledger

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"racklab/internal/domain"
	"racklab/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wallet := rg.Group("/wallet")
	{
		wallet.GET("", h.GetBalance)
		wallet.GET("/entries", h.GetBalanceSheet)
		wallet.POST("/topup", h.TopUp)
	}
}

type topUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	balance, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get balance")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) GetBalanceSheet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	entries, err := h.service.BalanceSheet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list ledger entries")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}

// TopUp lands a token-pack purchase as a purchase credit. The payment
// gateway flow in front of it is an external collaborator.
func (h *Handler) TopUp(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_AMOUNT", "Invalid request body")
		return
	}

	entry, err := h.service.Credit(c.Request.Context(), userID, req.Amount, domain.EntryPurchase, nil)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.Error(c, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
		case errors.Is(err, ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to credit tokens")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"balance": entry.ResultingBalance,
		"entry":   entry,
	})
}
