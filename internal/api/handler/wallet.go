package handler

import (
	"net/http"

	"github.com/remitbd/remit-core/internal/service"
)

// WalletHandler serves the caller's balances and transaction history.
type WalletHandler struct {
	walletSvc *service.WalletService
}

func NewWalletHandler(walletSvc *service.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalances handles GET /v1/wallets.
func (h *WalletHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	wallets, err := h.walletSvc.Balances(r.Context(), actorID)
	if err != nil {
		RespondServiceError(w, r, err, "get balances")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"wallets": wallets})
}

// GetHistory handles GET /v1/transactions.
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	limit, offset, err := parsePagination(r, 20)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	transactions, err := h.walletSvc.History(r.Context(), actorID, limit, offset)
	if err != nil {
		RespondServiceError(w, r, err, "get history")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  transactions,
		"limit":  limit,
		"offset": offset,
		"count":  len(transactions),
	})
}
