package handler

import (
	"errors"
	"net/http"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/service"
)

// ReferenceHandler serves the read-only reference data the deposit and
// exchange forms need: active collection accounts and the current rate.
type ReferenceHandler struct {
	rateSvc *service.RateService
	store   service.QueryStore
}

func NewReferenceHandler(rateSvc *service.RateService, store service.QueryStore) *ReferenceHandler {
	return &ReferenceHandler{rateSvc: rateSvc, store: store}
}

// ListBankAccounts handles GET /v1/bank-accounts.
func (h *ReferenceHandler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency != "" && !domain.IsSupportedCurrency(currency) {
		RespondError(w, r, http.StatusBadRequest, "request/unsupported-currency", "unsupported currency")
		return
	}
	accounts, err := h.store.Queries().ListActiveBankAccounts(r.Context(), currency)
	if err != nil {
		RespondServiceError(w, r, err, "list bank accounts")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": accounts, "count": len(accounts)})
}

// GetRate handles GET /v1/rates/current.
func (h *ReferenceHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if !domain.IsSupportedCurrency(from) || !domain.IsSupportedCurrency(to) || from == to {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-currency-pair", "from and to must be distinct supported currencies")
		return
	}

	rate, err := h.rateSvc.GetActiveRate(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveRate) {
			RespondError(w, r, http.StatusNotFound, "rate/not-found", "no active rate for this pair")
			return
		}
		RespondServiceError(w, r, err, "get rate")
		return
	}
	RespondJSON(w, http.StatusOK, rate)
}
