package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remitbd/remit-core/internal/repository"
	"github.com/remitbd/remit-core/internal/service"
)

// AdminHandler covers the review queue, decisions and reference data.
type AdminHandler struct {
	reviewSvc *service.ReviewService
	rateSvc   *service.RateService
	store     service.QueryStore
}

func NewAdminHandler(reviewSvc *service.ReviewService, rateSvc *service.RateService, store service.QueryStore) *AdminHandler {
	return &AdminHandler{reviewSvc: reviewSvc, rateSvc: rateSvc, store: store}
}

// ListPending handles GET /v1/admin/requests/pending.
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r, 50)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}
	items, err := h.reviewSvc.ListPending(r.Context(), limit, offset)
	if err != nil {
		RespondServiceError(w, r, err, "list pending requests")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"count":  len(items),
	})
}

type decisionRequest struct {
	Reason string  `json:"reason"`
	Notes  *string `json:"notes,omitempty"`
}

// Approve handles POST /v1/admin/requests/{id}/approve.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, requestID, ok := decisionContext(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	tx, err := h.reviewSvc.Approve(r.Context(), service.ApproveCmd{
		TransactionID: requestID,
		AdminID:       adminID,
		Notes:         req.Notes,
	})
	if err != nil {
		RespondServiceError(w, r, err, "approve request")
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Reject handles POST /v1/admin/requests/{id}/reject.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, requestID, ok := decisionContext(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)

	tx, err := h.reviewSvc.Reject(r.Context(), service.RejectCmd{
		TransactionID: requestID,
		AdminID:       adminID,
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if err != nil {
		RespondServiceError(w, r, err, "reject request")
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviewSvc.Dashboard(r.Context())
	if err != nil {
		RespondServiceError(w, r, err, "load dashboard")
		return
	}
	RespondJSON(w, http.StatusOK, summary)
}

type createBankAccountRequest struct {
	BankName           string `json:"bank_name"`
	AccountName        string `json:"account_name"`
	AccountNumber      string `json:"account_number"`
	Currency           string `json:"currency"`
	DailyLimitMicros   int64  `json:"daily_limit_micros"`
	MonthlyLimitMicros int64  `json:"monthly_limit_micros"`
}

// CreateBankAccount handles POST /v1/admin/bank-accounts.
func (h *AdminHandler) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var req createBankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.BankName == "" || req.AccountName == "" || req.AccountNumber == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "bank_name, account_name and account_number are required")
		return
	}
	if req.DailyLimitMicros < 0 || req.MonthlyLimitMicros < 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limits must be non-negative")
		return
	}

	id := uuid.New()
	err := h.store.Queries().InsertBankAccount(r.Context(), repository.InsertBankAccountParams{
		ID:                 id,
		BankName:           req.BankName,
		AccountName:        req.AccountName,
		AccountNumber:      req.AccountNumber,
		Currency:           req.Currency,
		DailyLimitMicros:   req.DailyLimitMicros,
		MonthlyLimitMicros: req.MonthlyLimitMicros,
	})
	if err != nil {
		RespondServiceError(w, r, err, "create bank account")
		return
	}
	account, err := h.store.Queries().GetBankAccount(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err, "load bank account")
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

// DeactivateBankAccount handles DELETE /v1/admin/bank-accounts/{id}.
func (h *AdminHandler) DeactivateBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-bank-account-id", "Invalid bank account ID")
		return
	}
	rows, err := h.store.Queries().SetBankAccountActive(r.Context(), id, false)
	if err != nil {
		RespondServiceError(w, r, err, "deactivate bank account")
		return
	}
	if rows == 0 {
		RespondError(w, r, http.StatusNotFound, "request/not-found", "Bank account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setRateRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Rate         string  `json:"rate"`
	EffectiveAt  *string `json:"effective_at,omitempty"`
}

// SetRate handles POST /v1/admin/rates.
func (h *AdminHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-rate", "rate must be a decimal number")
		return
	}
	var effectiveAt *time.Time
	if req.EffectiveAt != nil {
		parsed, perr := time.Parse(time.RFC3339, *req.EffectiveAt)
		if perr != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-effective-at", "effective_at must be RFC 3339")
			return
		}
		effectiveAt = &parsed
	}

	created, err := h.rateSvc.SetRate(r.Context(), service.SetRateCmd{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Rate:         rate,
		EffectiveAt:  effectiveAt,
	})
	if err != nil {
		RespondServiceError(w, r, err, "set rate")
		return
	}
	RespondJSON(w, http.StatusCreated, created)
}

// ListRates handles GET /v1/admin/rates.
func (h *AdminHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rates, err := h.rateSvc.ListRates(r.Context(), activeOnly)
	if err != nil {
		RespondServiceError(w, r, err, "list rates")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": rates, "count": len(rates)})
}

// DeactivateRate handles DELETE /v1/admin/rates/{id}.
func (h *AdminHandler) DeactivateRate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-rate-id", "Invalid rate ID")
		return
	}
	if err := h.rateSvc.DeactivateRate(r.Context(), id); err != nil {
		RespondServiceError(w, r, err, "deactivate rate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decisionContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	adminID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid request ID")
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, requestID, true
}
