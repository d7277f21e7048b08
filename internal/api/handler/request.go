package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/remitbd/remit-core/internal/service"
)

// RequestHandler accepts deposit, withdrawal and exchange submissions. The
// Idempotency-Key header doubles as the submission reference id, so retries
// land on the same transaction row.
type RequestHandler struct {
	requestSvc *service.RequestService
}

func NewRequestHandler(requestSvc *service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

type submitDepositRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	SenderName     string `json:"sender_name"`
	ProofReference string `json:"proof_reference"`
	BankAccountID  string `json:"bank_account_id"`
}

// SubmitDeposit handles POST /v1/requests/deposit.
func (h *RequestHandler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, referenceID, ok := submissionContext(w, r)
	if !ok {
		return
	}

	var req submitDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-bank-account-id", "Invalid bank_account_id")
		return
	}

	tx, err := h.requestSvc.SubmitDeposit(r.Context(), service.SubmitDepositCmd{
		UserID:         actorID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		SenderName:     req.SenderName,
		ProofReference: req.ProofReference,
		BankAccountID:  bankAccountID,
		ReferenceID:    referenceID,
	})
	if err != nil {
		RespondServiceError(w, r, err, "submit deposit")
		return
	}
	RespondJSON(w, http.StatusAccepted, tx)
}

type submitWithdrawalRequest struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// SubmitWithdrawal handles POST /v1/requests/withdrawal.
func (h *RequestHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	actorID, referenceID, ok := submissionContext(w, r)
	if !ok {
		return
	}

	var req submitWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.requestSvc.SubmitWithdrawal(r.Context(), service.SubmitWithdrawalCmd{
		UserID:        actorID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
		ReferenceID:   referenceID,
	})
	if err != nil {
		RespondServiceError(w, r, err, "submit withdrawal")
		return
	}
	RespondJSON(w, http.StatusAccepted, tx)
}

type submitExchangeRequest struct {
	Amount       string `json:"amount"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
}

// SubmitExchange handles POST /v1/requests/exchange.
func (h *RequestHandler) SubmitExchange(w http.ResponseWriter, r *http.Request) {
	actorID, referenceID, ok := submissionContext(w, r)
	if !ok {
		return
	}

	var req submitExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.requestSvc.SubmitExchange(r.Context(), service.SubmitExchangeCmd{
		UserID:       actorID,
		Amount:       req.Amount,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		ReferenceID:  referenceID,
	})
	if err != nil {
		RespondServiceError(w, r, err, "submit exchange")
		return
	}
	RespondJSON(w, http.StatusAccepted, tx)
}

// GetRequest handles GET /v1/requests/{id}. Users may only read their own
// requests; admins may read any.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid request ID")
		return
	}

	detail, err := h.requestSvc.GetRequestDetail(r.Context(), requestID)
	if err != nil {
		RespondServiceError(w, r, err, "get request")
		return
	}
	if !isAdmin && detail.Transaction.UserID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	RespondJSON(w, http.StatusOK, detail)
}

// Cancel handles POST /v1/requests/{id}/cancel.
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid request ID")
		return
	}

	tx, err := h.requestSvc.Cancel(r.Context(), service.CancelCmd{
		TransactionID: requestID,
		UserID:        actorID,
	})
	if err != nil {
		RespondServiceError(w, r, err, "cancel request")
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

func submissionContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return uuid.Nil, "", false
	}
	referenceID := r.Header.Get("Idempotency-Key")
	if referenceID == "" {
		RespondError(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required")
		return uuid.Nil, "", false
	}
	return actorID, referenceID, true
}
