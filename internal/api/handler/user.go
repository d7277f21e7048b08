package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/service"
)

type UserHandler struct {
	store     service.QueryStore
	walletSvc *service.WalletService
}

func NewUserHandler(store service.QueryStore, walletSvc *service.WalletService) *UserHandler {
	return &UserHandler{store: store, walletSvc: walletSvc}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CreateUser handles POST /v1/users. New users always get the user role and
// a zero-balance wallet per supported currency.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "username and email are required")
		return
	}

	user := &models.User{
		ID:       uuid.New(),
		Username: req.Username,
		Email:    req.Email,
		Role:     domain.RoleUser,
	}
	if err := h.store.Queries().CreateUser(r.Context(), user); err != nil {
		RespondServiceError(w, r, err, "create user")
		return
	}
	if err := h.walletSvc.EnsureWallets(r.Context(), user.ID); err != nil {
		RespondServiceError(w, r, err, "create wallets")
		return
	}

	RespondJSON(w, http.StatusCreated, user)
}
