package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/remitbd/remit-core/internal/api/middleware"
	"github.com/remitbd/remit-core/internal/service"
)

// AuthHandler issues mock login tokens. The role claim comes from the user
// row, never from the request body.
type AuthHandler struct {
	store service.QueryStore
}

func NewAuthHandler(store service.QueryStore) *AuthHandler {
	return &AuthHandler{store: store}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
		return
	}

	user, err := h.store.Queries().GetUser(r.Context(), uid)
	if err != nil {
		RespondError(w, r, http.StatusNotFound, "user/not-found", "User not found")
		return
	}

	claims := jwt.MapClaims{
		"user_id": uid.String(),
		"role":    user.Role,
		"sub":     uid.String(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	if iss := middleware.JWTIssuer(); iss != "" {
		claims["iss"] = iss
	}
	if aud := middleware.JWTAudience(); aud != "" {
		claims["aud"] = aud
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}
