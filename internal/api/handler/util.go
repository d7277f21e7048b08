package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/remitbd/remit-core/internal/api/middleware"
	"github.com/remitbd/remit-core/internal/api/problem"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/service"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, not found 404, invalid transition 409, insufficient
// funds 422, everything else 500.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if verr, ok := service.AsValidation(err); ok {
		problem.WriteCoded(w, r, http.StatusBadRequest, problem.Type("request/validation-failed"),
			http.StatusText(http.StatusBadRequest), verr.Reason, verr.Code, verr.Field)
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		RespondError(w, r, http.StatusNotFound, "request/not-found", "resource not found")
		return
	}
	if terr, ok := service.AsInvalidTransition(err); ok {
		RespondError(w, r, http.StatusConflict, "request/invalid-transition", terr.Error())
		return
	}
	if errors.Is(err, models.ErrInsufficientFunds) {
		RespondError(w, r, http.StatusUnprocessableEntity, "wallet/insufficient-funds", "balance would go negative")
		return
	}
	if status, problemType, message, ok := mapDBError(err); ok {
		RespondError(w, r, status, problemType, message)
		return
	}
	zap.L().Error(op+" failed", zap.Error(err))
	RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

func parsePagination(r *http.Request, defaultLimit int32) (limit, offset int32, err error) {
	limit = defaultLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, perr := strconv.Atoi(v)
		if perr != nil || parsed <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		limit = int32(parsed)
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		parsed, perr := strconv.Atoi(v)
		if perr != nil || parsed < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = int32(parsed)
	}
	return limit, offset, nil
}
