package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/repository"
)

// PENDING is the only non-terminal state. SUCCESS, REJECTED, FAILED and
// CANCELLED admit no further transitions.
var transactionTransitions = map[string]map[string]struct{}{
	"PENDING": {
		"SUCCESS":   {},
		"REJECTED":  {},
		"FAILED":    {},
		"CANCELLED": {},
	},
	"SUCCESS":   {},
	"REJECTED":  {},
	"FAILED":    {},
	"CANCELLED": {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// transitionTransactionState flips a transaction status under a row lock and
// records the transition in the audit trail. Transitioning to the current
// state is a no-op.
func transitionTransactionState(ctx context.Context, qtx *repository.Queries, audit *AuditService, transactionID uuid.UUID, nextState string, actorID *uuid.UUID, action string, metadata []byte) error {
	currentState, err := qtx.GetTransactionStatusForUpdate(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("get current transaction state: %w", err)
	}

	if normalizeState(currentState) == normalizeState(nextState) {
		return nil
	}
	if !canTransition(currentState, nextState) {
		return &InvalidTransitionError{From: currentState, To: nextState}
	}

	rows, err := qtx.UpdateTransactionStatus(ctx, transactionID, nextState)
	if err != nil {
		return fmt.Errorf("update transaction state: %w", err)
	}
	if err := requireExactlyOne(rows, "update transaction state"); err != nil {
		return err
	}

	if err := audit.Write(ctx, qtx, "transaction", transactionID, actorID, action, currentState, nextState, metadata); err != nil {
		return err
	}

	return nil
}
