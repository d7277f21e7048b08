package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/observability"
	"github.com/remitbd/remit-core/internal/repository"
)

// ReviewService is the admin decision gate. Approving a request here is the
// only code path that mutates wallet balances.
type ReviewService struct {
	store QueryStore
	audit *AuditService
}

func NewReviewService(store QueryStore) *ReviewService {
	return &ReviewService{store: store, audit: NewAuditService(store)}
}

type ApproveCmd struct {
	TransactionID uuid.UUID
	AdminID       uuid.UUID
	Notes         *string
}

// Approve flips a PENDING request to SUCCESS and applies its ledger delta in
// the same database transaction. A retry against a request already approved
// returns the stored result; any other terminal state fails with
// InvalidTransitionError. The transaction row is locked first, then wallet
// rows in ascending currency order, so concurrent approvals serialize.
func (s *ReviewService) Approve(ctx context.Context, cmd ApproveCmd) (*models.Transaction, error) {
	var (
		result  *models.Transaction
		applied bool
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		tx, err := qtx.GetTransactionForUpdate(ctx, cmd.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}

		if tx.Status == domain.TxStatusSuccess {
			result = tx
			return nil
		}
		if domain.IsTerminalStatus(tx.Status) {
			return &InvalidTransitionError{From: tx.Status, To: domain.TxStatusSuccess}
		}

		if err := s.applyLedgerDelta(ctx, qtx, tx); err != nil {
			return err
		}

		rows, err := qtx.SetTransactionDecision(ctx, repository.SetTransactionDecisionParams{
			ID:         tx.ID,
			Status:     domain.TxStatusSuccess,
			AdminID:    cmd.AdminID,
			AdminNotes: cmd.Notes,
		})
		if err != nil {
			return fmt.Errorf("record approval: %w", err)
		}
		if err := requireExactlyOne(rows, "record approval"); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]string{"type": tx.Type})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "transaction", tx.ID, &cmd.AdminID,
			"approved", domain.TxStatusPending, domain.TxStatusSuccess, metadata); err != nil {
			return err
		}

		applied = true
		result, err = qtx.GetTransaction(ctx, tx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if applied {
		observability.IncrementDecision("approved", result.Type)
	}
	return result, nil
}

// applyLedgerDelta locks and mutates the wallet rows a request touches.
// Wallets are locked in ascending currency order so that two admins
// approving different requests for the same user cannot deadlock.
func (s *ReviewService) applyLedgerDelta(ctx context.Context, qtx *repository.Queries, tx *models.Transaction) error {
	switch tx.Type {
	case domain.TxTypeDeposit:
		if _, err := qtx.GetWalletForUpdate(ctx, tx.UserID, tx.Currency); err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		rows, err := qtx.CreditWallet(ctx, tx.UserID, tx.Currency, tx.AmountMicros)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		return requireExactlyOne(rows, "credit wallet")

	case domain.TxTypeWithdrawal:
		wallet, err := qtx.GetWalletForUpdate(ctx, tx.UserID, tx.Currency)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if wallet.BalanceMicros < tx.AmountMicros {
			return models.ErrInsufficientFunds
		}
		rows, err := qtx.DebitWallet(ctx, tx.UserID, tx.Currency, tx.AmountMicros)
		if err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		if rows == 0 {
			return models.ErrInsufficientFunds
		}
		return requireExactlyOne(rows, "debit wallet")

	case domain.TxTypeExchange:
		if tx.FromCurrency == nil || tx.ToCurrency == nil || tx.ConvertedMicros == nil {
			return fmt.Errorf("exchange transaction %s is missing conversion fields", tx.ID)
		}
		from, to := *tx.FromCurrency, *tx.ToCurrency

		currencies := []string{from, to}
		sort.Strings(currencies)
		var fromWallet *models.Wallet
		for _, currency := range currencies {
			wallet, err := qtx.GetWalletForUpdate(ctx, tx.UserID, currency)
			if err != nil {
				return fmt.Errorf("lock wallet %s: %w", currency, err)
			}
			if currency == from {
				fromWallet = wallet
			}
		}
		if fromWallet.BalanceMicros < tx.AmountMicros {
			return models.ErrInsufficientFunds
		}

		rows, err := qtx.DebitWallet(ctx, tx.UserID, from, tx.AmountMicros)
		if err != nil {
			return fmt.Errorf("debit %s wallet: %w", from, err)
		}
		if rows == 0 {
			return models.ErrInsufficientFunds
		}
		rows, err = qtx.CreditWallet(ctx, tx.UserID, to, *tx.ConvertedMicros)
		if err != nil {
			return fmt.Errorf("credit %s wallet: %w", to, err)
		}
		return requireExactlyOne(rows, "credit wallet")

	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}
}

type RejectCmd struct {
	TransactionID uuid.UUID
	AdminID       uuid.UUID
	Reason        string
	Notes         *string
}

// Reject flips a PENDING request to REJECTED. No wallet is touched. A retry
// against a request already rejected returns the stored result.
func (s *ReviewService) Reject(ctx context.Context, cmd RejectCmd) (*models.Transaction, error) {
	if cmd.Reason == "" {
		return nil, newValidationError(CodeMissingField, "reason", "a rejection reason is required")
	}

	var (
		result  *models.Transaction
		applied bool
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		tx, err := qtx.GetTransactionForUpdate(ctx, cmd.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}

		if tx.Status == domain.TxStatusRejected {
			result = tx
			return nil
		}
		if domain.IsTerminalStatus(tx.Status) {
			return &InvalidTransitionError{From: tx.Status, To: domain.TxStatusRejected}
		}

		rows, err := qtx.SetTransactionDecision(ctx, repository.SetTransactionDecisionParams{
			ID:           tx.ID,
			Status:       domain.TxStatusRejected,
			AdminID:      cmd.AdminID,
			AdminNotes:   cmd.Notes,
			RejectReason: &cmd.Reason,
		})
		if err != nil {
			return fmt.Errorf("record rejection: %w", err)
		}
		if err := requireExactlyOne(rows, "record rejection"); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]string{"type": tx.Type, "reason": cmd.Reason})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "transaction", tx.ID, &cmd.AdminID,
			"rejected", domain.TxStatusPending, domain.TxStatusRejected, metadata); err != nil {
			return err
		}

		applied = true
		result, err = qtx.GetTransaction(ctx, tx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if applied {
		observability.IncrementDecision("rejected", result.Type)
	}
	return result, nil
}

// ListPending returns the review queue, oldest submissions first.
func (s *ReviewService) ListPending(ctx context.Context, limit, offset int32) ([]models.Transaction, error) {
	return s.store.Queries().ListTransactionsByStatus(ctx, domain.TxStatusPending, limit, offset)
}

// DashboardSummary aggregates PENDING counts and sums per request type.
type DashboardSummary struct {
	Pending []repository.PendingSummaryRow `json:"pending"`
}

func (s *ReviewService) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	rows, err := s.store.Queries().GetPendingSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending summary: %w", err)
	}
	return &DashboardSummary{Pending: rows}, nil
}
