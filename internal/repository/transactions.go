package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, type, status, amount_micros, currency,
	from_currency, to_currency, exchange_rate, converted_micros, reference_id,
	admin_id, admin_notes, reject_reason, created_at, processed_at`

type CreateTransactionParams struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            string
	Status          string
	AmountMicros    int64
	Currency        string
	FromCurrency    *string
	ToCurrency      *string
	ExchangeRate    *decimal.Decimal
	ConvertedMicros *int64
	ReferenceID     string
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) error {
	query := `
		INSERT INTO transactions (id, user_id, type, status, amount_micros, currency,
			from_currency, to_currency, exchange_rate, converted_micros, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`
	_, err := q.db.Exec(ctx, query,
		p.ID, p.UserID, p.Type, p.Status, p.AmountMicros, p.Currency,
		p.FromCurrency, p.ToCurrency, p.ExchangeRate, p.ConvertedMicros, p.ReferenceID)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Status, &t.AmountMicros, &t.Currency,
		&t.FromCurrency, &t.ToCurrency, &t.ExchangeRate, &t.ConvertedMicros, &t.ReferenceID,
		&t.AdminID, &t.AdminNotes, &t.RejectReason, &t.CreatedAt, &t.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(q.db.QueryRow(ctx, query, id))
}

// GetTransactionForUpdate locks the transaction row, serializing concurrent
// review decisions on the same request.
func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return scanTransaction(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) GetTransactionByReference(ctx context.Context, referenceID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_id = $1`
	return scanTransaction(q.db.QueryRow(ctx, query, referenceID))
}

type SetTransactionDecisionParams struct {
	ID           uuid.UUID
	Status       string
	AdminID      uuid.UUID
	AdminNotes   *string
	RejectReason *string
}

// SetTransactionDecision flips a PENDING transaction to its terminal state
// and stamps the decision metadata. Affects zero rows if the transaction is
// no longer PENDING.
func (q *Queries) SetTransactionDecision(ctx context.Context, p SetTransactionDecisionParams) (int64, error) {
	query := `
		UPDATE transactions
		SET status = $2, admin_id = $3, admin_notes = $4, reject_reason = $5, processed_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := q.db.Exec(ctx, query, p.ID, p.Status, p.AdminID, p.AdminNotes, p.RejectReason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetTransactionStatusForUpdate returns the current status under a row lock.
func (q *Queries) GetTransactionStatusForUpdate(ctx context.Context, id uuid.UUID) (string, error) {
	var status string
	err := q.db.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	return status, err
}

func (q *Queries) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Status, &t.AmountMicros, &t.Currency,
			&t.FromCurrency, &t.ToCurrency, &t.ExchangeRate, &t.ConvertedMicros, &t.ReferenceID,
			&t.AdminID, &t.AdminNotes, &t.RejectReason, &t.CreatedAt, &t.ProcessedAt)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactionsByUser returns the user's history, newest first.
func (q *Queries) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return q.queryTransactions(ctx, query, userID, limit, offset)
}

// ListTransactionsByStatus returns transactions in a status, oldest first so
// admins review the longest-waiting requests first.
func (q *Queries) ListTransactionsByStatus(ctx context.Context, status string, limit, offset int32) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	return q.queryTransactions(ctx, query, status, limit, offset)
}

type PendingSummaryRow struct {
	Type        string `json:"type"`
	Count       int64  `json:"count"`
	TotalMicros int64  `json:"total_micros"`
}

// GetPendingSummary aggregates the review queue by request type.
func (q *Queries) GetPendingSummary(ctx context.Context) ([]PendingSummaryRow, error) {
	query := `
		SELECT type, COUNT(*), COALESCE(SUM(amount_micros), 0)
		FROM transactions
		WHERE status = 'PENDING'
		GROUP BY type
		ORDER BY type
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pending summary: %w", err)
	}
	defer rows.Close()

	var out []PendingSummaryRow
	for rows.Next() {
		var r PendingSummaryRow
		if err := rows.Scan(&r.Type, &r.Count, &r.TotalMicros); err != nil {
			return nil, fmt.Errorf("scan pending summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SumDepositsToBankAccountSince sums non-rejected deposit volume routed to an
// admin bank account since the cutoff. Used for the daily/monthly limit check.
func (q *Queries) SumDepositsToBankAccountSince(ctx context.Context, bankAccountID uuid.UUID, since string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(t.amount_micros), 0)
		FROM transactions t
		JOIN deposit_requests d ON d.transaction_id = t.id
		WHERE d.bank_account_id = $1
		  AND t.status IN ('PENDING', 'SUCCESS')
		  AND t.created_at >= NOW() - $2::interval
	`
	var total int64
	if err := q.db.QueryRow(ctx, query, bankAccountID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deposits to bank account: %w", err)
	}
	return total, nil
}
