package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/models"
)

const walletColumns = `id, user_id, currency, balance_micros, created_at, updated_at`

// EnsureWallet creates the wallet row for (user, currency) if it does not
// exist yet. Safe to call repeatedly.
func (q *Queries) EnsureWallet(ctx context.Context, userID uuid.UUID, currency string) error {
	query := `
		INSERT INTO wallets (id, user_id, currency, balance_micros, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (user_id, currency) DO NOTHING
	`
	if _, err := q.db.Exec(ctx, query, uuid.New(), userID, currency); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (q *Queries) GetWallet(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	w := &models.Wallet{}
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2`
	err := q.db.QueryRow(ctx, query, userID, currency).
		Scan(&w.ID, &w.UserID, &w.Currency, &w.BalanceMicros, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWalletForUpdate locks the wallet row for the duration of the enclosing
// transaction. Callers locking more than one wallet must lock in
// currency-sorted order to avoid deadlocks.
func (q *Queries) GetWalletForUpdate(ctx context.Context, userID uuid.UUID, currency string) (*models.Wallet, error) {
	w := &models.Wallet{}
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`
	err := q.db.QueryRow(ctx, query, userID, currency).
		Scan(&w.ID, &w.UserID, &w.Currency, &w.BalanceMicros, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (q *Queries) GetWalletsByUser(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY currency`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Currency, &w.BalanceMicros, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// CreditWallet adds amountMicros to the wallet balance.
func (q *Queries) CreditWallet(ctx context.Context, userID uuid.UUID, currency string, amountMicros int64) (int64, error) {
	query := `
		UPDATE wallets
		SET balance_micros = balance_micros + $1, updated_at = NOW()
		WHERE user_id = $2 AND currency = $3
	`
	tag, err := q.db.Exec(ctx, query, amountMicros, userID, currency)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DebitWallet subtracts amountMicros from the wallet balance. The WHERE
// guard makes an overdraw affect zero rows rather than going negative.
func (q *Queries) DebitWallet(ctx context.Context, userID uuid.UUID, currency string, amountMicros int64) (int64, error) {
	query := `
		UPDATE wallets
		SET balance_micros = balance_micros - $1, updated_at = NOW()
		WHERE user_id = $2 AND currency = $3 AND balance_micros >= $1
	`
	tag, err := q.db.Exec(ctx, query, amountMicros, userID, currency)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
