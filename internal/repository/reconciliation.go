package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type WalletMismatchRow struct {
	WalletID       uuid.UUID
	UserID         uuid.UUID
	Currency       string
	BalanceMicros  int64
	ExpectedMicros int64
}

// GetWalletMismatches compares each wallet balance against the net of its
// SUCCESS transactions (deposit credit, withdrawal debit, exchange dual
// adjustment) and returns every wallet that diverges or is negative.
func (q *Queries) GetWalletMismatches(ctx context.Context) ([]WalletMismatchRow, error) {
	query := `
		SELECT w.id, w.user_id, w.currency, w.balance_micros, COALESCE(n.net, 0) AS expected
		FROM wallets w
		LEFT JOIN (
			SELECT user_id, currency, SUM(delta) AS net
			FROM (
				SELECT user_id, currency, amount_micros AS delta
				FROM transactions WHERE type = 'DEPOSIT' AND status = 'SUCCESS'
				UNION ALL
				SELECT user_id, currency, -amount_micros
				FROM transactions WHERE type = 'WITHDRAWAL' AND status = 'SUCCESS'
				UNION ALL
				SELECT user_id, from_currency, -amount_micros
				FROM transactions WHERE type = 'EXCHANGE' AND status = 'SUCCESS'
				UNION ALL
				SELECT user_id, to_currency, converted_micros
				FROM transactions WHERE type = 'EXCHANGE' AND status = 'SUCCESS'
			) deltas
			GROUP BY user_id, currency
		) n ON n.user_id = w.user_id AND n.currency = w.currency
		WHERE w.balance_micros <> COALESCE(n.net, 0) OR w.balance_micros < 0
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("wallet mismatches: %w", err)
	}
	defer rows.Close()

	var out []WalletMismatchRow
	for rows.Next() {
		var r WalletMismatchRow
		if err := rows.Scan(&r.WalletID, &r.UserID, &r.Currency, &r.BalanceMicros, &r.ExpectedMicros); err != nil {
			return nil, fmt.Errorf("scan wallet mismatch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
