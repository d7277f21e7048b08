package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/remitbd/remit-core/internal/observability"
	"github.com/remitbd/remit-core/internal/repository"
)

// ReconciliationService cross-checks wallet balances against the SUCCESS
// transaction history. It only reports drift, it never corrects balances.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run scans for wallets whose balance disagrees with the replayed ledger
// deltas, logs each mismatch and bumps the imbalance counter. Returns the
// mismatches found so callers can surface them.
func (s *ReconciliationService) Run(ctx context.Context) ([]repository.WalletMismatchRow, error) {
	mismatches, err := s.store.Queries().GetWalletMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan wallet mismatches: %w", err)
	}

	for _, m := range mismatches {
		observability.IncrementWalletImbalance(m.Currency)
		zap.L().Error("wallet balance mismatch",
			zap.String("user_id", m.UserID.String()),
			zap.String("currency", m.Currency),
			zap.Int64("balance_micros", m.BalanceMicros),
			zap.Int64("expected_micros", m.ExpectedMicros))
	}
	return mismatches, nil
}
