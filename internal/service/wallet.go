package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/repository"
)

// WalletService serves the read-only projections the client consumes:
// balances per currency and paginated transaction history.
type WalletService struct {
	store QueryStore
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{store: store}
}

// EnsureWallets creates the zero-balance wallet rows for every supported
// currency. Called at signup so balance reads never miss.
func (s *WalletService) EnsureWallets(ctx context.Context, userID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		for _, currency := range domain.SupportedCurrencies {
			if err := qtx.EnsureWallet(ctx, userID, currency); err != nil {
				return fmt.Errorf("ensure %s wallet: %w", currency, err)
			}
		}
		return nil
	})
}

// Balances returns the user's wallets, one per supported currency. Missing
// rows are reported as zero balances rather than omitted.
func (s *WalletService) Balances(ctx context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	wallets, err := s.store.Queries().GetWalletsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}

	byCurrency := make(map[string]models.Wallet, len(wallets))
	for _, w := range wallets {
		byCurrency[w.Currency] = w
	}
	out := make([]models.Wallet, 0, len(domain.SupportedCurrencies))
	for _, currency := range domain.SupportedCurrencies {
		if w, ok := byCurrency[currency]; ok {
			out = append(out, w)
			continue
		}
		out = append(out, models.Wallet{UserID: userID, Currency: currency})
	}
	return out, nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// History returns the user's transactions, newest first.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListTransactionsByUser(ctx, userID, limit, offset)
}
