package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remitbd/remit-core/internal/domain"
)

func TestReconciliationCleanLedger(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")
	_, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	mismatches, err := NewReconciliationService(store).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestReconciliationDetectsDrift(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")
	_, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	// Skew the balance behind the ledger's back.
	_, err = db.Exec(ctx,
		"UPDATE wallets SET balance_micros = balance_micros + 1 WHERE user_id = $1 AND currency = $2",
		user.ID, domain.CurrencyBDT)
	require.NoError(t, err)

	mismatches, err := NewReconciliationService(store).Run(ctx)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, user.ID, mismatches[0].UserID)
	assert.Equal(t, domain.CurrencyBDT, mismatches[0].Currency)
	assert.Equal(t, int64(5_000_000_001), mismatches[0].BalanceMicros)
	assert.Equal(t, int64(5_000_000_000), mismatches[0].ExpectedMicros)
}

func TestReconciliationIgnoresPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)

	submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	mismatches, err := NewReconciliationService(store).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}
