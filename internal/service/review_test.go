package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/observability"
)

func TestApproveDepositCreditsWallet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	approved, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.TxStatusSuccess, approved.Status)
	require.NotNil(t, approved.AdminID)
	assert.Equal(t, admin.ID, *approved.AdminID)
	assert.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, int64(5_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
}

func TestApproveIsIdempotentOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	first, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)
	second, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.TxStatusSuccess, second.Status)

	// Retrying must not credit twice.
	assert.Equal(t, int64(5_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
}

// decisionCount reads the current value of the review decision counter for an
// action/type pair from the default registry.
func decisionCount(t *testing.T, action, txType string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "review_decisions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if (lp.GetName() == "action" && lp.GetValue() == action) ||
					(lp.GetName() == "type" && lp.GetValue() == txType) {
					matched++
				}
			}
			if matched == 2 {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDecisionRetryDoesNotInflateCounters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	observability.Init()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	approveTx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")
	rejectTx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	approvedBefore := decisionCount(t, "approved", domain.TxTypeDeposit)
	rejectedBefore := decisionCount(t, "rejected", domain.TxTypeDeposit)

	_, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: approveTx.ID, AdminID: admin.ID})
	require.NoError(t, err)
	_, err = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: approveTx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	_, err = reviewSvc.Reject(ctx, RejectCmd{TransactionID: rejectTx.ID, AdminID: admin.ID, Reason: "proof unreadable"})
	require.NoError(t, err)
	_, err = reviewSvc.Reject(ctx, RejectCmd{TransactionID: rejectTx.ID, AdminID: admin.ID, Reason: "proof unreadable"})
	require.NoError(t, err)

	// One decision each, no matter how many retries followed.
	assert.Equal(t, approvedBefore+1, decisionCount(t, "approved", domain.TxTypeDeposit))
	assert.Equal(t, rejectedBefore+1, decisionCount(t, "rejected", domain.TxTypeDeposit))
}

func TestApproveAfterRejectFailsWithInvalidTransition(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	_, err := reviewSvc.Reject(ctx, RejectCmd{TransactionID: tx.ID, AdminID: admin.ID, Reason: "proof unreadable"})
	require.NoError(t, err)

	_, err = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	terr, ok := AsInvalidTransition(err)
	require.True(t, ok, "expected invalid transition, got %v", err)
	assert.Equal(t, domain.TxStatusRejected, terr.From)

	assert.Equal(t, int64(0), walletBalance(t, db, user.ID, domain.CurrencyBDT))
}

func TestApproveWithdrawalInsufficientFundsLeavesPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	creditBalance(t, db, user.ID, domain.CurrencyBDT, 1_000_000_000)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx, err := requestSvc.SubmitWithdrawal(ctx, SubmitWithdrawalCmd{
		UserID:        user.ID,
		Amount:        "3000",
		Currency:      domain.CurrencyBDT,
		BankName:      "BRAC Bank",
		AccountNumber: "9876543210",
		AccountHolder: "Rahim Uddin",
		ReferenceID:   uuid.NewString(),
	})
	require.NoError(t, err)

	_, err = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Balance unchanged and the request is still reviewable.
	assert.Equal(t, int64(1_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
	reloaded, err := store.Queries().GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, reloaded.Status)

	// The admin can still reject it explicitly.
	rejected, err := reviewSvc.Reject(ctx, RejectCmd{TransactionID: tx.ID, AdminID: admin.ID, Reason: "insufficient funds"})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRejected, rejected.Status)
}

func TestApproveWithdrawalDebitsWallet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	creditBalance(t, db, user.ID, domain.CurrencyBDT, 5_000_000_000)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx, err := requestSvc.SubmitWithdrawal(ctx, SubmitWithdrawalCmd{
		UserID:        user.ID,
		Amount:        "2000",
		Currency:      domain.CurrencyBDT,
		BankName:      "BRAC Bank",
		AccountNumber: "9876543210",
		AccountHolder: "Rahim Uddin",
		ReferenceID:   uuid.NewString(),
	})
	require.NoError(t, err)

	approved, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, approved.Status)
	assert.Equal(t, int64(3_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
}

func TestApproveExchangeAdjustsBothWallets(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	creditBalance(t, db, user.ID, domain.CurrencyBDT, 20_000_000_000)
	seedRate(t, db, domain.CurrencyBDT, domain.CurrencyINR, "0.9")
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx, err := requestSvc.SubmitExchange(ctx, SubmitExchangeCmd{
		UserID:       user.ID,
		Amount:       "10000",
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		ReferenceID:  uuid.NewString(),
	})
	require.NoError(t, err)

	_, err = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(10_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
	assert.Equal(t, int64(9_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyINR))
}

func TestApproveExchangeInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	creditBalance(t, db, user.ID, domain.CurrencyBDT, 1_000_000_000)
	seedRate(t, db, domain.CurrencyBDT, domain.CurrencyINR, "0.9")
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx, err := requestSvc.SubmitExchange(ctx, SubmitExchangeCmd{
		UserID:       user.ID,
		Amount:       "10000",
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		ReferenceID:  uuid.NewString(),
	})
	require.NoError(t, err)

	_, err = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Neither side moved.
	assert.Equal(t, int64(1_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
	assert.Equal(t, int64(0), walletBalance(t, db, user.ID, domain.CurrencyINR))
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "attempt %d", i)
	}

	// Exactly one credit despite concurrent approvals.
	assert.Equal(t, int64(5_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))

	var successCount int
	err := db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE id = $1 AND status = 'SUCCESS'", tx.ID).Scan(&successCount)
	require.NoError(t, err)
	assert.Equal(t, 1, successCount)
}

func TestRejectRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	admin := seedUser(t, db, domain.RoleAdmin)
	_, store := newRequestService(db)
	reviewSvc := NewReviewService(store)

	_, err := reviewSvc.Reject(context.Background(), RejectCmd{TransactionID: uuid.New(), AdminID: admin.ID})
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingField, verr.Code)
}

func TestRejectIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")

	first, err := reviewSvc.Reject(ctx, RejectCmd{TransactionID: tx.ID, AdminID: admin.ID, Reason: "proof unreadable"})
	require.NoError(t, err)
	require.NotNil(t, first.RejectReason)
	assert.Equal(t, "proof unreadable", *first.RejectReason)

	second, err := reviewSvc.Reject(ctx, RejectCmd{TransactionID: tx.ID, AdminID: admin.ID, Reason: "proof unreadable"})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRejected, second.Status)
}

func TestListPendingOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)

	first := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")
	second := submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "6000")

	pending, err := reviewSvc.ListPending(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestDashboardSummary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	requestSvc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)

	submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "5000")
	submitTestDeposit(t, requestSvc, user.ID, bankAccountID, "6000")

	summary, err := reviewSvc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Pending, 1)
	assert.Equal(t, domain.TxTypeDeposit, summary.Pending[0].Type)
	assert.Equal(t, int64(2), summary.Pending[0].Count)
	assert.Equal(t, int64(11_000_000_000), summary.Pending[0].TotalMicros)
}
