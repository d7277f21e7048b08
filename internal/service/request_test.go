package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
)

func TestSubmitDepositCreatesPendingTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, store := newRequestService(db)

	tx := submitTestDeposit(t, svc, user.ID, bankAccountID, "5000")

	assert.Equal(t, domain.TxTypeDeposit, tx.Type)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	assert.Equal(t, int64(5_000_000_000), tx.AmountMicros)
	assert.Equal(t, domain.CurrencyBDT, tx.Currency)

	// No money moved at submission time.
	assert.Equal(t, int64(0), walletBalance(t, db, user.ID, domain.CurrencyBDT))

	detail, err := store.Queries().GetDepositRequestByTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rahim Uddin", detail.SenderName)
	assert.Equal(t, bankAccountID, detail.BankAccountID)
}

func TestSubmitDepositValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)
	ctx := context.Background()

	base := SubmitDepositCmd{
		UserID:         user.ID,
		Currency:       domain.CurrencyBDT,
		SenderName:     "Rahim Uddin",
		ProofReference: "proofs/txn-001.jpg",
		BankAccountID:  bankAccountID,
		ReferenceID:    uuid.NewString(),
	}

	cases := []struct {
		name     string
		mutate   func(cmd *SubmitDepositCmd)
		wantCode string
	}{
		{
			name:     "non numeric amount",
			mutate:   func(cmd *SubmitDepositCmd) { cmd.Amount = "abc" },
			wantCode: CodeAmountNotNumeric,
		},
		{
			name:     "negative amount",
			mutate:   func(cmd *SubmitDepositCmd) { cmd.Amount = "-10" },
			wantCode: CodeAmountNotNumeric,
		},
		{
			name:     "below minimum",
			mutate:   func(cmd *SubmitDepositCmd) { cmd.Amount = "100" },
			wantCode: CodeAmountBelowMinimum,
		},
		{
			name: "unsupported currency",
			mutate: func(cmd *SubmitDepositCmd) {
				cmd.Amount = "5000"
				cmd.Currency = "USD"
			},
			wantCode: CodeUnsupportedCurrency,
		},
		{
			name: "missing sender name",
			mutate: func(cmd *SubmitDepositCmd) {
				cmd.Amount = "5000"
				cmd.SenderName = ""
			},
			wantCode: CodeMissingField,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := base
			cmd.ReferenceID = uuid.NewString()
			tc.mutate(&cmd)

			_, err := svc.SubmitDeposit(ctx, cmd)
			verr, ok := AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tc.wantCode, verr.Code)
		})
	}
}

func TestSubmitDepositInactiveBankAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, store := newRequestService(db)
	ctx := context.Background()

	_, err := store.Queries().SetBankAccountActive(ctx, bankAccountID, false)
	require.NoError(t, err)

	_, err = svc.SubmitDeposit(ctx, SubmitDepositCmd{
		UserID:         user.ID,
		Amount:         "5000",
		Currency:       domain.CurrencyBDT,
		SenderName:     "Rahim Uddin",
		ProofReference: "proofs/txn-002.jpg",
		BankAccountID:  bankAccountID,
		ReferenceID:    uuid.NewString(),
	})
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInactiveReference, verr.Code)
}

func TestSubmitDepositBankAccountDailyLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	// Limit allows one 5000 deposit but not two.
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 8_000_000_000, 0)
	svc, _ := newRequestService(db)

	submitTestDeposit(t, svc, user.ID, bankAccountID, "5000")

	_, err := svc.SubmitDeposit(context.Background(), SubmitDepositCmd{
		UserID:         user.ID,
		Amount:         "5000",
		Currency:       domain.CurrencyBDT,
		SenderName:     "Rahim Uddin",
		ProofReference: "proofs/txn-003.jpg",
		BankAccountID:  bankAccountID,
		ReferenceID:    uuid.NewString(),
	})
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeLimitExceeded, verr.Code)
}

func TestSubmitDepositIdempotentByReference(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)
	ctx := context.Background()

	cmd := SubmitDepositCmd{
		UserID:         user.ID,
		Amount:         "5000",
		Currency:       domain.CurrencyBDT,
		SenderName:     "Rahim Uddin",
		ProofReference: "proofs/txn-004.jpg",
		BankAccountID:  bankAccountID,
		ReferenceID:    uuid.NewString(),
	}

	first, err := svc.SubmitDeposit(ctx, cmd)
	require.NoError(t, err)
	second, err := svc.SubmitDeposit(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int
	err = db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE reference_id = $1", cmd.ReferenceID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentSubmissionsSameReferenceCreateOne(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)
	ctx := context.Background()

	cmd := SubmitDepositCmd{
		UserID:         user.ID,
		Amount:         "5000",
		Currency:       domain.CurrencyBDT,
		SenderName:     "Rahim Uddin",
		ProofReference: "proofs/txn-005.jpg",
		BankAccountID:  bankAccountID,
		ReferenceID:    uuid.NewString(),
	}

	const workers = 8
	results := make(chan *models.Transaction, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := svc.SubmitDeposit(ctx, cmd)
			if err != nil {
				errs <- err
				return
			}
			results <- tx
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("submission failed: %v", err)
	}

	ids := make(map[uuid.UUID]struct{})
	for tx := range results {
		ids[tx.ID] = struct{}{}
	}
	require.Len(t, ids, 1, "every submission should resolve to the same transaction")

	var count int
	err := db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE reference_id = $1", cmd.ReferenceID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitWithdrawalDoesNotCheckBalance(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	creditBalance(t, db, user.ID, domain.CurrencyBDT, 1_000_000_000)
	svc, _ := newRequestService(db)

	// Balance is 1000 but a 3000 withdrawal submission still succeeds;
	// the overdraw is caught at approval.
	tx, err := svc.SubmitWithdrawal(context.Background(), SubmitWithdrawalCmd{
		UserID:        user.ID,
		Amount:        "3000",
		Currency:      domain.CurrencyBDT,
		BankName:      "BRAC Bank",
		AccountNumber: "9876543210",
		AccountHolder: "Rahim Uddin",
		ReferenceID:   uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	assert.Equal(t, int64(1_000_000_000), walletBalance(t, db, user.ID, domain.CurrencyBDT))
}

func TestSubmitExchangeCapturesRate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	rateID := seedRate(t, db, domain.CurrencyBDT, domain.CurrencyINR, "0.9")
	svc, store := newRequestService(db)
	ctx := context.Background()

	tx, err := svc.SubmitExchange(ctx, SubmitExchangeCmd{
		UserID:       user.ID,
		Amount:       "10000",
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		ReferenceID:  uuid.NewString(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxTypeExchange, tx.Type)
	require.NotNil(t, tx.ExchangeRate)
	assert.Equal(t, "0.9", tx.ExchangeRate.String())
	require.NotNil(t, tx.ConvertedMicros)
	assert.Equal(t, int64(9_000_000_000), *tx.ConvertedMicros)

	detail, err := store.Queries().GetExchangeRequestByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, rateID, detail.RateID)
}

func TestSubmitExchangeValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	svc, _ := newRequestService(db)
	ctx := context.Background()

	// Same currency pair.
	_, err := svc.SubmitExchange(ctx, SubmitExchangeCmd{
		UserID:       user.ID,
		Amount:       "10000",
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyBDT,
		ReferenceID:  uuid.NewString(),
	})
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeSameCurrencyPair, verr.Code)

	// No rate published for the pair.
	_, err = svc.SubmitExchange(ctx, SubmitExchangeCmd{
		UserID:       user.ID,
		Amount:       "10000",
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		ReferenceID:  uuid.NewString(),
	})
	verr, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoActiveRate, verr.Code)
}

func TestGetRequestDetail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)

	tx := submitTestDeposit(t, svc, user.ID, bankAccountID, "5000")

	detail, err := svc.GetRequestDetail(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, detail.Transaction.ID)
	require.NotNil(t, detail.Deposit)
	assert.Nil(t, detail.Withdrawal)
	assert.Nil(t, detail.Exchange)
}

func TestCancelPendingRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)
	ctx := context.Background()

	tx := submitTestDeposit(t, svc, user.ID, bankAccountID, "5000")

	cancelled, err := svc.Cancel(ctx, CancelCmd{TransactionID: tx.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCancelled, cancelled.Status)

	// Repeating the cancel is a no-op.
	again, err := svc.Cancel(ctx, CancelCmd{TransactionID: tx.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCancelled, again.Status)
}

func TestCancelDecidedRequestFails(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := seedUser(t, db, domain.RoleUser)
	admin := seedUser(t, db, domain.RoleAdmin)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, store := newRequestService(db)
	reviewSvc := NewReviewService(store)
	ctx := context.Background()

	tx := submitTestDeposit(t, svc, user.ID, bankAccountID, "5000")
	_, err := reviewSvc.Approve(ctx, ApproveCmd{TransactionID: tx.ID, AdminID: admin.ID})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelCmd{TransactionID: tx.ID, UserID: user.ID})
	terr, ok := AsInvalidTransition(err)
	require.True(t, ok, "expected invalid transition, got %v", err)
	assert.Equal(t, domain.TxStatusSuccess, terr.From)
}

func TestCancelOtherUsersRequestNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := seedUser(t, db, domain.RoleUser)
	other := seedUser(t, db, domain.RoleUser)
	bankAccountID := seedBankAccount(t, db, domain.CurrencyBDT, 0, 0)
	svc, _ := newRequestService(db)

	tx := submitTestDeposit(t, svc, owner.ID, bankAccountID, "5000")

	_, err := svc.Cancel(context.Background(), CancelCmd{TransactionID: tx.ID, UserID: other.ID})
	require.ErrorIs(t, err, models.ErrNotFound)
}
