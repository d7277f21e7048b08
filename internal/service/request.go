package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/observability"
	"github.com/remitbd/remit-core/internal/proofstore"
	"github.com/remitbd/remit-core/internal/repository"
)

// RequestService is the submission pipeline: it validates a command and
// creates the PENDING transaction plus its type-specific detail row in one
// database transaction. It never touches wallet balances.
type RequestService struct {
	store     QueryStore
	rates     *RateService
	proofs    proofstore.Store
	audit     *AuditService
	validator *Validator
}

func NewRequestService(store QueryStore, rates *RateService, proofs proofstore.Store) *RequestService {
	return &RequestService{
		store:     store,
		rates:     rates,
		proofs:    proofs,
		audit:     NewAuditService(store),
		validator: NewValidator(),
	}
}

type SubmitDepositCmd struct {
	UserID         uuid.UUID `validate:"required"`
	Amount         string    `validate:"required"`
	Currency       string    `validate:"required"`
	SenderName     string    `validate:"required"`
	ProofReference string    `validate:"required"`
	BankAccountID  uuid.UUID `validate:"required"`
	ReferenceID    string    `validate:"required"`
}

// SubmitDeposit records a manual deposit claim against an admin bank
// account. Funds are credited only when an admin approves the request.
func (s *RequestService) SubmitDeposit(ctx context.Context, cmd SubmitDepositCmd) (*models.Transaction, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}
	amountMicros, err := s.validator.Amount(cmd.Amount, cmd.Currency, domain.MinDeposit(cmd.Currency))
	if err != nil {
		return nil, err
	}
	if err := s.proofs.Verify(ctx, cmd.ProofReference); err != nil {
		return nil, newValidationError(CodeMissingField, "proof_reference", err.Error())
	}

	queries := s.store.Queries()
	bankAccount, err := queries.GetBankAccount(ctx, cmd.BankAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("load bank account: %w", err)
	}
	if !bankAccount.IsActive {
		return nil, newValidationError(CodeInactiveReference, "bank_account_id",
			"the selected bank account is no longer active")
	}
	if bankAccount.Currency != cmd.Currency {
		return nil, newValidationError(CodeUnsupportedCurrency, "currency",
			fmt.Sprintf("bank account accepts %s, not %s", bankAccount.Currency, cmd.Currency))
	}
	if err := s.checkBankAccountLimits(ctx, bankAccount, amountMicros); err != nil {
		return nil, err
	}

	if existing, ok, err := s.findExisting(ctx, cmd.ReferenceID); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	transactionID := uuid.New()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := qtx.EnsureWallet(ctx, cmd.UserID, cmd.Currency); err != nil {
			return err
		}
		if err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:           transactionID,
			UserID:       cmd.UserID,
			Type:         domain.TxTypeDeposit,
			Status:       domain.TxStatusPending,
			AmountMicros: amountMicros,
			Currency:     cmd.Currency,
			ReferenceID:  cmd.ReferenceID,
		}); err != nil {
			return err
		}
		if err := qtx.InsertDepositRequest(ctx, repository.InsertDepositRequestParams{
			ID:             uuid.New(),
			TransactionID:  transactionID,
			SenderName:     cmd.SenderName,
			ProofReference: cmd.ProofReference,
			BankAccountID:  cmd.BankAccountID,
		}); err != nil {
			return err
		}
		metadata, err := json.Marshal(map[string]string{
			"sender_name":     cmd.SenderName,
			"bank_account_id": cmd.BankAccountID.String(),
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		return s.audit.Write(ctx, qtx, "transaction", transactionID, nil, "created", "", domain.TxStatusPending, metadata)
	})
	if err != nil {
		return s.resolveReferenceConflict(ctx, cmd.ReferenceID, err)
	}

	observability.IncrementSubmission(domain.TxTypeDeposit)
	return s.store.Queries().GetTransaction(ctx, transactionID)
}

type SubmitWithdrawalCmd struct {
	UserID        uuid.UUID `validate:"required"`
	Amount        string    `validate:"required"`
	Currency      string    `validate:"required"`
	BankName      string    `validate:"required"`
	AccountNumber string    `validate:"required"`
	AccountHolder string    `validate:"required"`
	ReferenceID   string    `validate:"required"`
}

// SubmitWithdrawal records a withdrawal intent. The balance is not checked
// here: approval debits the wallet and is where overdraws are rejected.
func (s *RequestService) SubmitWithdrawal(ctx context.Context, cmd SubmitWithdrawalCmd) (*models.Transaction, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}
	amountMicros, err := s.validator.Amount(cmd.Amount, cmd.Currency, domain.MinWithdrawal(cmd.Currency))
	if err != nil {
		return nil, err
	}

	if existing, ok, err := s.findExisting(ctx, cmd.ReferenceID); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	transactionID := uuid.New()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := qtx.EnsureWallet(ctx, cmd.UserID, cmd.Currency); err != nil {
			return err
		}
		if err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:           transactionID,
			UserID:       cmd.UserID,
			Type:         domain.TxTypeWithdrawal,
			Status:       domain.TxStatusPending,
			AmountMicros: amountMicros,
			Currency:     cmd.Currency,
			ReferenceID:  cmd.ReferenceID,
		}); err != nil {
			return err
		}
		if err := qtx.InsertWithdrawalRequest(ctx, repository.InsertWithdrawalRequestParams{
			ID:            uuid.New(),
			TransactionID: transactionID,
			BankName:      cmd.BankName,
			AccountNumber: cmd.AccountNumber,
			AccountHolder: cmd.AccountHolder,
		}); err != nil {
			return err
		}
		metadata, err := json.Marshal(map[string]string{
			"bank_name":      cmd.BankName,
			"account_holder": cmd.AccountHolder,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		return s.audit.Write(ctx, qtx, "transaction", transactionID, nil, "created", "", domain.TxStatusPending, metadata)
	})
	if err != nil {
		return s.resolveReferenceConflict(ctx, cmd.ReferenceID, err)
	}

	observability.IncrementSubmission(domain.TxTypeWithdrawal)
	return s.store.Queries().GetTransaction(ctx, transactionID)
}

type SubmitExchangeCmd struct {
	UserID       uuid.UUID `validate:"required"`
	Amount       string    `validate:"required"`
	FromCurrency string    `validate:"required"`
	ToCurrency   string    `validate:"required"`
	ReferenceID  string    `validate:"required"`
}

// SubmitExchange captures the rate in effect right now and records the
// conversion the approval will apply. Approval never re-reads rates.
func (s *RequestService) SubmitExchange(ctx context.Context, cmd SubmitExchangeCmd) (*models.Transaction, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}
	if err := s.validator.CurrencyPair(cmd.FromCurrency, cmd.ToCurrency); err != nil {
		return nil, err
	}
	amountMicros, err := s.validator.Amount(cmd.Amount, cmd.FromCurrency, domain.MinExchange(cmd.FromCurrency))
	if err != nil {
		return nil, err
	}

	rate, err := s.rates.GetActiveRate(ctx, cmd.FromCurrency, cmd.ToCurrency)
	if err != nil {
		if errors.Is(err, ErrNoActiveRate) {
			return nil, newValidationError(CodeNoActiveRate, "to_currency",
				fmt.Sprintf("no active rate for %s -> %s", cmd.FromCurrency, cmd.ToCurrency))
		}
		return nil, err
	}

	if existing, ok, err := s.findExisting(ctx, cmd.ReferenceID); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	converted := domain.NewMoney(amountMicros, cmd.FromCurrency).Convert(cmd.ToCurrency, rate.Rate)
	convertedMicros := converted.Amount
	rateValue := rate.Rate

	transactionID := uuid.New()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := qtx.EnsureWallet(ctx, cmd.UserID, cmd.FromCurrency); err != nil {
			return err
		}
		if err := qtx.EnsureWallet(ctx, cmd.UserID, cmd.ToCurrency); err != nil {
			return err
		}
		if err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:              transactionID,
			UserID:          cmd.UserID,
			Type:            domain.TxTypeExchange,
			Status:          domain.TxStatusPending,
			AmountMicros:    amountMicros,
			Currency:        cmd.FromCurrency,
			FromCurrency:    &cmd.FromCurrency,
			ToCurrency:      &cmd.ToCurrency,
			ExchangeRate:    &rateValue,
			ConvertedMicros: &convertedMicros,
			ReferenceID:     cmd.ReferenceID,
		}); err != nil {
			return err
		}
		if err := qtx.InsertExchangeRequest(ctx, repository.InsertExchangeRequestParams{
			ID:            uuid.New(),
			TransactionID: transactionID,
			RateID:        rate.ID,
		}); err != nil {
			return err
		}
		metadata, err := json.Marshal(map[string]any{
			"rate_id":          rate.ID.String(),
			"rate":             rate.Rate.String(),
			"converted_micros": convertedMicros,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		return s.audit.Write(ctx, qtx, "transaction", transactionID, nil, "created", "", domain.TxStatusPending, metadata)
	})
	if err != nil {
		return s.resolveReferenceConflict(ctx, cmd.ReferenceID, err)
	}

	observability.IncrementSubmission(domain.TxTypeExchange)
	return s.store.Queries().GetTransaction(ctx, transactionID)
}

type CancelCmd struct {
	TransactionID uuid.UUID `validate:"required"`
	UserID        uuid.UUID `validate:"required"`
}

// Cancel lets the submitting user withdraw a request that is still awaiting
// review. Repeating a cancel is a no-op; cancelling a decided request fails
// with InvalidTransitionError.
func (s *RequestService) Cancel(ctx context.Context, cmd CancelCmd) (*models.Transaction, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
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
			return fmt.Errorf("load transaction: %w", err)
		}
		if tx.UserID != cmd.UserID {
			return models.ErrNotFound
		}

		if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, domain.TxStatusCancelled, &cmd.UserID, "cancelled", nil); err != nil {
			return err
		}
		applied = tx.Status != domain.TxStatusCancelled
		result, err = qtx.GetTransaction(ctx, tx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if applied {
		observability.IncrementDecision("cancelled", result.Type)
	}
	return result, nil
}

// findExisting resolves reference_id idempotency: a resubmission returns the
// originally created transaction instead of creating a duplicate.
func (s *RequestService) findExisting(ctx context.Context, referenceID string) (*models.Transaction, bool, error) {
	existing, err := s.store.Queries().GetTransactionByReference(ctx, referenceID)
	if err == nil {
		return existing, true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("check submission idempotency: %w", err)
}

// resolveReferenceConflict handles the race where two submissions with the
// same reference_id pass findExisting concurrently: the loser's insert hits
// the unique constraint, and we return the winner's transaction instead.
func (s *RequestService) resolveReferenceConflict(ctx context.Context, referenceID string, err error) (*models.Transaction, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "transactions_reference_id_key" {
		if existing, ok, ferr := s.findExisting(ctx, referenceID); ferr == nil && ok {
			return existing, nil
		}
	}
	return nil, err
}

func (s *RequestService) checkBankAccountLimits(ctx context.Context, account *models.AdminBankAccount, amountMicros int64) error {
	queries := s.store.Queries()
	if account.DailyLimitMicros > 0 {
		used, err := queries.SumDepositsToBankAccountSince(ctx, account.ID, "1 day")
		if err != nil {
			return err
		}
		if used+amountMicros > account.DailyLimitMicros {
			return newValidationError(CodeLimitExceeded, "amount",
				"daily deposit limit for this bank account would be exceeded")
		}
	}
	if account.MonthlyLimitMicros > 0 {
		used, err := queries.SumDepositsToBankAccountSince(ctx, account.ID, "30 days")
		if err != nil {
			return err
		}
		if used+amountMicros > account.MonthlyLimitMicros {
			return newValidationError(CodeLimitExceeded, "amount",
				"monthly deposit limit for this bank account would be exceeded")
		}
	}
	return nil
}

// RequestDetail bundles a transaction with its type-specific request row.
type RequestDetail struct {
	Transaction *models.Transaction       `json:"transaction"`
	Deposit     *models.DepositRequest    `json:"deposit,omitempty"`
	Withdrawal  *models.WithdrawalRequest `json:"withdrawal,omitempty"`
	Exchange    *models.ExchangeRequest   `json:"exchange,omitempty"`
}

// GetRequestDetail loads a transaction and its detail row.
func (s *RequestService) GetRequestDetail(ctx context.Context, transactionID uuid.UUID) (*RequestDetail, error) {
	queries := s.store.Queries()
	tx, err := queries.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	detail := &RequestDetail{Transaction: tx}
	switch tx.Type {
	case domain.TxTypeDeposit:
		detail.Deposit, err = queries.GetDepositRequestByTransaction(ctx, transactionID)
	case domain.TxTypeWithdrawal:
		detail.Withdrawal, err = queries.GetWithdrawalRequestByTransaction(ctx, transactionID)
	case domain.TxTypeExchange:
		detail.Exchange, err = queries.GetExchangeRequestByTransaction(ctx, transactionID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s has no %s detail row", transactionID, tx.Type)
		}
		return nil, fmt.Errorf("load request detail: %w", err)
	}
	return detail, nil
}
