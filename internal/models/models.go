package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Wallet holds one balance per (user, currency) pair. Balances change only
// inside the admin approval transaction, never at submission time.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Currency      string    `json:"currency"`
	BalanceMicros int64     `json:"balance_micros"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Transaction is the single owner of request status. Detail rows carry the
// type-specific fields and reference exactly one transaction.
type Transaction struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	AmountMicros    int64            `json:"amount_micros"`
	Currency        string           `json:"currency"`
	FromCurrency    *string          `json:"from_currency,omitempty"`
	ToCurrency      *string          `json:"to_currency,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate,omitempty"`
	ConvertedMicros *int64           `json:"converted_micros,omitempty"`
	ReferenceID     string           `json:"reference_id"`
	AdminID         *uuid.UUID       `json:"admin_id,omitempty"`
	AdminNotes      *string          `json:"admin_notes,omitempty"`
	RejectReason    *string          `json:"reject_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
}

type DepositRequest struct {
	ID             uuid.UUID `json:"id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	SenderName     string    `json:"sender_name"`
	ProofReference string    `json:"proof_reference"`
	BankAccountID  uuid.UUID `json:"bank_account_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type WithdrawalRequest struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountHolder string    `json:"account_holder"`
	CreatedAt     time.Time `json:"created_at"`
}

type ExchangeRequest struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	RateID        uuid.UUID `json:"rate_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdminBankAccount is the destination account shown to users for manual
// deposits. Soft-deleted via IsActive.
type AdminBankAccount struct {
	ID                 uuid.UUID `json:"id"`
	BankName           string    `json:"bank_name"`
	AccountName        string    `json:"account_name"`
	AccountNumber      string    `json:"account_number"`
	Currency           string    `json:"currency"`
	IsActive           bool      `json:"is_active"`
	DailyLimitMicros   int64     `json:"daily_limit_micros"`
	MonthlyLimitMicros int64     `json:"monthly_limit_micros"`
	CreatedAt          time.Time `json:"created_at"`
}

// ExchangeRate is effective-dated: the active rate with the latest
// effective_at not in the future wins for a currency pair.
type ExchangeRate struct {
	ID           uuid.UUID       `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	IsActive     bool            `json:"is_active"`
	EffectiveAt  time.Time       `json:"effective_at"`
	CreatedAt    time.Time       `json:"created_at"`
}
