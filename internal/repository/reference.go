package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/shopspring/decimal"
)

const bankAccountColumns = `id, bank_name, account_name, account_number, currency,
	is_active, daily_limit_micros, monthly_limit_micros, created_at`

type InsertBankAccountParams struct {
	ID                 uuid.UUID
	BankName           string
	AccountName        string
	AccountNumber      string
	Currency           string
	DailyLimitMicros   int64
	MonthlyLimitMicros int64
}

func (q *Queries) InsertBankAccount(ctx context.Context, p InsertBankAccountParams) error {
	query := `
		INSERT INTO admin_bank_accounts (id, bank_name, account_name, account_number, currency,
			is_active, daily_limit_micros, monthly_limit_micros, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, NOW())
	`
	_, err := q.db.Exec(ctx, query, p.ID, p.BankName, p.AccountName, p.AccountNumber,
		p.Currency, p.DailyLimitMicros, p.MonthlyLimitMicros)
	if err != nil {
		return fmt.Errorf("insert bank account: %w", err)
	}
	return nil
}

func (q *Queries) GetBankAccount(ctx context.Context, id uuid.UUID) (*models.AdminBankAccount, error) {
	a := &models.AdminBankAccount{}
	query := `SELECT ` + bankAccountColumns + ` FROM admin_bank_accounts WHERE id = $1`
	err := q.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.BankName, &a.AccountName, &a.AccountNumber,
		&a.Currency, &a.IsActive, &a.DailyLimitMicros, &a.MonthlyLimitMicros, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActiveBankAccounts returns active collection accounts, optionally
// filtered by currency. An empty currency lists all of them.
func (q *Queries) ListActiveBankAccounts(ctx context.Context, currency string) ([]models.AdminBankAccount, error) {
	query := `SELECT ` + bankAccountColumns + `
		FROM admin_bank_accounts
		WHERE is_active AND ($1 = '' OR currency = $1)
		ORDER BY bank_name`
	rows, err := q.db.Query(ctx, query, currency)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	var out []models.AdminBankAccount
	for rows.Next() {
		var a models.AdminBankAccount
		err := rows.Scan(&a.ID, &a.BankName, &a.AccountName, &a.AccountNumber,
			&a.Currency, &a.IsActive, &a.DailyLimitMicros, &a.MonthlyLimitMicros, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetBankAccountActive soft-deletes or restores a bank account.
func (q *Queries) SetBankAccountActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE admin_bank_accounts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const rateColumns = `id, from_currency, to_currency, rate, is_active, effective_at, created_at`

type InsertExchangeRateParams struct {
	ID           uuid.UUID
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	EffectiveAt  *string // RFC3339; nil means effective immediately
}

func (q *Queries) InsertExchangeRate(ctx context.Context, p InsertExchangeRateParams) error {
	query := `
		INSERT INTO exchange_rates (id, from_currency, to_currency, rate, is_active, effective_at, created_at)
		VALUES ($1, $2, $3, $4, TRUE, COALESCE($5::timestamptz, NOW()), NOW())
	`
	if _, err := q.db.Exec(ctx, query, p.ID, p.FromCurrency, p.ToCurrency, p.Rate, p.EffectiveAt); err != nil {
		return fmt.Errorf("insert exchange rate: %w", err)
	}
	return nil
}

// GetActiveRate returns the rate in effect right now for the pair: the
// active row with the latest effective_at not in the future.
func (q *Queries) GetActiveRate(ctx context.Context, fromCurrency, toCurrency string) (*models.ExchangeRate, error) {
	r := &models.ExchangeRate{}
	query := `
		SELECT ` + rateColumns + `
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND is_active AND effective_at <= NOW()
		ORDER BY effective_at DESC
		LIMIT 1
	`
	err := q.db.QueryRow(ctx, query, fromCurrency, toCurrency).
		Scan(&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.IsActive, &r.EffectiveAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) GetExchangeRateByID(ctx context.Context, id uuid.UUID) (*models.ExchangeRate, error) {
	r := &models.ExchangeRate{}
	query := `SELECT ` + rateColumns + ` FROM exchange_rates WHERE id = $1`
	err := q.db.QueryRow(ctx, query, id).
		Scan(&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.IsActive, &r.EffectiveAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) ListExchangeRates(ctx context.Context, activeOnly bool) ([]models.ExchangeRate, error) {
	query := `SELECT ` + rateColumns + `
		FROM exchange_rates
		WHERE (NOT $1) OR is_active
		ORDER BY from_currency, to_currency, effective_at DESC`
	rows, err := q.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	defer rows.Close()

	var out []models.ExchangeRate
	for rows.Next() {
		var r models.ExchangeRate
		if err := rows.Scan(&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.IsActive, &r.EffectiveAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) DeactivateExchangeRate(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE exchange_rates SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
