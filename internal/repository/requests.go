package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/models"
)

type InsertDepositRequestParams struct {
	ID             uuid.UUID
	TransactionID  uuid.UUID
	SenderName     string
	ProofReference string
	BankAccountID  uuid.UUID
}

func (q *Queries) InsertDepositRequest(ctx context.Context, p InsertDepositRequestParams) error {
	query := `
		INSERT INTO deposit_requests (id, transaction_id, sender_name, proof_reference, bank_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := q.db.Exec(ctx, query, p.ID, p.TransactionID, p.SenderName, p.ProofReference, p.BankAccountID); err != nil {
		return fmt.Errorf("insert deposit request: %w", err)
	}
	return nil
}

type InsertWithdrawalRequestParams struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	BankName      string
	AccountNumber string
	AccountHolder string
}

func (q *Queries) InsertWithdrawalRequest(ctx context.Context, p InsertWithdrawalRequestParams) error {
	query := `
		INSERT INTO withdrawal_requests (id, transaction_id, bank_name, account_number, account_holder, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := q.db.Exec(ctx, query, p.ID, p.TransactionID, p.BankName, p.AccountNumber, p.AccountHolder); err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

type InsertExchangeRequestParams struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	RateID        uuid.UUID
}

func (q *Queries) InsertExchangeRequest(ctx context.Context, p InsertExchangeRequestParams) error {
	query := `
		INSERT INTO exchange_requests (id, transaction_id, rate_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := q.db.Exec(ctx, query, p.ID, p.TransactionID, p.RateID); err != nil {
		return fmt.Errorf("insert exchange request: %w", err)
	}
	return nil
}

func (q *Queries) GetDepositRequestByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.DepositRequest, error) {
	r := &models.DepositRequest{}
	query := `SELECT id, transaction_id, sender_name, proof_reference, bank_account_id, created_at
		FROM deposit_requests WHERE transaction_id = $1`
	err := q.db.QueryRow(ctx, query, transactionID).
		Scan(&r.ID, &r.TransactionID, &r.SenderName, &r.ProofReference, &r.BankAccountID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) GetWithdrawalRequestByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.WithdrawalRequest, error) {
	r := &models.WithdrawalRequest{}
	query := `SELECT id, transaction_id, bank_name, account_number, account_holder, created_at
		FROM withdrawal_requests WHERE transaction_id = $1`
	err := q.db.QueryRow(ctx, query, transactionID).
		Scan(&r.ID, &r.TransactionID, &r.BankName, &r.AccountNumber, &r.AccountHolder, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) GetExchangeRequestByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.ExchangeRequest, error) {
	r := &models.ExchangeRequest{}
	query := `SELECT id, transaction_id, rate_id, created_at
		FROM exchange_requests WHERE transaction_id = $1`
	err := q.db.QueryRow(ctx, query, transactionID).
		Scan(&r.ID, &r.TransactionID, &r.RateID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}
