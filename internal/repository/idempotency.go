package repository

import (
	"context"
)

type IdempotencyKeyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	query := `
		SELECT idempotency_key, request_hash, method, path,
			COALESCE(response_status, 0), COALESCE(response_body, ''::bytea),
			COALESCE(content_type, ''), in_progress
		FROM idempotency_keys WHERE idempotency_key = $1
	`
	err := q.db.QueryRow(ctx, query, key).Scan(&row.IdempotencyKey, &row.RequestHash,
		&row.Method, &row.Path, &row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, err
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

// ReserveIdempotencyKey claims the key for the current request. Returns
// pgx.ErrNoRows when another request already holds it.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, p ReserveIdempotencyKeyParams) (string, error) {
	query := `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key
	`
	var key string
	err := q.db.QueryRow(ctx, query, p.IdempotencyKey, p.RequestHash, p.Method, p.Path).Scan(&key)
	return key, err
}

type FinalizeIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, p FinalizeIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	query := `
		UPDATE idempotency_keys
		SET response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress
	`
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx, query, p.IdempotencyKey, p.RequestHash,
		p.ResponseStatus, p.ResponseBody, p.ContentType).
		Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
			&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, err
}
