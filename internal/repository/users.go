package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remitbd/remit-core/internal/models"
)

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, email, role, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`
	if err := q.db.QueryRow(ctx, query, user.ID, user.Username, user.Email, user.Role).Scan(&user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, role, created_at FROM users WHERE id = $1`
	err := q.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
