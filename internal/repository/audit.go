package repository

import (
	"context"

	"github.com/google/uuid"
)

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, p InsertAuditLogParams) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := q.db.Exec(ctx, query, p.EntityType, p.EntityID, p.ActorID, p.Action, p.PrevState, p.NextState, p.Metadata)
	return err
}
