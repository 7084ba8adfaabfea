package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

// ApplyCapacityUpdate выполняет чтение, проверку, запись и аудит в одной
// транзакции под блокировкой строки ресурса
func (r *ResourceRepository) ApplyCapacityUpdate(ctx context.Context, id uuid.UUID, apply service.CapacityMutation) (*models.Resource, *models.CapacityUpdate, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, nil, dbError(err, "failed to begin capacity transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockQuery := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1 FOR UPDATE;`
	current, err := scanResource(tx.QueryRow(ctx, lockQuery, id))
	if err != nil {
		return nil, nil, resourceError(err, id, "failed to lock resource")
	}

	update, err := apply(current.Clone())
	if err != nil {
		return nil, nil, err
	}

	updateQuery := `
		UPDATE resources SET
			available_capacity = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(tx.QueryRow(ctx, updateQuery, id, update.NewCapacity, update.Timestamp))
	if err != nil {
		return nil, nil, dbError(err, "failed to update available capacity")
	}

	auditQuery := `
		INSERT INTO capacity_updates (id, resource_id, actor_id, previous_capacity, new_capacity, change_log, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	if _, err := tx.Exec(ctx, auditQuery,
		update.ID,
		update.ResourceID,
		update.ActorID,
		update.PreviousCapacity,
		update.NewCapacity,
		update.ChangeLog,
		update.Timestamp,
	); err != nil {
		return nil, nil, dbError(err, "failed to append capacity update")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, dbError(err, "failed to commit capacity update")
	}
	return resource, update, nil
}

// ListCapacityUpdates возвращает последние записи аудита, новые первыми
func (r *ResourceRepository) ListCapacityUpdates(ctx context.Context, resourceID *uuid.UUID, limit int) ([]*models.CapacityUpdate, error) {
	query := `
		SELECT id, resource_id, actor_id, previous_capacity, new_capacity, change_log, created_at
		FROM capacity_updates
		WHERE $1::uuid IS NULL OR resource_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, resourceID, limit)
	if err != nil {
		return nil, dbError(err, "failed to list capacity updates")
	}
	defer rows.Close()

	updates := make([]*models.CapacityUpdate, 0)
	for rows.Next() {
		u := &models.CapacityUpdate{}
		if err := rows.Scan(
			&u.ID,
			&u.ResourceID,
			&u.ActorID,
			&u.PreviousCapacity,
			&u.NewCapacity,
			&u.ChangeLog,
			&u.Timestamp,
		); err != nil {
			return nil, dbError(err, "failed to scan capacity update row")
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "error list iteration")
	}
	return updates, nil
}
