package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

const alertColumns = `id, title, description, severity, region, is_active, expires_at, created_by, created_at`

type AlertRepository struct {
	db *pgxpool.Pool
}

var _ service.AlertRepository = (*AlertRepository)(nil)

func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (title, description, severity, region, is_active, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		alert.Title,
		alert.Description,
		alert.Severity,
		alert.Region,
		alert.IsActive,
		alert.ExpiresAt,
		alert.CreatedBy,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return dbError(err, "failed to create alert")
	}
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1;`
	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, alertError(err, id, "failed to get alert by id")
	}
	return alert, nil
}

func (r *AlertRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, dbError(err, "failed to list active alerts")
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan alert row")
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "error list iteration")
	}
	return alerts, nil
}

func (r *AlertRepository) Deactivate(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	query := `UPDATE alerts SET is_active = FALSE WHERE id = $1 RETURNING ` + alertColumns + `;`
	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, alertError(err, id, "failed to deactivate alert")
	}
	return alert, nil
}

func (r *AlertRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE alerts SET is_active = FALSE
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, dbError(err, "failed to deactivate expired alerts")
	}
	return cmdTag.RowsAffected(), nil
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	alert := &models.Alert{}
	err := row.Scan(
		&alert.ID,
		&alert.Title,
		&alert.Description,
		&alert.Severity,
		&alert.Region,
		&alert.IsActive,
		&alert.ExpiresAt,
		&alert.CreatedBy,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func alertError(err error, id uuid.UUID, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ierr.NewError(fmt.Sprintf("alert with id %s not found", id)).
			WithHint("Alert not found").
			Mark(ierr.ErrNotFound)
	}
	return dbError(err, msg)
}
