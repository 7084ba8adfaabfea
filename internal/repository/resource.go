package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

const resourceColumns = `
	id,
	name,
	type,
	description,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	region,
	address,
	capacity,
	available_capacity,
	contact,
	helpline,
	image_ref,
	closed,
	verified,
	verified_by,
	coordinator_id,
	created_at,
	updated_at`

type ResourceRepository struct {
	db *pgxpool.Pool
}

var (
	_ service.ResourceRepository = (*ResourceRepository)(nil)
	_ service.CapacityRepository = (*ResourceRepository)(nil)
)

func NewResourceRepository(db *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{
		db: db,
	}
}

// Create создает новую запись о ресурсе в бд
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	query := `
		INSERT INTO resources (
			name, type, description, location, region, address,
			capacity, available_capacity, contact, helpline, image_ref, closed, verified
		)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		resource.Name,
		resource.Type,
		resource.Description,
		resource.Longitude,
		resource.Latitude,
		resource.Region,
		resource.Address,
		resource.Capacity,
		resource.AvailableCapacity,
		resource.Contact,
		resource.Helpline,
		resource.ImageRef,
		resource.Closed,
		resource.Verified,
	).Scan(&resource.ID, &resource.CreatedAt, &resource.UpdatedAt)
	if err != nil {
		return dbError(err, "failed to create resource")
	}
	return nil
}

// GetByID возвращает ресурс по его UUID
func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1;`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, resourceError(err, id, "failed to get resource by id")
	}
	return resource, nil
}

// List возвращает ресурсы по фильтру, новые первыми.
// Статус не хранится, поэтому фильтр по нему повторяет models.DeriveStatus.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]*models.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE ($1 = FALSE OR verified)
			AND ($2::uuid IS NULL OR coordinator_id = $2)
			AND ($3::text = '' OR type = $3::text)
			AND ($4::text = '' OR ` + resourceStatusExpr + ` = $4::text)
			AND ($5::text = '' OR region ILIKE $5::text)
			AND ($6::text = '' OR name ILIKE $6::text OR description ILIKE $6::text)
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query,
		filter.VerifiedOnly,
		filter.CoordinatorID,
		string(filter.Type),
		string(filter.Status),
		containsPattern(filter.Region),
		containsPattern(filter.Search),
	)
	if err != nil {
		return nil, dbError(err, "failed to list resources")
	}
	return collectResources(rows)
}

// FindVerifiedWithin - предварительный отбор по ST_DWithin, точная
// дистанция считается в сервисе
func (r *ResourceRepository) FindVerifiedWithin(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]*models.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE
			verified
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
				$3
			);
	`
	rows, err := r.db.Query(ctx, query, center.Longitude, center.Latitude, radiusKm*1000)
	if err != nil {
		return nil, dbError(err, "failed to find verified resources by location")
	}
	return collectResources(rows)
}

// MarkVerified не перезаписывает verified_by при повторной верификации
func (r *ResourceRepository) MarkVerified(ctx context.Context, id uuid.UUID, verifiedBy uuid.UUID) (*models.Resource, error) {
	query := `
		UPDATE resources SET
			verified = TRUE,
			verified_by = COALESCE(verified_by, $2),
			updated_at = CASE WHEN verified THEN updated_at ELSE NOW() END
		WHERE id = $1
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id, verifiedBy))
	if err != nil {
		return nil, resourceError(err, id, "failed to verify resource")
	}
	return resource, nil
}

// AssignCoordinator пишет только если аккаунт всё ещё одобренный координатор
func (r *ResourceRepository) AssignCoordinator(ctx context.Context, id uuid.UUID, coordinatorID uuid.UUID) (*models.Resource, error) {
	query := `
		UPDATE resources SET
			coordinator_id = $2,
			updated_at = NOW()
		WHERE id = $1
			AND EXISTS (
				SELECT 1 FROM accounts
				WHERE accounts.id = $2 AND accounts.role = 'coordinator' AND accounts.is_approved
			)
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id, coordinatorID))
	if err == nil {
		return resource, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, dbError(err, "failed to assign coordinator")
	}

	// строка не обновлена: либо ресурса нет, либо координатор больше не подходит
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ierr.NewError(fmt.Sprintf("account %s is no longer an approved coordinator", coordinatorID)).
		WithHint("The coordinator changed while assigning, reload and retry").
		Mark(ierr.ErrConflict)
}

func (r *ResourceRepository) SetClosed(ctx context.Context, id uuid.UUID, closed bool) (*models.Resource, error) {
	query := `
		UPDATE resources SET
			closed = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id, closed))
	if err != nil {
		return nil, resourceError(err, id, "failed to update resource closure")
	}
	return resource, nil
}

// UpdateDetails меняет только переданные описательные поля
func (r *ResourceRepository) UpdateDetails(ctx context.Context, id uuid.UUID, details models.ResourceDetails) (*models.Resource, error) {
	query := `
		UPDATE resources SET
			name = COALESCE($2, name),
			contact = COALESCE($3, contact),
			description = COALESCE($4, description),
			helpline = COALESCE($5, helpline),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id,
		details.Name,
		details.Contact,
		details.Description,
		details.Helpline,
	))
	if err != nil {
		return nil, resourceError(err, id, "failed to update resource details")
	}
	return resource, nil
}

// resourceStatusExpr вычисляет статус так же, как models.DeriveStatus
const resourceStatusExpr = `(CASE
		WHEN capacity IS NOT NULL AND available_capacity = 0 THEN 'full'
		WHEN closed THEN 'closed'
		ELSE 'open'
	END)`

// containsPattern строит шаблон ILIKE для поиска подстроки,
// экранируя служебные символы пользовательского ввода
func containsPattern(s string) string {
	if s == "" {
		return ""
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + escaped + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*models.Resource, error) {
	resource := &models.Resource{}
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Type,
		&resource.Description,
		&resource.Latitude,
		&resource.Longitude,
		&resource.Region,
		&resource.Address,
		&resource.Capacity,
		&resource.AvailableCapacity,
		&resource.Contact,
		&resource.Helpline,
		&resource.ImageRef,
		&resource.Closed,
		&resource.Verified,
		&resource.VerifiedBy,
		&resource.CoordinatorID,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return resource, nil
}

func collectResources(rows pgx.Rows) ([]*models.Resource, error) {
	defer rows.Close()

	resources := make([]*models.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan resource row")
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "error list iteration")
	}
	return resources, nil
}

func resourceError(err error, id uuid.UUID, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ierr.NewError(fmt.Sprintf("resource with id %s not found", id)).
			WithHint("Resource not found").
			Mark(ierr.ErrNotFound)
	}
	return dbError(err, msg)
}

// dbError оборачивает ошибку бд и помечает её как ErrDatabase
func dbError(err error, msg string) error {
	return ierr.WithError(fmt.Errorf("%s: %w", msg, err)).
		Mark(ierr.ErrDatabase)
}
