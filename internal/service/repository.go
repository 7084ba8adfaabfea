package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/shenikar/relief_locator/internal/service ResourceRepository,CapacityRepository,AccountRepository,AlertRepository,ResourceCache

// CapacityMutation вызывается репозиторием под блокировкой строки ресурса.
// Получает закоммиченное состояние и возвращает запись аудита для сохранения
// или ошибку, чтобы отменить запись.
type CapacityMutation func(current *models.Resource) (*models.CapacityUpdate, error)

// ResourceRepository - хранение записей о ресурсах
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	List(ctx context.Context, filter models.ResourceFilter) ([]*models.Resource, error)
	// FindVerifiedWithin возвращает надмножество верифицированных ресурсов
	// в радиусе radiusKm от center. Точный фильтр по расстоянию за вызывающим.
	FindVerifiedWithin(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]*models.Resource, error)
	MarkVerified(ctx context.Context, id uuid.UUID, verifiedBy uuid.UUID) (*models.Resource, error)
	// AssignCoordinator возвращает ErrConflict, если на момент записи аккаунт
	// уже не одобренный координатор.
	AssignCoordinator(ctx context.Context, id uuid.UUID, coordinatorID uuid.UUID) (*models.Resource, error)
	SetClosed(ctx context.Context, id uuid.UUID, closed bool) (*models.Resource, error)
	// UpdateDetails меняет только поля, заданные в details
	UpdateDetails(ctx context.Context, id uuid.UUID, details models.ResourceDetails) (*models.Resource, error)
}

// CapacityRepository - атомарное изменение вместимости и журнал аудита
type CapacityRepository interface {
	ApplyCapacityUpdate(ctx context.Context, id uuid.UUID, apply CapacityMutation) (*models.Resource, *models.CapacityUpdate, error)
	ListCapacityUpdates(ctx context.Context, resourceID *uuid.UUID, limit int) ([]*models.CapacityUpdate, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Account, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error)
}

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	// ListActive возвращает активные оповещения, не истёкшие к now
	ListActive(ctx context.Context, now time.Time) ([]*models.Alert, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResourceCache - кэш отдельных ресурсов. Get возвращает nil, nil при промахе.
// Писатель после изменения перезаписывает ключ через Set, читатель заполняет
// промах через Add, который не трогает уже существующий ключ. Так прочитанная
// до коммита строка не перетирает свежую.
type ResourceCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	Set(ctx context.Context, resource *models.Resource) error
	Add(ctx context.Context, resource *models.Resource) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}
