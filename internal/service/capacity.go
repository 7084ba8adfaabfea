package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shenikar/relief_locator/internal/config"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/metrics"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/webhook"
	"github.com/sirupsen/logrus"
)

const maxChangeLogLength = 1000

// CapacityService - журнал вместимости: каждое изменение свободных мест
// проходит через него и оставляет ровно одну запись аудита.
type CapacityService interface {
	UpdateCapacity(ctx context.Context, actor models.Actor, resourceID uuid.UUID, newAvailable int, changeLog string) (*models.CapacityUpdate, error)
	ListRecent(ctx context.Context, resourceID *uuid.UUID, limit int) ([]*models.CapacityUpdate, error)
}

type capacityService struct {
	repo         CapacityRepository
	cache        ResourceCache
	snapshots    *SearchCache
	locks        *KeyedMutex
	publisher    webhook.WebhookPublisher
	metrics      *metrics.Metrics
	retry        readRetry
	defaultLimit int
	maxLimit     int
	logger       *logrus.Logger
	now          func() time.Time
	ids          *idGenerator
}

func NewCapacityService(
	repo CapacityRepository,
	cache ResourceCache,
	snapshots *SearchCache,
	locks *KeyedMutex,
	publisher webhook.WebhookPublisher,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *logrus.Logger,
) CapacityService {
	if publisher == nil {
		publisher = webhook.NoopPublisher{}
	}
	s := &capacityService{
		repo:         repo,
		cache:        cache,
		snapshots:    snapshots,
		locks:        locks,
		publisher:    publisher,
		metrics:      m,
		retry:        newReadRetry(cfg),
		defaultLimit: 50,
		maxLimit:     200,
		logger:       logger,
		now:          time.Now,
		ids:          newIDGenerator(),
	}
	if cfg != nil && cfg.CapacityListDefaultLimit > 0 {
		s.defaultLimit = cfg.CapacityListDefaultLimit
	}
	if cfg != nil && cfg.CapacityListMaxLimit >= s.defaultLimit {
		s.maxLimit = cfg.CapacityListMaxLimit
	}
	return s
}

// UpdateCapacity задаёт свободные места ресурса. Чтение прежнего значения,
// запись и добавление аудита идут под блокировкой ресурса, поэтому пары
// previous/new выстраиваются в порядке коммита. Не повторяется.
func (s *capacityService) UpdateCapacity(ctx context.Context, actor models.Actor, resourceID uuid.UUID, newAvailable int, changeLog string) (*models.CapacityUpdate, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":       "capacity",
		"method":        "UpdateCapacity",
		"resource_id":   resourceID,
		"actor_id":      actor.AccountID,
		"new_available": newAvailable,
	})
	log.Info("Attempting to update capacity")

	update, resource, err := s.updateCapacity(ctx, actor, resourceID, newAvailable, changeLog)
	if err != nil {
		s.metrics.CapacityUpdate(ierr.Code(err))
		logFailure(log, err, "Capacity update rejected")
		return nil, err
	}
	s.metrics.CapacityUpdate("ok")

	s.snapshots.Flush()
	refreshCached(ctx, s.cache, log, resource)
	if err := s.publisher.Publish(ctx, webhook.NewCapacityEvent(resource, update)); err != nil {
		log.WithError(err).Error("Failed to publish capacity webhook event")
	}

	log.WithFields(logrus.Fields{
		"update_id":         update.ID,
		"previous_capacity": update.PreviousCapacity,
		"status":            resource.Status(),
	}).Info("Capacity updated successfully")
	return update, nil
}

func (s *capacityService) updateCapacity(ctx context.Context, actor models.Actor, resourceID uuid.UUID, newAvailable int, changeLog string) (*models.CapacityUpdate, *models.Resource, error) {
	if err := Authorize(actor, ActionUpdateCapacity, nil); err != nil {
		return nil, nil, err
	}

	changeLog = strings.TrimSpace(changeLog)
	if changeLog == "" {
		changeLog = models.DefaultChangeLog
	}
	if len(changeLog) > maxChangeLogLength {
		return nil, nil, ierr.NewError("change log too long").
			WithHintf("Change log must be at most %d characters", maxChangeLogLength).
			Mark(ierr.ErrValidation)
	}

	unlock := s.locks.Lock(resourceID)
	defer unlock()

	requestedAt := s.now().UTC()
	resource, update, err := s.repo.ApplyCapacityUpdate(ctx, resourceID, func(current *models.Resource) (*models.CapacityUpdate, error) {
		if err := Authorize(actor, ActionUpdateCapacity, current); err != nil {
			return nil, err
		}
		if !current.CapacityTracked() {
			return nil, ierr.NewError(fmt.Sprintf("resource %s does not track capacity", current.ID)).
				WithHint("This resource does not track capacity").
				Mark(ierr.ErrValidation)
		}
		if newAvailable < 0 || newAvailable > *current.Capacity {
			return nil, ierr.NewError(fmt.Sprintf("available capacity %d outside [0, %d]", newAvailable, *current.Capacity)).
				WithHintf("Available capacity must be between 0 and %d", *current.Capacity).
				WithDetails(map[string]any{"capacity": *current.Capacity, "requested": newAvailable}).
				Mark(ierr.ErrValidation)
		}

		previous := 0
		if current.AvailableCapacity != nil {
			previous = *current.AvailableCapacity
		}

		// audit timestamps never go backwards for a resource
		ts := requestedAt
		if ts.Before(current.UpdatedAt) {
			ts = current.UpdatedAt.UTC()
		}

		return &models.CapacityUpdate{
			ID:               s.ids.next(ts),
			ResourceID:       current.ID,
			ActorID:          actor.AccountID,
			PreviousCapacity: previous,
			NewCapacity:      newAvailable,
			ChangeLog:        changeLog,
			Timestamp:        ts,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return update, resource, nil
}

// ListRecent возвращает записи аудита, новые первыми, при необходимости для
// одного ресурса. Неположительный limit заменяется значением по умолчанию, большой урезается.
func (s *capacityService) ListRecent(ctx context.Context, resourceID *uuid.UUID, limit int) ([]*models.CapacityUpdate, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "capacity",
		"method":  "ListRecent",
		"limit":   limit,
	})
	if resourceID != nil {
		log = log.WithField("resource_id", *resourceID)
	}
	log.Info("Listing capacity updates")

	var updates []*models.CapacityUpdate
	err := s.retry.do(ctx, log, func() error {
		var listErr error
		updates, listErr = s.repo.ListCapacityUpdates(ctx, resourceID, limit)
		return listErr
	})
	if err != nil {
		logFailure(log, err, "Failed to list capacity updates")
		return nil, err
	}

	log.WithField("count", len(updates)).Info("Capacity updates listed successfully")
	return updates, nil
}

// idGenerator выдаёт ULID с меткой времени записи аудита
type idGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGenerator) next(ts time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), g.entropy).String()
}
