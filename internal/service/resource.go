package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/shenikar/relief_locator/internal/service ResourceService,SearchService,CapacityService,AccountService,AlertService

// ResourceService - реестр ресурсов помощи и их жизненный цикл
type ResourceService interface {
	Submit(ctx context.Context, actor models.Actor, resource *models.Resource) (*models.Resource, error)
	Verify(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Resource, error)
	AssignCoordinator(ctx context.Context, actor models.Actor, id uuid.UUID, coordinatorID uuid.UUID) (*models.Resource, error)
	SetClosed(ctx context.Context, actor models.Actor, id uuid.UUID, closed bool) (*models.Resource, error)
	UpdateDetails(ctx context.Context, actor models.Actor, id uuid.UUID, details models.ResourceDetails) (*models.Resource, error)
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	ListResources(ctx context.Context, actor models.Actor, filter models.ResourceFilter) ([]*models.Resource, error)
	Stats(ctx context.Context, actor models.Actor) (*models.ResourceStats, error)
}

type resourceService struct {
	repo      ResourceRepository
	accounts  AccountRepository
	cache     ResourceCache
	snapshots *SearchCache
	locks     *KeyedMutex
	logger    *logrus.Logger
}

// NewResourceService собирает реестр. cache и snapshots могут быть nil.
func NewResourceService(
	repo ResourceRepository,
	accounts AccountRepository,
	cache ResourceCache,
	snapshots *SearchCache,
	locks *KeyedMutex,
	logger *logrus.Logger,
) ResourceService {
	return &resourceService{
		repo:      repo,
		accounts:  accounts,
		cache:     cache,
		snapshots: snapshots,
		locks:     locks,
		logger:    logger,
	}
}

// Submit проверяет и сохраняет новый неверифицированный ресурс без координатора
func (s *resourceService) Submit(ctx context.Context, actor models.Actor, resource *models.Resource) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "resource",
		"method":   "Submit",
		"actor_id": actor.AccountID,
	})
	log.Info("Attempting to submit a new resource")

	if err := Authorize(actor, ActionSubmitResource, nil); err != nil {
		log.WithError(err).Warn("Submission rejected")
		return nil, err
	}

	candidate := resource.Clone()
	normalizeResource(candidate)
	if err := validateResource(candidate); err != nil {
		log.WithError(err).Warn("Invalid resource submitted")
		return nil, err
	}

	candidate.ID = uuid.Nil
	candidate.Verified = false
	candidate.VerifiedBy = nil
	candidate.CoordinatorID = nil
	candidate.Closed = false
	if candidate.Capacity != nil && candidate.AvailableCapacity == nil {
		candidate.AvailableCapacity = models.IntPtr(*candidate.Capacity)
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		log.WithError(err).Error("Failed to create resource in repository")
		return nil, err
	}

	s.snapshots.Flush()
	log.WithField("resource_id", candidate.ID).Info("Resource submitted successfully")
	return candidate, nil
}

// Verify помечает ресурс верифицированным. Повторный вызов успешен и ничего не меняет.
func (s *resourceService) Verify(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "resource",
		"method":      "Verify",
		"resource_id": id,
		"actor_id":    actor.AccountID,
	})
	log.Info("Attempting to verify resource")

	if err := Authorize(actor, ActionVerifyResource, nil); err != nil {
		log.WithError(err).Warn("Verification rejected")
		return nil, err
	}

	resource, err := s.repo.MarkVerified(ctx, id, actor.AccountID)
	if err != nil {
		logFailure(log, err, "Failed to verify resource")
		return nil, err
	}

	s.refresh(ctx, log, resource)
	log.Info("Resource verified successfully")
	return resource, nil
}

// AssignCoordinator назначает ресурсу координатора
func (s *resourceService) AssignCoordinator(ctx context.Context, actor models.Actor, id uuid.UUID, coordinatorID uuid.UUID) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":        "resource",
		"method":         "AssignCoordinator",
		"resource_id":    id,
		"coordinator_id": coordinatorID,
		"actor_id":       actor.AccountID,
	})
	log.Info("Attempting to assign coordinator")

	if err := Authorize(actor, ActionAssignCoordinator, nil); err != nil {
		log.WithError(err).Warn("Assignment rejected")
		return nil, err
	}

	coordinator, err := s.accounts.GetByID(ctx, coordinatorID)
	if err != nil {
		logFailure(log, err, "Failed to load coordinator account")
		return nil, err
	}
	if !coordinator.IsApprovedCoordinator() {
		err := ierr.NewError(fmt.Sprintf("account %s is %s, approved=%t", coordinatorID, coordinator.Role, coordinator.IsApproved)).
			WithHint("Only approved coordinators can be assigned to a resource").
			Mark(ierr.ErrValidation)
		log.WithError(err).Warn("Assignment target is not an approved coordinator")
		return nil, err
	}

	resource, err := s.repo.AssignCoordinator(ctx, id, coordinatorID)
	if err != nil {
		logFailure(log, err, "Failed to assign coordinator")
		return nil, err
	}

	s.refresh(ctx, log, resource)
	log.Info("Coordinator assigned successfully")
	return resource, nil
}

// SetClosed меняет флаг закрытия. Ресурс без свободных мест
// всё равно получает статус full.
func (s *resourceService) SetClosed(ctx context.Context, actor models.Actor, id uuid.UUID, closed bool) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "resource",
		"method":      "SetClosed",
		"resource_id": id,
		"closed":      closed,
		"actor_id":    actor.AccountID,
	})
	log.Info("Attempting to change resource closure")

	if err := Authorize(actor, ActionCloseResource, nil); err != nil {
		log.WithError(err).Warn("Closure change rejected")
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logFailure(log, err, "Failed to load resource")
		return nil, err
	}
	if err := Authorize(actor, ActionCloseResource, current); err != nil {
		log.WithError(err).Warn("Closure change rejected")
		return nil, err
	}

	resource, err := s.repo.SetClosed(ctx, id, closed)
	if err != nil {
		logFailure(log, err, "Failed to change resource closure")
		return nil, err
	}

	s.refresh(ctx, log, resource)
	log.WithField("status", resource.Status()).Info("Resource closure changed successfully")
	return resource, nil
}

// UpdateDetails правит описательные поля ресурса. Права те же, что на закрытие:
// назначенный координатор или администратор.
func (s *resourceService) UpdateDetails(ctx context.Context, actor models.Actor, id uuid.UUID, details models.ResourceDetails) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "resource",
		"method":      "UpdateDetails",
		"resource_id": id,
		"actor_id":    actor.AccountID,
	})
	log.Info("Attempting to update resource details")

	if err := Authorize(actor, ActionEditResource, nil); err != nil {
		log.WithError(err).Warn("Details update rejected")
		return nil, err
	}

	details = normalizeDetails(details)
	if err := validateDetails(details); err != nil {
		log.WithError(err).Warn("Invalid resource details")
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logFailure(log, err, "Failed to load resource")
		return nil, err
	}
	if err := Authorize(actor, ActionEditResource, current); err != nil {
		log.WithError(err).Warn("Details update rejected")
		return nil, err
	}

	resource, err := s.repo.UpdateDetails(ctx, id, details)
	if err != nil {
		logFailure(log, err, "Failed to update resource details")
		return nil, err
	}

	s.refresh(ctx, log, resource)
	log.Info("Resource details updated successfully")
	return resource, nil
}

// GetResource читает через кэш ресурсов
func (s *resourceService) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "resource",
		"method":      "GetResource",
		"resource_id": id,
	})
	log.Info("Fetching resource by ID")

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Failed to read resource from cache")
		} else if cached != nil {
			log.Info("Resource fetched from cache")
			return cached, nil
		}
	}

	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logFailure(log, err, "Failed to get resource from repository")
		return nil, err
	}

	if s.cache != nil {
		// Add не перетирает строку, которую писатель успел положить после нашего чтения
		if err := s.cache.Add(ctx, resource); err != nil {
			log.WithError(err).Warn("Failed to cache resource")
		}
	}

	log.Info("Resource fetched successfully")
	return resource, nil
}

// ListResources: администратор видит всё, координатор свои назначения,
// остальные только верифицированные ресурсы. Поля type, status, region и
// search из filter сужают выборку, область видимости задаётся ролью.
func (s *resourceService) ListResources(ctx context.Context, actor models.Actor, filter models.ResourceFilter) ([]*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "resource",
		"method":   "ListResources",
		"actor_id": actor.AccountID,
		"role":     actor.Role,
	})
	log.Info("Listing resources")

	filter, err := normalizeFilter(filter)
	if err != nil {
		log.WithError(err).Warn("Invalid resource filter")
		return nil, err
	}

	filter.VerifiedOnly = true
	filter.CoordinatorID = nil
	switch {
	case actor.Authenticated() && actor.IsApproved && actor.Role == models.RoleAdmin:
		filter.VerifiedOnly = false
	case actor.Authenticated() && actor.IsApproved && actor.Role == models.RoleCoordinator:
		id := actor.AccountID
		filter.VerifiedOnly = false
		filter.CoordinatorID = &id
	}

	resources, err := s.repo.List(ctx, filter)
	if err != nil {
		logFailure(log, err, "Failed to list resources")
		return nil, err
	}

	log.WithField("count", len(resources)).Info("Resources listed successfully")
	return resources, nil
}

// Stats - сводка по реестру для администраторов
func (s *resourceService) Stats(ctx context.Context, actor models.Actor) (*models.ResourceStats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "resource",
		"method":   "Stats",
		"actor_id": actor.AccountID,
	})

	if err := Authorize(actor, ActionViewStats, nil); err != nil {
		log.WithError(err).Warn("Stats rejected")
		return nil, err
	}

	resources, err := s.repo.List(ctx, models.ResourceFilter{})
	if err != nil {
		logFailure(log, err, "Failed to list resources for stats")
		return nil, err
	}

	stats := &models.ResourceStats{
		Total:    len(resources),
		ByType:   make(map[models.ResourceType]int),
		ByStatus: make(map[models.ResourceStatus]int),
	}
	for _, r := range resources {
		if r.Verified {
			stats.Verified++
		}
		stats.ByType[r.Type]++
		stats.ByStatus[r.Status()]++
	}
	return stats, nil
}

func (s *resourceService) refresh(ctx context.Context, log *logrus.Entry, resource *models.Resource) {
	s.snapshots.Flush()
	refreshCached(ctx, s.cache, log, resource)
}

// refreshCached кладёт в кэш строку, только что записанную в БД.
// Если записать не вышло, ключ удаляется, чтобы не остался старый снимок.
func refreshCached(ctx context.Context, cache ResourceCache, log *logrus.Entry, resource *models.Resource) {
	if cache == nil || resource == nil {
		return
	}
	err := cache.Set(ctx, resource)
	if err == nil {
		return
	}
	log.WithError(err).Warn("Failed to refresh resource cache")
	if err := cache.Invalidate(ctx, resource.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate resource cache")
	}
}

// logFailure пишет ошибки вызывающего как Warn, ошибки инфраструктуры как Error
func logFailure(log *logrus.Entry, err error, msg string) {
	if ierr.IsCallerError(err) {
		log.WithError(err).Warn(msg)
		return
	}
	log.WithError(err).Error(msg)
}

func normalizeResource(r *models.Resource) {
	r.Name = strings.TrimSpace(r.Name)
	r.Region = strings.TrimSpace(r.Region)
	r.Address = strings.TrimSpace(r.Address)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Helpline = strings.TrimSpace(r.Helpline)
	r.Description = strings.TrimSpace(r.Description)
	r.Type = models.ResourceType(strings.ToLower(strings.TrimSpace(string(r.Type))))
}

func validateResource(r *models.Resource) error {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Type == "" {
		missing = append(missing, "type")
	}
	if r.Region == "" {
		missing = append(missing, "region")
	}
	if r.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return ierr.NewError("missing required fields").
			WithHintf("Missing required fields: %s", strings.Join(missing, ", ")).
			WithDetail("fields", missing).
			Mark(ierr.ErrValidation)
	}

	if !r.Type.Valid() {
		return ierr.NewError(fmt.Sprintf("unknown resource type %q", r.Type)).
			WithHintf("Unknown resource type %q", r.Type).
			Mark(ierr.ErrValidation)
	}

	if err := (geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}).Validate(); err != nil {
		return err
	}

	if r.Capacity == nil {
		if !r.Type.CapacityOptional() {
			return ierr.NewError("capacity is required").
				WithHintf("Capacity is required for %s resources", r.Type).
				Mark(ierr.ErrValidation)
		}
		if r.AvailableCapacity != nil {
			return ierr.NewError("available capacity without capacity").
				WithHint("Available capacity requires a total capacity").
				Mark(ierr.ErrValidation)
		}
		return nil
	}

	if *r.Capacity < 0 {
		return ierr.NewError("negative capacity").
			WithHint("Capacity must not be negative").
			Mark(ierr.ErrValidation)
	}
	if r.AvailableCapacity != nil && (*r.AvailableCapacity < 0 || *r.AvailableCapacity > *r.Capacity) {
		return ierr.NewError("available capacity out of range").
			WithHintf("Available capacity must be between 0 and %d", *r.Capacity).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func normalizeFilter(f models.ResourceFilter) (models.ResourceFilter, error) {
	f.Type = models.ResourceType(strings.ToLower(strings.TrimSpace(string(f.Type))))
	f.Status = models.ResourceStatus(strings.ToLower(strings.TrimSpace(string(f.Status))))
	f.Region = strings.TrimSpace(f.Region)
	f.Search = strings.TrimSpace(f.Search)

	if f.Type != "" && !f.Type.Valid() {
		return f, ierr.NewError(fmt.Sprintf("unknown resource type %q", f.Type)).
			WithHintf("Unknown resource type %q", f.Type).
			WithDetail("type", f.Type).
			Mark(ierr.ErrValidation)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, ierr.NewError(fmt.Sprintf("unknown resource status %q", f.Status)).
			WithHintf("Unknown resource status %q", f.Status).
			WithDetail("status", f.Status).
			Mark(ierr.ErrValidation)
	}
	return f, nil
}

func normalizeDetails(d models.ResourceDetails) models.ResourceDetails {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return models.ResourceDetails{
		Name:        trim(d.Name),
		Contact:     trim(d.Contact),
		Description: trim(d.Description),
		Helpline:    trim(d.Helpline),
	}
}

// detailRules повторяют ограничения колонок таблицы resources
var detailRules = []struct {
	field string
	value func(models.ResourceDetails) *string
	tag   string
	hint  string
}{
	{"name", func(d models.ResourceDetails) *string { return d.Name }, "required,max=200", "Name must be 1 to 200 characters"},
	{"contact", func(d models.ResourceDetails) *string { return d.Contact }, "max=100", "Contact must be at most 100 characters"},
	{"description", func(d models.ResourceDetails) *string { return d.Description }, "max=2000", "Description must be at most 2000 characters"},
	{"helpline", func(d models.ResourceDetails) *string { return d.Helpline }, "max=100", "Helpline must be at most 100 characters"},
}

func validateDetails(d models.ResourceDetails) error {
	if d.Empty() {
		return ierr.NewError("empty details update").
			WithHint("Nothing to update: provide name, contact, description or helpline").
			Mark(ierr.ErrValidation)
	}
	for _, rule := range detailRules {
		v := rule.value(d)
		if v == nil {
			continue
		}
		if err := validate.Var(*v, rule.tag); err != nil {
			return ierr.WithError(err).
				WithHint(rule.hint).
				WithDetail("fields", []string{rule.field}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
