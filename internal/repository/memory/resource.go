package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

// ResourceStore keeps resources and the capacity ledger in process memory.
// Each resource has its own lock so writers on different resources never
// contend.
type ResourceStore struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]*resourceEntry
	accounts *AccountStore

	auditMu sync.RWMutex
	updates []*models.CapacityUpdate

	now func() time.Time
}

type resourceEntry struct {
	mu       sync.Mutex
	resource *models.Resource
}

var (
	_ service.ResourceRepository = (*ResourceStore)(nil)
	_ service.CapacityRepository = (*ResourceStore)(nil)
)

// NewResourceStore checks coordinator assignments against accounts
func NewResourceStore(accounts *AccountStore) *ResourceStore {
	return &ResourceStore{
		entries:  make(map[uuid.UUID]*resourceEntry),
		accounts: accounts,
		now:      time.Now,
	}
}

func (s *ResourceStore) Create(_ context.Context, resource *models.Resource) error {
	if resource.ID == uuid.Nil {
		resource.ID = uuid.New()
	}
	now := s.now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[resource.ID]; exists {
		return ierr.NewError(fmt.Sprintf("resource %s already exists", resource.ID)).
			Mark(ierr.ErrConflict)
	}
	s.entries[resource.ID] = &resourceEntry{resource: resource.Clone()}
	return nil
}

func (s *ResourceStore) GetByID(_ context.Context, id uuid.UUID) (*models.Resource, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.resource.Clone(), nil
}

func (s *ResourceStore) List(_ context.Context, filter models.ResourceFilter) ([]*models.Resource, error) {
	out := make([]*models.Resource, 0)
	for _, r := range s.snapshot() {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindVerifiedWithin returns every verified resource; the caller applies
// the exact distance check.
func (s *ResourceStore) FindVerifiedWithin(_ context.Context, _ geo.Coordinate, _ float64) ([]*models.Resource, error) {
	out := make([]*models.Resource, 0)
	for _, r := range s.snapshot() {
		if r.Verified {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ResourceStore) MarkVerified(_ context.Context, id uuid.UUID, verifiedBy uuid.UUID) (*models.Resource, error) {
	return s.mutate(id, func(r *models.Resource) error {
		if r.Verified {
			return nil
		}
		by := verifiedBy
		r.Verified = true
		r.VerifiedBy = &by
		r.UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *ResourceStore) AssignCoordinator(_ context.Context, id uuid.UUID, coordinatorID uuid.UUID) (*models.Resource, error) {
	return s.mutate(id, func(r *models.Resource) error {
		if s.accounts == nil || !s.accounts.isApprovedCoordinator(coordinatorID) {
			return ierr.NewError(fmt.Sprintf("account %s is no longer an approved coordinator", coordinatorID)).
				WithHint("The coordinator changed while assigning, reload and retry").
				Mark(ierr.ErrConflict)
		}
		c := coordinatorID
		r.CoordinatorID = &c
		r.UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *ResourceStore) SetClosed(_ context.Context, id uuid.UUID, closed bool) (*models.Resource, error) {
	return s.mutate(id, func(r *models.Resource) error {
		r.Closed = closed
		r.UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *ResourceStore) UpdateDetails(_ context.Context, id uuid.UUID, details models.ResourceDetails) (*models.Resource, error) {
	return s.mutate(id, func(r *models.Resource) error {
		details.ApplyTo(r)
		r.UpdatedAt = s.now().UTC()
		return nil
	})
}

// ApplyCapacityUpdate runs apply under the resource lock, then writes the
// new available capacity and appends the audit record before releasing it.
func (s *ResourceStore) ApplyCapacityUpdate(_ context.Context, id uuid.UUID, apply service.CapacityMutation) (*models.Resource, *models.CapacityUpdate, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	update, err := apply(entry.resource.Clone())
	if err != nil {
		return nil, nil, err
	}

	next := entry.resource.Clone()
	next.AvailableCapacity = models.IntPtr(update.NewCapacity)
	next.UpdatedAt = update.Timestamp
	entry.resource = next

	stored := *update
	s.auditMu.Lock()
	s.updates = append(s.updates, &stored)
	s.auditMu.Unlock()

	return next.Clone(), update, nil
}

func (s *ResourceStore) ListCapacityUpdates(_ context.Context, resourceID *uuid.UUID, limit int) ([]*models.CapacityUpdate, error) {
	s.auditMu.RLock()
	out := make([]*models.CapacityUpdate, 0)
	for _, u := range s.updates {
		if resourceID != nil && u.ResourceID != *resourceID {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	s.auditMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].NewerThan(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ResourceStore) entry(id uuid.UUID) (*resourceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ierr.NewError(fmt.Sprintf("resource %s not found", id)).
			WithHint("Resource not found").
			Mark(ierr.ErrNotFound)
	}
	return entry, nil
}

func (s *ResourceStore) mutate(id uuid.UUID, fn func(*models.Resource) error) (*models.Resource, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.resource.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	entry.resource = next
	return next.Clone(), nil
}

// snapshot copies every resource, each read under its own lock
func (s *ResourceStore) snapshot() []*models.Resource {
	s.mu.RLock()
	entries := make([]*resourceEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Resource, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.resource.Clone())
		e.mu.Unlock()
	}
	return out
}
