package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

type AlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*models.Alert
	now    func() time.Time
}

var _ service.AlertRepository = (*AlertStore)(nil)

func NewAlertStore() *AlertStore {
	return &AlertStore{
		alerts: make(map[uuid.UUID]*models.Alert),
		now:    time.Now,
	}
}

func (s *AlertStore) Create(_ context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *AlertStore) GetByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, alertNotFound(id)
	}
	return cloneAlert(alert), nil
}

func (s *AlertStore) ListActive(_ context.Context, now time.Time) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Alert, 0)
	for _, a := range s.alerts {
		if a.ActiveAt(now) {
			out = append(out, cloneAlert(a))
		}
	}
	return out, nil
}

func (s *AlertStore) Deactivate(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, alertNotFound(id)
	}
	alert.IsActive = false
	return cloneAlert(alert), nil
}

func (s *AlertStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.alerts {
		if a.IsActive && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.IsActive = false
			n++
		}
	}
	return n, nil
}

func cloneAlert(a *models.Alert) *models.Alert {
	c := *a
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	if a.CreatedBy != nil {
		id := *a.CreatedBy
		c.CreatedBy = &id
	}
	return &c
}

func alertNotFound(id uuid.UUID) error {
	return ierr.NewError(fmt.Sprintf("alert %s not found", id)).
		WithHint("Alert not found").
		Mark(ierr.ErrNotFound)
}
