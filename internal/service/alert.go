package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shenikar/relief_locator/internal/config"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/metrics"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
)

// AlertService - чтение региональных оповещений и их администрирование
type AlertService interface {
	ActiveAlerts(ctx context.Context, region string) ([]*models.Alert, error)
	CreateAlert(ctx context.Context, actor models.Actor, alert *models.Alert) (*models.Alert, error)
	DeactivateAlert(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Alert, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type alertService struct {
	repo    AlertRepository
	retry   readRetry
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAlertService(repo AlertRepository, cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) AlertService {
	return &alertService{
		repo:    repo,
		retry:   newReadRetry(cfg),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// ActiveAlerts возвращает активные неистёкшие оповещения, глобальные или
// для region, новые первыми. Пустой region возвращает все активные.
func (s *alertService) ActiveAlerts(ctx context.Context, region string) ([]*models.Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "alert",
		"method":  "ActiveAlerts",
		"region":  region,
	})
	log.Info("Listing active alerts")

	now := s.now()
	var alerts []*models.Alert
	err := s.retry.do(ctx, log, func() error {
		var listErr error
		alerts, listErr = s.repo.ListActive(ctx, now)
		return listErr
	})
	if err != nil {
		logFailure(log, err, "Failed to list active alerts")
		return nil, err
	}

	region = strings.TrimSpace(region)
	alerts = lo.Filter(alerts, func(a *models.Alert, _ int) bool {
		return a.ActiveAt(now) && (region == "" || a.MatchesRegion(region))
	})
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	log.WithField("count", len(alerts)).Info("Active alerts listed successfully")
	return alerts, nil
}

func (s *alertService) CreateAlert(ctx context.Context, actor models.Actor, alert *models.Alert) (*models.Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "alert",
		"method":   "CreateAlert",
		"actor_id": actor.AccountID,
	})
	log.Info("Attempting to create alert")

	if err := Authorize(actor, ActionManageAlerts, nil); err != nil {
		log.WithError(err).Warn("Alert creation rejected")
		return nil, err
	}

	candidate := *alert
	candidate.Title = strings.TrimSpace(candidate.Title)
	candidate.Description = strings.TrimSpace(candidate.Description)
	candidate.Region = strings.TrimSpace(candidate.Region)
	if candidate.Severity == "" {
		candidate.Severity = models.SeverityMedium
	}

	if candidate.Title == "" || candidate.Description == "" {
		err := ierr.NewError("missing required fields").
			WithHint("Title and description are required").
			Mark(ierr.ErrValidation)
		log.WithError(err).Warn("Invalid alert")
		return nil, err
	}
	if !candidate.Severity.Valid() {
		err := ierr.NewError("unknown severity").
			WithHintf("Unknown severity %q", candidate.Severity).
			Mark(ierr.ErrValidation)
		log.WithError(err).Warn("Invalid alert")
		return nil, err
	}
	if candidate.ExpiresAt != nil && !candidate.ExpiresAt.After(s.now()) {
		err := ierr.NewError("alert already expired").
			WithHint("Expiry must be in the future").
			Mark(ierr.ErrValidation)
		log.WithError(err).Warn("Invalid alert")
		return nil, err
	}

	createdBy := actor.AccountID
	candidate.ID = uuid.Nil
	candidate.IsActive = true
	candidate.CreatedBy = &createdBy

	if err := s.repo.Create(ctx, &candidate); err != nil {
		logFailure(log, err, "Failed to create alert in repository")
		return nil, err
	}

	log.WithField("alert_id", candidate.ID).Info("Alert created successfully")
	return &candidate, nil
}

func (s *alertService) DeactivateAlert(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "alert",
		"method":   "DeactivateAlert",
		"alert_id": id,
		"actor_id": actor.AccountID,
	})
	log.Info("Attempting to deactivate alert")

	if err := Authorize(actor, ActionManageAlerts, nil); err != nil {
		log.WithError(err).Warn("Alert deactivation rejected")
		return nil, err
	}

	alert, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		logFailure(log, err, "Failed to deactivate alert")
		return nil, err
	}

	log.Info("Alert deactivated successfully")
	return alert, nil
}

// SweepExpired записывает в хранилище неявную деактивацию истёкших оповещений
func (s *alertService) SweepExpired(ctx context.Context) (int64, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "alert",
		"method":  "SweepExpired",
	})

	n, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("Failed to deactivate expired alerts")
		return 0, err
	}

	s.metrics.AlertsExpired(n)
	if n > 0 {
		log.WithField("count", n).Info("Expired alerts deactivated")
	}
	return n, nil
}
