package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shenikar/relief_locator/internal/config"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/metrics"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
)

// prefilterMargin расширяет радиус запроса к хранилищу, чтобы сфероидный
// предфильтр не отбросил ресурс, который оставила бы проверка по гаверсинусу.
const prefilterMargin = 1.01

// Filters сужают поиск рядом. Пустое поле не фильтрует,
// заданные поля объединяются через AND.
type Filters struct {
	Type       models.ResourceType
	Status     models.ResourceStatus
	SearchText string
}

type NearbyQuery struct {
	Center        geo.Coordinate
	MaxDistanceKm float64
	Filters       Filters
}

type NearbyResult struct {
	Resource   *models.Resource
	DistanceKm float64
}

// SearchDefaults подставляются вызывающим для параметров, которые не передали
type SearchDefaults struct {
	MaxDistanceKm float64
	Type          models.ResourceType
	Status        models.ResourceStatus
}

// SearchDefaultsFromConfig: 10 км, любой тип и любой статус,
// если в конфигурации не задано иное.
func SearchDefaultsFromConfig(cfg *config.Config) SearchDefaults {
	d := SearchDefaults{MaxDistanceKm: 10}
	if cfg == nil {
		return d
	}
	if cfg.SearchDefaultMaxDistanceKm > 0 {
		d.MaxDistanceKm = cfg.SearchDefaultMaxDistanceKm
	}
	d.Type = models.ResourceType(strings.ToLower(strings.TrimSpace(cfg.SearchDefaultType)))
	d.Status = models.ResourceStatus(strings.ToLower(strings.TrimSpace(cfg.SearchDefaultStatus)))
	return d
}

// SearchService ищет верифицированные ресурсы вокруг точки
type SearchService interface {
	FindNearby(ctx context.Context, query NearbyQuery) ([]NearbyResult, error)
	Defaults() SearchDefaults
}

type searchService struct {
	repo      ResourceRepository
	snapshots *SearchCache
	retry     readRetry
	defaults  SearchDefaults
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func NewSearchService(repo ResourceRepository, snapshots *SearchCache, cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) SearchService {
	return &searchService{
		repo:      repo,
		snapshots: snapshots,
		retry:     newReadRetry(cfg),
		defaults:  SearchDefaultsFromConfig(cfg),
		metrics:   m,
		logger:    logger,
	}
}

func (s *searchService) Defaults() SearchDefaults {
	return s.defaults
}

// FindNearby возвращает верифицированные ресурсы в пределах MaxDistanceKm от
// Center, подходящие под все фильтры, ближние первыми, при равенстве по имени.
func (s *searchService) FindNearby(ctx context.Context, query NearbyQuery) ([]NearbyResult, error) {
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"service":      "search",
		"method":       "FindNearby",
		"latitude":     query.Center.Latitude,
		"longitude":    query.Center.Longitude,
		"max_distance": query.MaxDistanceKm,
		"type":         query.Filters.Type,
		"status":       query.Filters.Status,
	})
	log.Info("Searching nearby resources")

	query, err := normalizeQuery(query)
	if err != nil {
		log.WithError(err).Warn("Invalid nearby query")
		return nil, err
	}

	key := searchKey(query)
	if cached, ok := s.snapshots.get(key); ok {
		s.metrics.ObserveSearch(time.Since(start), len(cached), true)
		log.WithField("count", len(cached)).Info("Nearby search served from snapshot")
		return cached, nil
	}

	var candidates []*models.Resource
	err = s.retry.do(ctx, log, func() error {
		var findErr error
		candidates, findErr = s.repo.FindVerifiedWithin(ctx, query.Center, query.MaxDistanceKm*prefilterMargin)
		return findErr
	})
	if err != nil {
		logFailure(log, err, "Failed to load candidate resources")
		return nil, err
	}

	results := filterNearby(candidates, query)
	s.snapshots.set(key, results)
	s.metrics.ObserveSearch(time.Since(start), len(results), false)

	log.WithField("count", len(results)).Info("Nearby search completed")
	return results, nil
}

func normalizeQuery(q NearbyQuery) (NearbyQuery, error) {
	if err := q.Center.Validate(); err != nil {
		return q, err
	}
	if math.IsNaN(q.MaxDistanceKm) || math.IsInf(q.MaxDistanceKm, 0) || q.MaxDistanceKm <= 0 {
		return q, ierr.NewError(fmt.Sprintf("invalid max distance %v", q.MaxDistanceKm)).
			WithHint("Maximum distance must be a positive number of kilometres").
			Mark(ierr.ErrValidation)
	}

	q.Filters.Type = models.ResourceType(strings.ToLower(strings.TrimSpace(string(q.Filters.Type))))
	q.Filters.Status = models.ResourceStatus(strings.ToLower(strings.TrimSpace(string(q.Filters.Status))))
	q.Filters.SearchText = strings.ToLower(strings.TrimSpace(q.Filters.SearchText))

	if q.Filters.Type != "" && !q.Filters.Type.Valid() {
		return q, ierr.NewError(fmt.Sprintf("unknown type filter %q", q.Filters.Type)).
			WithHintf("Unknown resource type %q", q.Filters.Type).
			Mark(ierr.ErrValidation)
	}
	if q.Filters.Status != "" && !q.Filters.Status.Valid() {
		return q, ierr.NewError(fmt.Sprintf("unknown status filter %q", q.Filters.Status)).
			WithHintf("Unknown resource status %q", q.Filters.Status).
			Mark(ierr.ErrValidation)
	}
	return q, nil
}

// filterNearby применяет к кандидатам точную проверку расстояния и фильтры.
// Расстояния сравниваются без округления.
func filterNearby(candidates []*models.Resource, q NearbyQuery) []NearbyResult {
	results := lo.FilterMap(candidates, func(r *models.Resource, _ int) (NearbyResult, bool) {
		if r == nil || !r.Verified {
			return NearbyResult{}, false
		}
		if q.Filters.Type != "" && r.Type != q.Filters.Type {
			return NearbyResult{}, false
		}
		if q.Filters.Status != "" && r.Status() != q.Filters.Status {
			return NearbyResult{}, false
		}
		if q.Filters.SearchText != "" &&
			!strings.Contains(strings.ToLower(r.Name), q.Filters.SearchText) &&
			!strings.Contains(strings.ToLower(r.Address), q.Filters.SearchText) {
			return NearbyResult{}, false
		}

		d := geo.DistanceKm(q.Center, geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude})
		if d > q.MaxDistanceKm {
			return NearbyResult{}, false
		}
		return NearbyResult{Resource: r, DistanceKm: d}, true
	})

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		if results[i].Resource.Name != results[j].Resource.Name {
			return results[i].Resource.Name < results[j].Resource.Name
		}
		return results[i].Resource.ID.String() < results[j].Resource.ID.String()
	})
	return results
}
