package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/relief_locator/internal/config"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/repository/memory"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		SearchDefaultMaxDistanceKm: 10,
		ReadRetryMaxAttempts:       3,
		ReadRetryInitialInterval:   time.Millisecond,
		CapacityListDefaultLimit:   50,
		CapacityListMaxLimit:       200,
	}
}

// testEnv wires every service on top of the in-memory stores
type testEnv struct {
	accounts  *memory.AccountStore
	resources *memory.ResourceStore
	alerts    *memory.AlertStore

	resourceSvc service.ResourceService
	searchSvc   service.SearchService
	capacitySvc service.CapacityService
	accountSvc  service.AccountService
	alertSvc    service.AlertService

	admin models.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	logger := testLogger()
	locks := service.NewKeyedMutex()

	env := &testEnv{
		accounts: memory.NewAccountStore(),
		alerts:   memory.NewAlertStore(),
	}
	env.resources = memory.NewResourceStore(env.accounts)

	env.resourceSvc = service.NewResourceService(env.resources, env.accounts, nil, nil, locks, logger)
	env.searchSvc = service.NewSearchService(env.resources, nil, cfg, nil, logger)
	env.capacitySvc = service.NewCapacityService(env.resources, nil, nil, locks, nil, cfg, nil, logger)
	env.accountSvc = service.NewAccountService(env.accounts, logger)
	env.alertSvc = service.NewAlertService(env.alerts, cfg, nil, logger)

	env.admin = env.account(t, "admin", models.RoleAdmin, true)
	return env
}

// account stores an account directly and returns its actor
func (e *testEnv) account(t *testing.T, username string, role models.Role, approved bool) models.Actor {
	t.Helper()
	a := &models.Account{
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		IsApproved: approved,
	}
	require.NoError(t, e.accounts.Create(context.Background(), a))
	return models.Actor{AccountID: a.ID, Role: role, IsApproved: approved}
}

func (e *testEnv) submit(t *testing.T, r *models.Resource) *models.Resource {
	t.Helper()
	created, err := e.resourceSvc.Submit(context.Background(), e.admin, r)
	require.NoError(t, err)
	return created
}

func (e *testEnv) submitVerified(t *testing.T, r *models.Resource) *models.Resource {
	t.Helper()
	created := e.submit(t, r)
	verified, err := e.resourceSvc.Verify(context.Background(), e.admin, created.ID)
	require.NoError(t, err)
	return verified
}

func (e *testEnv) assign(t *testing.T, resourceID uuid.UUID, coordinator models.Actor) {
	t.Helper()
	_, err := e.resourceSvc.AssignCoordinator(context.Background(), e.admin, resourceID, coordinator.AccountID)
	require.NoError(t, err)
}

func shelter(name string, lat, lon float64, capacity int) *models.Resource {
	return &models.Resource{
		Name:              name,
		Type:              models.ResourceTypeShelter,
		Latitude:          lat,
		Longitude:         lon,
		Region:            "Mysuru",
		Address:           name + " Road",
		Contact:           "0821-000000",
		Capacity:          models.IntPtr(capacity),
		AvailableCapacity: models.IntPtr(capacity),
	}
}
