package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShelter(t *testing.T, store *ResourceStore, capacity int) *models.Resource {
	t.Helper()
	r := &models.Resource{
		Name:              "Shelter",
		Type:              models.ResourceTypeShelter,
		Latitude:          12.3,
		Longitude:         76.65,
		Region:            "Mysuru",
		Address:           "1 Main Road",
		Capacity:          models.IntPtr(capacity),
		AvailableCapacity: models.IntPtr(capacity),
	}
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func setAvailable(n int, ts time.Time) func(*models.Resource) (*models.CapacityUpdate, error) {
	return func(current *models.Resource) (*models.CapacityUpdate, error) {
		return &models.CapacityUpdate{
			ID:               uuid.NewString(),
			ResourceID:       current.ID,
			PreviousCapacity: *current.AvailableCapacity,
			NewCapacity:      n,
			Timestamp:        ts,
		}, nil
	}
}

func TestResourceStore_GetByIDReturnsCopies(t *testing.T) {
	store := NewResourceStore(NewAccountStore())
	r := newShelter(t, store, 10)

	got, err := store.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	*got.AvailableCapacity = 0

	again, err := store.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *again.AvailableCapacity)
}

func TestResourceStore_NotFound(t *testing.T) {
	store := NewResourceStore(NewAccountStore())

	_, err := store.GetByID(context.Background(), uuid.New())
	assert.True(t, ierr.IsNotFound(err))

	_, _, err = store.ApplyCapacityUpdate(context.Background(), uuid.New(), setAvailable(1, time.Now()))
	assert.True(t, ierr.IsNotFound(err))
}

func TestResourceStore_ApplyCapacityUpdateAbortsOnError(t *testing.T) {
	store := NewResourceStore(NewAccountStore())
	r := newShelter(t, store, 10)

	_, _, err := store.ApplyCapacityUpdate(context.Background(), r.ID, func(*models.Resource) (*models.CapacityUpdate, error) {
		return nil, ierr.NewError("nope").Mark(ierr.ErrValidation)
	})
	require.Error(t, err)

	updates, err := store.ListCapacityUpdates(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, updates)

	got, err := store.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *got.AvailableCapacity)
}

func TestResourceStore_ListCapacityUpdatesNewestFirst(t *testing.T) {
	store := NewResourceStore(NewAccountStore())
	a := newShelter(t, store, 10)
	b := newShelter(t, store, 10)
	base := time.Now().UTC()

	for i, target := range []*models.Resource{a, b, a} {
		_, _, err := store.ApplyCapacityUpdate(context.Background(), target.ID, setAvailable(9-i, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	all, err := store.ListCapacityUpdates(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 7, all[0].NewCapacity)
	assert.Equal(t, 9, all[2].NewCapacity)

	onlyA, err := store.ListCapacityUpdates(context.Background(), &a.ID, 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, 7, onlyA[0].NewCapacity)
	assert.Equal(t, 9, onlyA[0].PreviousCapacity)
}

func TestResourceStore_AssignCoordinatorGuard(t *testing.T) {
	accounts := NewAccountStore()
	store := NewResourceStore(accounts)
	r := newShelter(t, store, 10)

	coordinator := &models.Account{Username: "coord", Email: "coord@example.com", Role: models.RoleCoordinator}
	require.NoError(t, accounts.Create(context.Background(), coordinator))

	_, err := store.AssignCoordinator(context.Background(), r.ID, coordinator.ID)
	assert.True(t, ierr.IsConflict(err))

	_, err = accounts.UpdateApproval(context.Background(), coordinator.ID, true)
	require.NoError(t, err)

	got, err := store.AssignCoordinator(context.Background(), r.ID, coordinator.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCoordinatedBy(coordinator.ID))
}

func TestResourceStore_ListFilters(t *testing.T) {
	store := NewResourceStore(NewAccountStore())
	full := newShelter(t, store, 0)
	open := newShelter(t, store, 5)

	food := &models.Resource{
		Name:        "Community Kitchen",
		Type:        models.ResourceTypeFood,
		Description: "Hot meals twice a day",
		Region:      "Mandya",
		Address:     "2 Market Street",
	}
	require.NoError(t, store.Create(context.Background(), food))

	byStatus, err := store.List(context.Background(), models.ResourceFilter{Status: models.ResourceStatusFull})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, full.ID, byStatus[0].ID)

	byType, err := store.List(context.Background(), models.ResourceFilter{Type: models.ResourceTypeShelter, Status: models.ResourceStatusOpen})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, open.ID, byType[0].ID)

	byRegion, err := store.List(context.Background(), models.ResourceFilter{Region: "mand"})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, food.ID, byRegion[0].ID)

	bySearch, err := store.List(context.Background(), models.ResourceFilter{Search: "MEALS"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, food.ID, bySearch[0].ID)
}

func TestResourceStore_UpdateDetails(t *testing.T) {
	store := NewResourceStore(NewAccountStore())
	r := newShelter(t, store, 10)
	store.now = func() time.Time { return r.UpdatedAt.Add(time.Minute) }

	contact := "+91 80 1234"
	got, err := store.UpdateDetails(context.Background(), r.ID, models.ResourceDetails{Contact: &contact})
	require.NoError(t, err)
	assert.Equal(t, contact, got.Contact)
	assert.Equal(t, "Shelter", got.Name)
	assert.Equal(t, 10, *got.AvailableCapacity)
	assert.True(t, got.UpdatedAt.After(r.UpdatedAt))

	_, err = store.UpdateDetails(context.Background(), uuid.New(), models.ResourceDetails{Contact: &contact})
	assert.True(t, ierr.IsNotFound(err))
}

func TestAccountStore_RejectsDuplicates(t *testing.T) {
	accounts := NewAccountStore()
	require.NoError(t, accounts.Create(context.Background(), &models.Account{Username: "asha", Email: "asha@example.com"}))

	err := accounts.Create(context.Background(), &models.Account{Username: "ASHA", Email: "other@example.com"})
	assert.True(t, ierr.IsConflict(err))
}

func TestAlertStore_DeactivateExpired(t *testing.T) {
	alerts := NewAlertStore()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, alerts.Create(context.Background(), &models.Alert{Title: "old", IsActive: true, ExpiresAt: &past}))
	require.NoError(t, alerts.Create(context.Background(), &models.Alert{Title: "new", IsActive: true, ExpiresAt: &future}))
	require.NoError(t, alerts.Create(context.Background(), &models.Alert{Title: "open", IsActive: true}))

	n, err := alerts.DeactivateExpired(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := alerts.ListActive(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
