package service_test

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindNearby_IncludesCloseOpenShelter(t *testing.T) {
	env := newTestEnv(t)
	r := env.submitVerified(t, shelter("Town Hall Shelter", 12.3000, 76.6500, 10))

	results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{
		Center:        geo.Coordinate{Latitude: 12.3051, Longitude: 76.6550},
		MaxDistanceKm: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, r.ID, results[0].Resource.ID)
	assert.InDelta(t, 0.785, results[0].DistanceKm, 0.005)
	assert.Equal(t, models.ResourceStatusOpen, results[0].Resource.Status())
}

func TestFindNearby_ExcludesUnverified(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, shelter("Pending Shelter", 12.3000, 76.6500, 10))

	results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{
		Center:        geo.Coordinate{Latitude: 12.3, Longitude: 76.65},
		MaxDistanceKm: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestFindNearby_FiltersCombineWithAnd(t *testing.T) {
	env := newTestEnv(t)
	hospital := func(name, address string) *models.Resource {
		r := shelter(name, 12.30, 76.65, 20)
		r.Type = models.ResourceTypeHospital
		r.Address = address
		return r
	}
	riverside := env.submitVerified(t, hospital("Riverside Hospital", "12 Temple St"))
	byAddress := env.submitVerified(t, hospital("General Hospital", "4 RIVER Bank Road"))
	env.submitVerified(t, hospital("Hilltop Hospital", "9 Hill Rd"))
	env.submitVerified(t, shelter("River Shelter", 12.30, 76.65, 20))

	results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{
		Center:        geo.Coordinate{Latitude: 12.30, Longitude: 76.65},
		MaxDistanceKm: 5,
		Filters:       service.Filters{Type: models.ResourceTypeHospital, SearchText: "river"},
	})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(results))
	for _, res := range results {
		assert.Equal(t, models.ResourceTypeHospital, res.Resource.Type)
		ids = append(ids, res.Resource.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{riverside.ID, byAddress.ID}, ids)
}

func TestFindNearby_StatusFilterUsesDerivedStatus(t *testing.T) {
	env := newTestEnv(t)
	full := env.submitVerified(t, shelter("Full Shelter", 12.30, 76.65, 5))
	env.submitVerified(t, shelter("Open Shelter", 12.30, 76.65, 5))

	_, err := env.capacitySvc.UpdateCapacity(context.Background(), env.admin, full.ID, 0, "")
	require.NoError(t, err)

	results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{
		Center:        geo.Coordinate{Latitude: 12.30, Longitude: 76.65},
		MaxDistanceKm: 1,
		Filters:       service.Filters{Status: models.ResourceStatusFull},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, full.ID, results[0].Resource.ID)
}

func TestFindNearby_SortedByDistanceThenName(t *testing.T) {
	env := newTestEnv(t)
	env.submitVerified(t, shelter("Zeta", 12.31, 76.65, 5))
	env.submitVerified(t, shelter("Beta", 12.30, 76.65, 5))
	env.submitVerified(t, shelter("Alpha", 12.30, 76.65, 5))

	results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{
		Center:        geo.Coordinate{Latitude: 12.30, Longitude: 76.65},
		MaxDistanceKm: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Alpha", results[0].Resource.Name)
	assert.Equal(t, "Beta", results[1].Resource.Name)
	assert.Equal(t, "Zeta", results[2].Resource.Name)
}

func TestFindNearby_Completeness(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(7))

	verified := make([]*models.Resource, 0)
	for i := 0; i < 150; i++ {
		r := shelter(fmt.Sprintf("R%03d", i), 12.3+rng.Float64()*0.6-0.3, 76.65+rng.Float64()*0.6-0.3, 5)
		if i%5 == 0 {
			env.submit(t, r)
			continue
		}
		verified = append(verified, env.submitVerified(t, r))
	}

	for q := 0; q < 25; q++ {
		center := geo.Coordinate{Latitude: 12.3 + rng.Float64()*0.4 - 0.2, Longitude: 76.65 + rng.Float64()*0.4 - 0.2}
		radius := 1 + rng.Float64()*25

		results, err := env.searchSvc.FindNearby(context.Background(), service.NearbyQuery{Center: center, MaxDistanceKm: radius})
		require.NoError(t, err)

		expected := make(map[uuid.UUID]bool)
		for _, r := range verified {
			if geo.DistanceKm(center, geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}) <= radius {
				expected[r.ID] = true
			}
		}

		require.Len(t, results, len(expected), "query %d", q)
		for i, res := range results {
			assert.True(t, expected[res.Resource.ID])
			assert.LessOrEqual(t, res.DistanceKm, radius)
			if i > 0 {
				assert.LessOrEqual(t, results[i-1].DistanceKm, res.DistanceKm)
			}
		}
	}
}

func TestFindNearby_InvalidQueries(t *testing.T) {
	env := newTestEnv(t)
	center := geo.Coordinate{Latitude: 12.3, Longitude: 76.65}

	tests := []struct {
		name  string
		query service.NearbyQuery
	}{
		{"zero distance", service.NearbyQuery{Center: center, MaxDistanceKm: 0}},
		{"negative distance", service.NearbyQuery{Center: center, MaxDistanceKm: -1}},
		{"bad latitude", service.NearbyQuery{Center: geo.Coordinate{Latitude: 91, Longitude: 0}, MaxDistanceKm: 5}},
		{"unknown type", service.NearbyQuery{Center: center, MaxDistanceKm: 5, Filters: service.Filters{Type: "bakery"}}},
		{"unknown status", service.NearbyQuery{Center: center, MaxDistanceKm: 5, Filters: service.Filters{Status: "busy"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.searchSvc.FindNearby(context.Background(), tt.query)
			assert.True(t, ierr.IsValidation(err), "got %v", err)
		})
	}
}

func TestUpdateCapacity_SequentialUpdatesChainAudit(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.account(t, "coord", models.RoleCoordinator, true)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	env.assign(t, r.ID, coordinator)

	first, err := env.capacitySvc.UpdateCapacity(context.Background(), coordinator, r.ID, 6, "")
	require.NoError(t, err)
	second, err := env.capacitySvc.UpdateCapacity(context.Background(), coordinator, r.ID, 6, "no change")
	require.NoError(t, err)

	assert.Equal(t, 10, first.PreviousCapacity)
	assert.Equal(t, 6, first.NewCapacity)
	assert.Equal(t, models.DefaultChangeLog, first.ChangeLog)
	assert.Equal(t, 6, second.PreviousCapacity)
	assert.Equal(t, 6, second.NewCapacity)

	records, err := env.capacitySvc.ListRecent(context.Background(), &r.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)

	current, err := env.resourceSvc.GetResource(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, *current.AvailableCapacity)
}

func TestUpdateCapacity_UnassignedCoordinatorDenied(t *testing.T) {
	env := newTestEnv(t)
	coordinatorA := env.account(t, "coord-a", models.RoleCoordinator, true)
	coordinatorB := env.account(t, "coord-b", models.RoleCoordinator, true)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	env.assign(t, r.ID, coordinatorB)

	_, err := env.capacitySvc.UpdateCapacity(context.Background(), coordinatorA, r.ID, 3, "")
	require.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))

	records, err := env.capacitySvc.ListRecent(context.Background(), &r.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateCapacity_ZeroMeansFull(t *testing.T) {
	env := newTestEnv(t)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 5))

	_, err := env.capacitySvc.UpdateCapacity(context.Background(), env.admin, r.ID, 0, "")
	require.NoError(t, err)

	current, err := env.resourceSvc.GetResource(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusFull, current.Status())

	// full wins over an explicit reopen
	reopened, err := env.resourceSvc.SetClosed(context.Background(), env.admin, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusFull, reopened.Status())
}

func TestUpdateCapacity_RejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 5))

	for _, v := range []int{-1, 6} {
		_, err := env.capacitySvc.UpdateCapacity(context.Background(), env.admin, r.ID, v, "")
		assert.True(t, ierr.IsValidation(err), "value %d", v)
		assert.Equal(t, map[string]any{"capacity": float64(5), "requested": float64(v)}, ierr.Details(err))
	}

	police := shelter("Station", 12.3, 76.65, 0)
	police.Type = models.ResourceTypePolice
	police.Capacity = nil
	police.AvailableCapacity = nil
	station := env.submitVerified(t, police)

	_, err := env.capacitySvc.UpdateCapacity(context.Background(), env.admin, station.ID, 1, "")
	assert.True(t, ierr.IsValidation(err))

	_, err = env.capacitySvc.UpdateCapacity(context.Background(), env.admin, uuid.New(), 1, "")
	assert.True(t, ierr.IsNotFound(err))
}

func TestUpdateCapacity_UnapprovedAndCitizenDenied(t *testing.T) {
	env := newTestEnv(t)
	pending := env.account(t, "pending", models.RoleCoordinator, false)
	citizen := env.account(t, "citizen", models.RoleCitizen, true)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 5))

	for _, actor := range []models.Actor{pending, citizen, models.Anonymous} {
		_, err := env.capacitySvc.UpdateCapacity(context.Background(), actor, r.ID, 1, "")
		assert.True(t, ierr.IsPermissionDenied(err))
	}
}

func TestUpdateCapacity_ConcurrentUpdatesKeepChainConsistent(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.account(t, "coord", models.RoleCoordinator, true)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 100))
	other := env.submitVerified(t, shelter("Other", 12.3, 76.65, 100))
	env.assign(t, r.ID, coordinator)

	const workers = 16
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perWorker; i++ {
				_, err := env.capacitySvc.UpdateCapacity(context.Background(), coordinator, r.ID, rng.Intn(101), "")
				assert.NoError(t, err)
				_, err = env.capacitySvc.UpdateCapacity(context.Background(), env.admin, other.ID, rng.Intn(101), "")
				assert.NoError(t, err)
			}
		}(int64(w))
	}
	wg.Wait()

	records, err := env.capacitySvc.ListRecent(context.Background(), &r.ID, 200)
	require.NoError(t, err)
	require.Len(t, records, workers*perWorker)

	// oldest first
	sort.SliceStable(records, func(i, j int) bool { return records[j].NewerThan(records[i]) })
	assert.Equal(t, 100, records[0].PreviousCapacity)
	for i := 1; i < len(records); i++ {
		assert.Equal(t, records[i-1].NewCapacity, records[i].PreviousCapacity, "record %d", i)
	}

	current, err := env.resourceSvc.GetResource(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, records[len(records)-1].NewCapacity, *current.AvailableCapacity)
}

func TestVerify_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	r := env.submit(t, shelter("Shelter", 12.3, 76.65, 5))
	assert.False(t, r.Verified)

	first, err := env.resourceSvc.Verify(context.Background(), env.admin, r.ID)
	require.NoError(t, err)
	second, err := env.resourceSvc.Verify(context.Background(), env.admin, r.ID)
	require.NoError(t, err)

	assert.True(t, first.Verified)
	assert.True(t, second.Verified)
	require.NotNil(t, second.VerifiedBy)
	assert.Equal(t, env.admin.AccountID, *second.VerifiedBy)
}

func TestVerify_Denied(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.account(t, "coord", models.RoleCoordinator, true)
	r := env.submit(t, shelter("Shelter", 12.3, 76.65, 5))

	_, err := env.resourceSvc.Verify(context.Background(), coordinator, r.ID)
	assert.True(t, ierr.IsPermissionDenied(err))

	_, err = env.resourceSvc.Verify(context.Background(), env.admin, uuid.New())
	assert.True(t, ierr.IsNotFound(err))
}
