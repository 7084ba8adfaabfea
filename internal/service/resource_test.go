package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CreatesUnverifiedResource(t *testing.T) {
	env := newTestEnv(t)
	citizen := env.account(t, "citizen", models.RoleCitizen, true)

	input := shelter("  Community Hall ", 12.3, 76.65, 40)
	input.AvailableCapacity = nil
	input.Verified = true
	coordinator := uuid.New()
	input.CoordinatorID = &coordinator

	created, err := env.resourceSvc.Submit(context.Background(), citizen, input)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Community Hall", created.Name)
	assert.False(t, created.Verified)
	assert.Nil(t, created.CoordinatorID)
	require.NotNil(t, created.AvailableCapacity)
	assert.Equal(t, 40, *created.AvailableCapacity)
	assert.Equal(t, models.ResourceStatusOpen, created.Status())

	// input is left untouched
	assert.True(t, input.Verified)
}

func TestSubmit_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *models.Resource)
	}{
		{"missing name", func(r *models.Resource) { r.Name = " " }},
		{"missing region", func(r *models.Resource) { r.Region = "" }},
		{"missing address", func(r *models.Resource) { r.Address = "" }},
		{"unknown type", func(r *models.Resource) { r.Type = "bakery" }},
		{"latitude out of range", func(r *models.Resource) { r.Latitude = 90.5 }},
		{"longitude out of range", func(r *models.Resource) { r.Longitude = -180.1 }},
		{"negative capacity", func(r *models.Resource) { r.Capacity = models.IntPtr(-1); r.AvailableCapacity = nil }},
		{"available above capacity", func(r *models.Resource) { r.AvailableCapacity = models.IntPtr(11) }},
		{"shelter without capacity", func(r *models.Resource) { r.Capacity = nil; r.AvailableCapacity = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := shelter("Shelter", 12.3, 76.65, 10)
			tt.mutate(r)
			_, err := env.resourceSvc.Submit(context.Background(), env.admin, r)
			assert.True(t, ierr.IsValidation(err), "got %v", err)
		})
	}
}

func TestSubmit_PoliceWithoutCapacity(t *testing.T) {
	env := newTestEnv(t)
	r := shelter("Central Station", 12.3, 76.65, 0)
	r.Type = models.ResourceTypePolice
	r.Capacity = nil
	r.AvailableCapacity = nil

	created, err := env.resourceSvc.Submit(context.Background(), env.admin, r)
	require.NoError(t, err)
	assert.False(t, created.CapacityTracked())
	assert.Equal(t, models.ResourceStatusOpen, created.Status())
}

func TestSubmit_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.resourceSvc.Submit(context.Background(), models.Anonymous, shelter("Shelter", 12.3, 76.65, 10))
	assert.True(t, ierr.IsPermissionDenied(err))
}

func TestAssignCoordinator_Rules(t *testing.T) {
	env := newTestEnv(t)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	approved := env.account(t, "coord", models.RoleCoordinator, true)
	pending := env.account(t, "pending", models.RoleCoordinator, false)
	citizen := env.account(t, "citizen", models.RoleCitizen, true)

	_, err := env.resourceSvc.AssignCoordinator(context.Background(), approved, r.ID, approved.AccountID)
	assert.True(t, ierr.IsPermissionDenied(err))

	_, err = env.resourceSvc.AssignCoordinator(context.Background(), env.admin, r.ID, pending.AccountID)
	assert.True(t, ierr.IsValidation(err))

	_, err = env.resourceSvc.AssignCoordinator(context.Background(), env.admin, r.ID, citizen.AccountID)
	assert.True(t, ierr.IsValidation(err))

	_, err = env.resourceSvc.AssignCoordinator(context.Background(), env.admin, r.ID, uuid.New())
	assert.True(t, ierr.IsNotFound(err))

	_, err = env.resourceSvc.AssignCoordinator(context.Background(), env.admin, uuid.New(), approved.AccountID)
	assert.True(t, ierr.IsNotFound(err))

	updated, err := env.resourceSvc.AssignCoordinator(context.Background(), env.admin, r.ID, approved.AccountID)
	require.NoError(t, err)
	assert.True(t, updated.IsCoordinatedBy(approved.AccountID))
}

func TestSetClosed_OwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	owner := env.account(t, "owner", models.RoleCoordinator, true)
	stranger := env.account(t, "stranger", models.RoleCoordinator, true)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	env.assign(t, r.ID, owner)

	_, err := env.resourceSvc.SetClosed(context.Background(), stranger, r.ID, true)
	assert.True(t, ierr.IsPermissionDenied(err))

	closed, err := env.resourceSvc.SetClosed(context.Background(), owner, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusClosed, closed.Status())

	reopened, err := env.resourceSvc.SetClosed(context.Background(), env.admin, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusOpen, reopened.Status())
}

func TestListResources_ScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	coordinator := env.account(t, "coord", models.RoleCoordinator, true)
	citizen := env.account(t, "citizen", models.RoleCitizen, true)

	owned := env.submitVerified(t, shelter("Owned", 12.3, 76.65, 10))
	env.submitVerified(t, shelter("Other", 12.3, 76.65, 10))
	env.submit(t, shelter("Pending", 12.3, 76.65, 10))
	env.assign(t, owned.ID, coordinator)

	all, err := env.resourceSvc.ListResources(context.Background(), env.admin, models.ResourceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := env.resourceSvc.ListResources(context.Background(), coordinator, models.ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, owned.ID, own[0].ID)

	public, err := env.resourceSvc.ListResources(context.Background(), citizen, models.ResourceFilter{})
	require.NoError(t, err)
	assert.Len(t, public, 2)

	anonymous, err := env.resourceSvc.ListResources(context.Background(), models.Anonymous, models.ResourceFilter{})
	require.NoError(t, err)
	assert.Len(t, anonymous, 2)
}

func TestListResources_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	camp := shelter("Lakeside Camp", 12.3, 76.65, 10)
	camp.Description = "Blankets and hot meals"
	camp = env.submitVerified(t, camp)

	full := shelter("Town Hall", 12.3, 76.65, 3)
	full.Region = "Mandya"
	full = env.submitVerified(t, full)
	_, err := env.capacitySvc.UpdateCapacity(ctx, env.admin, full.ID, 0, "")
	require.NoError(t, err)

	kitchen := shelter("Kitchen", 12.3, 76.65, 0)
	kitchen.Type = models.ResourceTypeFood
	kitchen.Capacity = models.IntPtr(50)
	kitchen.AvailableCapacity = models.IntPtr(50)
	kitchen = env.submitVerified(t, kitchen)

	pending := env.submit(t, shelter("Pending Camp", 12.3, 76.65, 10))

	ids := func(rs []*models.Resource) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		actor  models.Actor
		filter models.ResourceFilter
		want   []uuid.UUID
	}{
		{"type", models.Anonymous, models.ResourceFilter{Type: " FOOD "}, []uuid.UUID{kitchen.ID}},
		{"derived status", models.Anonymous, models.ResourceFilter{Status: models.ResourceStatusFull}, []uuid.UUID{full.ID}},
		{"region icontains", models.Anonymous, models.ResourceFilter{Region: "mand"}, []uuid.UUID{full.ID}},
		{"search description", models.Anonymous, models.ResourceFilter{Search: "hot MEALS"}, []uuid.UUID{camp.ID}},
		{"search respects scope", models.Anonymous, models.ResourceFilter{Search: "camp"}, []uuid.UUID{camp.ID}},
		{"admin sees pending", env.admin, models.ResourceFilter{Search: "camp"}, []uuid.UUID{pending.ID, camp.ID}},
		{"caller cannot widen scope", models.Anonymous, models.ResourceFilter{Search: "pending"}, []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.resourceSvc.ListResources(ctx, tt.actor, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(got))
		})
	}

	_, err = env.resourceSvc.ListResources(ctx, models.Anonymous, models.ResourceFilter{Type: "bakery"})
	assert.True(t, ierr.IsValidation(err))
	_, err = env.resourceSvc.ListResources(ctx, models.Anonymous, models.ResourceFilter{Status: "busy"})
	assert.True(t, ierr.IsValidation(err))
	assert.Equal(t, map[string]any{"status": "busy"}, ierr.Details(err))
}

func TestUpdateDetails_GatedLikeClosure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.account(t, "owner", models.RoleCoordinator, true)
	other := env.account(t, "other", models.RoleCoordinator, true)
	citizen := env.account(t, "citizen", models.RoleCitizen, true)

	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	env.assign(t, r.ID, owner)

	contact := " +91 821 555 0101 "
	patch := models.ResourceDetails{Contact: &contact}

	for _, actor := range []models.Actor{models.Anonymous, citizen, other} {
		_, err := env.resourceSvc.UpdateDetails(ctx, actor, r.ID, patch)
		assert.True(t, ierr.IsPermissionDenied(err), "actor %+v", actor)
	}

	updated, err := env.resourceSvc.UpdateDetails(ctx, owner, r.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "+91 821 555 0101", updated.Contact)
	assert.Equal(t, "Shelter", updated.Name)
	assert.Equal(t, 10, *updated.AvailableCapacity)

	name := "Renamed Shelter"
	updated, err = env.resourceSvc.UpdateDetails(ctx, env.admin, r.ID, models.ResourceDetails{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Shelter", updated.Name)
	assert.Equal(t, "+91 821 555 0101", updated.Contact)

	got, err := env.resourceSvc.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Shelter", got.Name)

	_, err = env.resourceSvc.UpdateDetails(ctx, env.admin, uuid.New(), patch)
	assert.True(t, ierr.IsNotFound(err))
}

func TestUpdateDetails_Validation(t *testing.T) {
	env := newTestEnv(t)
	r := env.submitVerified(t, shelter("Shelter", 12.3, 76.65, 10))
	blank := "   "
	long := strings.Repeat("x", 101)

	tests := []struct {
		name  string
		patch models.ResourceDetails
	}{
		{"empty patch", models.ResourceDetails{}},
		{"blank name", models.ResourceDetails{Name: &blank}},
		{"long helpline", models.ResourceDetails{Helpline: &long}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resourceSvc.UpdateDetails(context.Background(), env.admin, r.ID, tt.patch)
			assert.True(t, ierr.IsValidation(err), "got %v", err)
		})
	}
}

func TestStats_CountsByTypeAndStatus(t *testing.T) {
	env := newTestEnv(t)
	full := env.submitVerified(t, shelter("Full", 12.3, 76.65, 2))
	env.submit(t, shelter("Pending", 12.3, 76.65, 2))
	hospital := shelter("Clinic", 12.3, 76.65, 8)
	hospital.Type = models.ResourceTypeHospital
	env.submitVerified(t, hospital)

	_, err := env.capacitySvc.UpdateCapacity(context.Background(), env.admin, full.ID, 0, "")
	require.NoError(t, err)

	stats, err := env.resourceSvc.Stats(context.Background(), env.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Verified)
	assert.Equal(t, 2, stats.ByType[models.ResourceTypeShelter])
	assert.Equal(t, 1, stats.ByType[models.ResourceTypeHospital])
	assert.Equal(t, 1, stats.ByStatus[models.ResourceStatusFull])
	assert.Equal(t, 2, stats.ByStatus[models.ResourceStatusOpen])

	citizen := env.account(t, "citizen", models.RoleCitizen, true)
	_, err = env.resourceSvc.Stats(context.Background(), citizen)
	assert.True(t, ierr.IsPermissionDenied(err))
}
