package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		resource Resource
		want     ResourceStatus
	}{
		{"open with slots", Resource{Capacity: IntPtr(10), AvailableCapacity: IntPtr(4)}, ResourceStatusOpen},
		{"full when exhausted", Resource{Capacity: IntPtr(5), AvailableCapacity: IntPtr(0)}, ResourceStatusFull},
		{"full wins over closed", Resource{Capacity: IntPtr(5), AvailableCapacity: IntPtr(0), Closed: true}, ResourceStatusFull},
		{"closed with slots", Resource{Capacity: IntPtr(5), AvailableCapacity: IntPtr(2), Closed: true}, ResourceStatusClosed},
		{"untracked open", Resource{Type: ResourceTypePolice}, ResourceStatusOpen},
		{"untracked closed", Resource{Type: ResourceTypeFire, Closed: true}, ResourceStatusClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(&tc.resource))
		})
	}
}

func TestResourceClone(t *testing.T) {
	coord := uuid.New()
	r := &Resource{ID: uuid.New(), Capacity: IntPtr(3), AvailableCapacity: IntPtr(3), CoordinatorID: &coord}

	c := r.Clone()
	*c.AvailableCapacity = 1
	*c.CoordinatorID = uuid.New()

	assert.Equal(t, 3, *r.AvailableCapacity)
	assert.Equal(t, coord, *r.CoordinatorID)
	assert.True(t, r.IsCoordinatedBy(coord))
}

func TestResourceFilterMatch(t *testing.T) {
	coord := uuid.New()
	r := &Resource{
		Name:              "Lakeside Relief Camp",
		Type:              ResourceTypeShelter,
		Description:       "Blankets and hot meals",
		Region:            "Mysuru North",
		Capacity:          IntPtr(10),
		AvailableCapacity: IntPtr(0),
		Verified:          true,
		CoordinatorID:     &coord,
	}
	other := uuid.New()

	cases := []struct {
		name   string
		filter ResourceFilter
		want   bool
	}{
		{"empty", ResourceFilter{}, true},
		{"type", ResourceFilter{Type: ResourceTypeShelter}, true},
		{"other type", ResourceFilter{Type: ResourceTypeFood}, false},
		{"derived status", ResourceFilter{Status: ResourceStatusFull}, true},
		{"full is not open", ResourceFilter{Status: ResourceStatusOpen}, false},
		{"region icontains", ResourceFilter{Region: "mysuru"}, true},
		{"region miss", ResourceFilter{Region: "Mandya"}, false},
		{"search name", ResourceFilter{Search: "LAKESIDE"}, true},
		{"search description", ResourceFilter{Search: "hot meal"}, true},
		{"search ignores region", ResourceFilter{Search: "north"}, false},
		{"coordinator", ResourceFilter{CoordinatorID: &coord}, true},
		{"other coordinator", ResourceFilter{CoordinatorID: &other}, false},
		{"combined", ResourceFilter{VerifiedOnly: true, Type: ResourceTypeShelter, Region: "north", Search: "camp"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Match(r))
		})
	}
}

func TestResourceDetailsApply(t *testing.T) {
	r := &Resource{Name: "Old", Contact: "+1", Description: "desc", Helpline: "112"}
	name, helpline := "New", ""

	d := ResourceDetails{Name: &name, Helpline: &helpline}
	assert.False(t, d.Empty())
	d.ApplyTo(r)

	assert.Equal(t, "New", r.Name)
	assert.Equal(t, "+1", r.Contact)
	assert.Equal(t, "desc", r.Description)
	assert.Equal(t, "", r.Helpline)
	assert.True(t, ResourceDetails{}.Empty())
}

func TestAlertActiveAndRegion(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&Alert{IsActive: true}).ActiveAt(now))
	assert.True(t, (&Alert{IsActive: true, ExpiresAt: &future}).ActiveAt(now))
	assert.False(t, (&Alert{IsActive: true, ExpiresAt: &past}).ActiveAt(now))
	assert.False(t, (&Alert{IsActive: false}).ActiveAt(now))

	global := &Alert{}
	regional := &Alert{Region: "Mysuru"}
	assert.True(t, global.MatchesRegion("anything"))
	assert.True(t, regional.MatchesRegion(" mysuru "))
	assert.False(t, regional.MatchesRegion("Bengaluru"))
}

func TestCapacityUpdateOrdering(t *testing.T) {
	ts := time.Now()
	a := &CapacityUpdate{ID: "01HZZ0000000000000000000A1", Timestamp: ts}
	b := &CapacityUpdate{ID: "01HZZ0000000000000000000A2", Timestamp: ts}
	c := &CapacityUpdate{ID: "01HZZ0000000000000000000A0", Timestamp: ts.Add(time.Millisecond)}

	assert.True(t, b.NewerThan(a))
	assert.True(t, c.NewerThan(b))
	assert.False(t, a.NewerThan(c))
}
