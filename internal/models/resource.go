package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceTypeHospital ResourceType = "hospital"
	ResourceTypePolice   ResourceType = "police"
	ResourceTypeFire     ResourceType = "fire"
	ResourceTypeShelter  ResourceType = "shelter"
	ResourceTypeFood     ResourceType = "food"
	ResourceTypeWater    ResourceType = "water"
)

var ResourceTypes = []ResourceType{
	ResourceTypeHospital,
	ResourceTypePolice,
	ResourceTypeFire,
	ResourceTypeShelter,
	ResourceTypeFood,
	ResourceTypeWater,
}

func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// CapacityOptional сообщает, можно ли регистрировать ресурс этого типа
// без числа мест.
func (t ResourceType) CapacityOptional() bool {
	return t == ResourceTypePolice || t == ResourceTypeFire
}

type ResourceStatus string

const (
	ResourceStatusOpen   ResourceStatus = "open"
	ResourceStatusClosed ResourceStatus = "closed"
	ResourceStatusFull   ResourceStatus = "full"
)

var ResourceStatuses = []ResourceStatus{ResourceStatusOpen, ResourceStatusClosed, ResourceStatusFull}

func (s ResourceStatus) Valid() bool {
	return s == ResourceStatusOpen || s == ResourceStatusClosed || s == ResourceStatusFull
}

// Resource - пункт помощи. Статус не хранится, см. DeriveStatus.
type Resource struct {
	ID                uuid.UUID    `json:"id"`
	Name              string       `json:"name"`
	Type              ResourceType `json:"type"`
	Description       string       `json:"description"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	Region            string       `json:"region"`
	Address           string       `json:"address"`
	Capacity          *int         `json:"capacity,omitempty"`
	AvailableCapacity *int         `json:"available_capacity,omitempty"`
	Contact           string       `json:"contact"`
	Helpline          string       `json:"helpline,omitempty"`
	ImageRef          string       `json:"image_ref,omitempty"`
	Closed            bool         `json:"closed"`
	Verified          bool         `json:"verified"`
	VerifiedBy        *uuid.UUID   `json:"verified_by,omitempty"`
	CoordinatorID     *uuid.UUID   `json:"coordinator_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (r *Resource) CapacityTracked() bool {
	return r.Capacity != nil
}

func (r *Resource) Status() ResourceStatus {
	return DeriveStatus(r)
}

// IsCoordinatedBy сообщает, назначен ли accountID координатором ресурса.
func (r *Resource) IsCoordinatedBy(accountID uuid.UUID) bool {
	return r.CoordinatorID != nil && *r.CoordinatorID == accountID
}

// DeriveStatus: full, если учитываемые места закончились, иначе closed
// при явном закрытии, иначе open.
func DeriveStatus(r *Resource) ResourceStatus {
	if r.CapacityTracked() && r.AvailableCapacity != nil && *r.AvailableCapacity == 0 {
		return ResourceStatusFull
	}
	if r.Closed {
		return ResourceStatusClosed
	}
	return ResourceStatusOpen
}

// Clone возвращает глубокую копию, которую можно передавать между горутинами.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	c := *r
	c.Capacity = cloneInt(r.Capacity)
	c.AvailableCapacity = cloneInt(r.AvailableCapacity)
	c.VerifiedBy = cloneUUID(r.VerifiedBy)
	c.CoordinatorID = cloneUUID(r.CoordinatorID)
	return &c
}

// ResourceFilter сужает выборку реестра. Пустое поле не фильтрует.
// Region и Search сравниваются как подстроки без учёта регистра.
type ResourceFilter struct {
	VerifiedOnly  bool
	CoordinatorID *uuid.UUID
	Type          ResourceType
	Status        ResourceStatus
	Region        string
	// Search ищется в названии и описании
	Search string
}

// Match применяет фильтр к одному ресурсу так же, как это делает SQL-выборка.
func (f ResourceFilter) Match(r *Resource) bool {
	if f.VerifiedOnly && !r.Verified {
		return false
	}
	if f.CoordinatorID != nil && !r.IsCoordinatedBy(*f.CoordinatorID) {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Status != "" && r.Status() != f.Status {
		return false
	}
	if f.Region != "" && !containsFold(r.Region, f.Region) {
		return false
	}
	if f.Search != "" && !containsFold(r.Name, f.Search) && !containsFold(r.Description, f.Search) {
		return false
	}
	return true
}

// ResourceDetails - описательные поля, которые можно править после регистрации.
// nil означает "не менять".
type ResourceDetails struct {
	Name        *string
	Contact     *string
	Description *string
	Helpline    *string
}

// Empty сообщает, что правка ничего не меняет.
func (d ResourceDetails) Empty() bool {
	return d.Name == nil && d.Contact == nil && d.Description == nil && d.Helpline == nil
}

// ApplyTo переносит заданные поля в r.
func (d ResourceDetails) ApplyTo(r *Resource) {
	if d.Name != nil {
		r.Name = *d.Name
	}
	if d.Contact != nil {
		r.Contact = *d.Contact
	}
	if d.Description != nil {
		r.Description = *d.Description
	}
	if d.Helpline != nil {
		r.Helpline = *d.Helpline
	}
}

// ResourceStats - сводка по реестру для администратора.
type ResourceStats struct {
	Total    int                    `json:"total_resources"`
	Verified int                    `json:"verified_resources"`
	ByType   map[ResourceType]int   `json:"by_type"`
	ByStatus map[ResourceStatus]int `json:"by_status"`
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func IntPtr(v int) *int {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneUUID(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
