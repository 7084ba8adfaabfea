package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultChangeLog = "Capacity updated"

// CapacityUpdate - неизменяемая запись аудита одного изменения вместимости.
// ID - это ULID, поэтому записи одного момента сортируются в порядке коммита.
type CapacityUpdate struct {
	ID               string    `json:"id"`
	ResourceID       uuid.UUID `json:"resource_id"`
	ActorID          uuid.UUID `json:"actor_id"`
	PreviousCapacity int       `json:"previous_capacity"`
	NewCapacity      int       `json:"new_capacity"`
	ChangeLog        string    `json:"change_log"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewerThan упорядочивает записи по времени, затем по ID.
func (u *CapacityUpdate) NewerThan(other *CapacityUpdate) bool {
	if !u.Timestamp.Equal(other.Timestamp) {
		return u.Timestamp.After(other.Timestamp)
	}
	return u.ID > other.ID
}
