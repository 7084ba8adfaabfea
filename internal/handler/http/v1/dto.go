package v1

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse - единый формат ошибки API
// @Description Error envelope returned by every failing endpoint
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody - код, сообщение и безопасные детали ошибки
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SubmitResourceRequest DTO для регистрации ресурса
// @Description DTO для регистрации ресурса
type SubmitResourceRequest struct {
	Name              string   `json:"name" validate:"required,min=2,max=255"`
	Type              string   `json:"type" validate:"required,oneof=hospital police fire shelter food water"`
	Description       string   `json:"description,omitempty" validate:"max=2000"`
	Latitude          *float64 `json:"latitude" validate:"required,latitude"`
	Longitude         *float64 `json:"longitude" validate:"required,longitude"`
	Region            string   `json:"region,omitempty" validate:"max=100"`
	Address           string   `json:"address" validate:"required,max=500"`
	Capacity          *int     `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	AvailableCapacity *int     `json:"available_capacity,omitempty" validate:"omitempty,gte=0"`
	Contact           string   `json:"contact" validate:"required,max=100"`
	Helpline          string   `json:"helpline,omitempty" validate:"max=100"`
	ImageRef          string   `json:"image_ref,omitempty" validate:"omitempty,url"`
}

// AssignCoordinatorRequest DTO для назначения координатора
type AssignCoordinatorRequest struct {
	CoordinatorID uuid.UUID `json:"coordinator_id" validate:"required"`
}

// ClosureRequest DTO для закрытия/открытия ресурса
type ClosureRequest struct {
	Closed *bool `json:"closed" validate:"required"`
}

// UpdateDetailsRequest DTO для частичной правки ресурса, отсутствующее поле не меняется
type UpdateDetailsRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Contact     *string `json:"contact,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Helpline    *string `json:"helpline,omitempty" validate:"omitempty,max=100"`
}

// CapacityUpdateRequest DTO для изменения свободных мест
type CapacityUpdateRequest struct {
	AvailableCapacity *int   `json:"available_capacity" validate:"required"`
	ChangeLog         string `json:"change_log,omitempty" validate:"max=1000"`
}

// ResourceResponse DTO для ответа с информацией о ресурсе
// @Description DTO для ответа с информацией о ресурсе
type ResourceResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Type              string     `json:"type"`
	Description       string     `json:"description,omitempty"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	Region            string     `json:"region,omitempty"`
	Address           string     `json:"address"`
	Capacity          *int       `json:"capacity,omitempty"`
	AvailableCapacity *int       `json:"available_capacity,omitempty"`
	Status            string     `json:"status"`
	Contact           string     `json:"contact"`
	Helpline          string     `json:"helpline,omitempty"`
	ImageRef          string     `json:"image_ref,omitempty"`
	Verified          bool       `json:"verified"`
	CoordinatorID     *uuid.UUID `json:"coordinator_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NearbyResourceResponse adds the display distance to a resource.
type NearbyResourceResponse struct {
	ResourceResponse
	DistanceKm float64 `json:"distance_km"`
}

// NearbyResponse DTO результата поиска
// @Description Nearby search result
type NearbyResponse struct {
	Latitude      float64                  `json:"latitude"`
	Longitude     float64                  `json:"longitude"`
	MaxDistanceKm float64                  `json:"max_distance_km"`
	Count         int                      `json:"count"`
	Resources     []NearbyResourceResponse `json:"resources"`
}

// CapacityUpdateResponse DTO записи аудита
type CapacityUpdateResponse struct {
	ID               string    `json:"id"`
	ResourceID       uuid.UUID `json:"resource_id"`
	ActorID          uuid.UUID `json:"actor_id"`
	PreviousCapacity int       `json:"previous_capacity"`
	NewCapacity      int       `json:"new_capacity"`
	ChangeLog        string    `json:"change_log"`
	Timestamp        time.Time `json:"timestamp"`
}

// CreateAlertRequest DTO для создания оповещения
type CreateAlertRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=255"`
	Description string     `json:"description" validate:"required,max=5000"`
	Severity    string     `json:"severity,omitempty" validate:"omitempty,oneof=low medium high"`
	Region      string     `json:"region,omitempty" validate:"max=100"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type AlertResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Region      string     `json:"region,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RegisterAccountRequest DTO для регистрации аккаунта
type RegisterAccountRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=150"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"max=15"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=citizen coordinator admin"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=citizen coordinator admin"`
}

type AccountResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Role        string    `json:"role"`
	IsApproved  bool      `json:"is_approved"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	TotalResources    int            `json:"total_resources"`
	VerifiedResources int            `json:"verified_resources"`
	ByType            map[string]int `json:"by_type"`
	ByStatus          map[string]int `json:"by_status"`
}
