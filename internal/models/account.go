package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCitizen     Role = "citizen"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleCoordinator || r == RoleAdmin
}

type Account struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Role        Role      `json:"role"`
	IsApproved  bool      `json:"is_approved"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Account) IsApprovedCoordinator() bool {
	return a.Role == RoleCoordinator && a.IsApproved
}

// Actor - личность вызывающего операцию, её передаёт слой
// идентификации для каждого запроса.
type Actor struct {
	AccountID  uuid.UUID
	Role       Role
	IsApproved bool
}

func (a Actor) Authenticated() bool {
	return a.AccountID != uuid.Nil && a.Role.Valid()
}

// Anonymous - actor неаутентифицированных запросов.
var Anonymous = Actor{}
