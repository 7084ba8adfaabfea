package service

import (
	"fmt"

	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
)

// Action - операция, доступ к которой задаёт матрица ролей
type Action string

const (
	ActionSubmitResource    Action = "submit_resource"
	ActionVerifyResource    Action = "verify_resource"
	ActionAssignCoordinator Action = "assign_coordinator"
	ActionUpdateCapacity    Action = "update_capacity"
	ActionCloseResource     Action = "close_resource"
	ActionEditResource      Action = "edit_resource"
	ActionManageAccounts    Action = "manage_accounts"
	ActionManageAlerts      Action = "manage_alerts"
	ActionViewStats         Action = "view_stats"
)

func (a Action) ownershipScoped() bool {
	return a == ActionUpdateCapacity || a == ActionCloseResource || a == ActionEditResource
}

// Authorize сверяет actor с матрицей ролей. resource нужен для действий,
// ограниченных назначением координатора (см. ownershipScoped), иначе игнорируется.
//
//	action              citizen  coordinator        admin
//	submit resource     yes      yes                yes
//	update capacity     no       own assignment     any
//	close resource      no       own assignment     any
//	edit details        no       own assignment     any
//	everything else     no       no                 yes
//
// Координаторы и администраторы действуют только после одобрения.
func Authorize(actor models.Actor, action Action, resource *models.Resource) error {
	if !actor.Authenticated() {
		return ierr.NewError("actor is not authenticated").
			WithHint("Sign in to perform this action").
			Mark(ierr.ErrPermissionDenied)
	}

	if action == ActionSubmitResource {
		return nil
	}

	if !actor.IsApproved {
		return ierr.NewError(fmt.Sprintf("account %s is not approved", actor.AccountID)).
			WithHint("Your account is awaiting approval").
			Mark(ierr.ErrPermissionDenied)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCoordinator:
		if action.ownershipScoped() {
			if resource == nil {
				// ownership is checked once the resource is loaded
				return nil
			}
			if resource.IsCoordinatedBy(actor.AccountID) {
				return nil
			}
			return ierr.NewError(fmt.Sprintf("coordinator %s is not assigned to resource %s", actor.AccountID, resource.ID)).
				WithHint("You are not the assigned coordinator for this resource").
				WithDetails(map[string]any{"action": action, "resource_id": resource.ID}).
				Mark(ierr.ErrPermissionDenied)
		}
	}

	return ierr.NewError(fmt.Sprintf("role %s may not %s", actor.Role, action)).
		WithHintf("Your role does not allow %s", action).
		WithDetails(map[string]any{"action": action, "role": actor.Role}).
		Mark(ierr.ErrPermissionDenied)
}
