package v1

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

// DTOToResourceModel преобразует запрос регистрации в доменную модель
func DTOToResourceModel(dto SubmitResourceRequest) *models.Resource {
	return &models.Resource{
		Name:              dto.Name,
		Type:              models.ResourceType(strings.ToLower(dto.Type)),
		Description:       dto.Description,
		Latitude:          lo.FromPtr(dto.Latitude),
		Longitude:         lo.FromPtr(dto.Longitude),
		Region:            dto.Region,
		Address:           dto.Address,
		Capacity:          dto.Capacity,
		AvailableCapacity: dto.AvailableCapacity,
		Contact:           dto.Contact,
		Helpline:          dto.Helpline,
		ImageRef:          dto.ImageRef,
	}
}

// DTOToResourceDetails преобразует запрос правки в набор изменяемых полей
func DTOToResourceDetails(dto UpdateDetailsRequest) models.ResourceDetails {
	return models.ResourceDetails{
		Name:        dto.Name,
		Contact:     dto.Contact,
		Description: dto.Description,
		Helpline:    dto.Helpline,
	}
}

// ModelToResourceResponse преобразует доменную модель в DTO для ответа
func ModelToResourceResponse(model *models.Resource) ResourceResponse {
	return ResourceResponse{
		ID:                model.ID,
		Name:              model.Name,
		Type:              string(model.Type),
		Description:       model.Description,
		Latitude:          model.Latitude,
		Longitude:         model.Longitude,
		Region:            model.Region,
		Address:           model.Address,
		Capacity:          model.Capacity,
		AvailableCapacity: model.AvailableCapacity,
		Status:            string(model.Status()),
		Contact:           model.Contact,
		Helpline:          model.Helpline,
		ImageRef:          model.ImageRef,
		Verified:          model.Verified,
		CoordinatorID:     model.CoordinatorID,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func ModelsToResourceResponses(resources []*models.Resource) []ResourceResponse {
	return lo.Map(resources, func(r *models.Resource, _ int) ResourceResponse {
		return ModelToResourceResponse(r)
	})
}

// NearbyToResponse rounds distances for display only; ordering was
// decided on the exact values.
func NearbyToResponse(query service.NearbyQuery, results []service.NearbyResult) NearbyResponse {
	return NearbyResponse{
		Latitude:      query.Center.Latitude,
		Longitude:     query.Center.Longitude,
		MaxDistanceKm: query.MaxDistanceKm,
		Count:         len(results),
		Resources: lo.Map(results, func(r service.NearbyResult, _ int) NearbyResourceResponse {
			return NearbyResourceResponse{
				ResourceResponse: ModelToResourceResponse(r.Resource),
				DistanceKm:       geo.RoundKm(r.DistanceKm),
			}
		}),
	}
}

func ModelToCapacityUpdateResponse(u *models.CapacityUpdate) CapacityUpdateResponse {
	return CapacityUpdateResponse{
		ID:               u.ID,
		ResourceID:       u.ResourceID,
		ActorID:          u.ActorID,
		PreviousCapacity: u.PreviousCapacity,
		NewCapacity:      u.NewCapacity,
		ChangeLog:        u.ChangeLog,
		Timestamp:        u.Timestamp,
	}
}

func ModelsToCapacityUpdateResponses(updates []*models.CapacityUpdate) []CapacityUpdateResponse {
	return lo.Map(updates, func(u *models.CapacityUpdate, _ int) CapacityUpdateResponse {
		return ModelToCapacityUpdateResponse(u)
	})
}

func DTOToAlertModel(dto CreateAlertRequest) *models.Alert {
	return &models.Alert{
		Title:       dto.Title,
		Description: dto.Description,
		Severity:    models.Severity(strings.ToLower(dto.Severity)),
		Region:      dto.Region,
		ExpiresAt:   dto.ExpiresAt,
	}
}

func ModelToAlertResponse(a *models.Alert) AlertResponse {
	return AlertResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Severity:    string(a.Severity),
		Region:      a.Region,
		IsActive:    a.IsActive,
		ExpiresAt:   a.ExpiresAt,
		CreatedAt:   a.CreatedAt,
	}
}

func ModelsToAlertResponses(alerts []*models.Alert) []AlertResponse {
	return lo.Map(alerts, func(a *models.Alert, _ int) AlertResponse {
		return ModelToAlertResponse(a)
	})
}

func DTOToAccountModel(dto RegisterAccountRequest) *models.Account {
	return &models.Account{
		Username:    dto.Username,
		Email:       dto.Email,
		PhoneNumber: dto.PhoneNumber,
		Role:        models.Role(strings.ToLower(dto.Role)),
	}
}

func ModelToAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		Role:        string(a.Role),
		IsApproved:  a.IsApproved,
		CreatedAt:   a.CreatedAt,
	}
}

func ModelsToAccountResponses(accounts []*models.Account) []AccountResponse {
	return lo.Map(accounts, func(a *models.Account, _ int) AccountResponse {
		return ModelToAccountResponse(a)
	})
}

func ModelToStatsResponse(s *models.ResourceStats) StatsResponse {
	return StatsResponse{
		TotalResources:    s.Total,
		VerifiedResources: s.Verified,
		ByType: lo.MapKeys(s.ByType, func(_ int, k models.ResourceType) string {
			return string(k)
		}),
		ByStatus: lo.MapKeys(s.ByStatus, func(_ int, k models.ResourceStatus) string {
			return string(k)
		}),
	}
}
