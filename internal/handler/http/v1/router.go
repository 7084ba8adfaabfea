package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1.
// Группа api должна уже содержать IdentityMiddleware.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	authed := RequireIdentity()

	// Ресурсы: поиск и чтение публичны, изменения требуют токена
	resources := api.Group("/resources")
	{
		resources.GET("/nearby", h.findNearby)
		resources.GET("", h.listResources)
		resources.GET("/stats", authed, h.getStats)
		resources.GET("/:id", h.getResource)
		resources.POST("", authed, h.submitResource)
		resources.PATCH("/:id", authed, h.updateResourceDetails)
		resources.POST("/:id/verify", authed, h.verifyResource)
		resources.POST("/:id/assign-coordinator", authed, h.assignCoordinator)
		resources.POST("/:id/closure", authed, h.setClosure)
		resources.POST("/:id/capacity", authed, h.updateCapacity)
	}

	api.GET("/capacity-updates", authed, h.listCapacityUpdates)

	alerts := api.Group("/alerts")
	{
		alerts.GET("/active", h.activeAlerts)
		alerts.POST("", authed, h.createAlert)
		alerts.POST("/:id/deactivate", authed, h.deactivateAlert)
	}

	accounts := api.Group("/accounts")
	{
		accounts.POST("", h.registerAccount)
		accounts.GET("", authed, h.listAccounts)
		accounts.GET("/:id", authed, h.getAccount)
		accounts.POST("/:id/approve", authed, h.approveAccount)
		accounts.PUT("/:id/role", authed, h.setAccountRole)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
