package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Active alerts
// @Description Alerts that are active and unexpired, global ones included, newest first.
// @Tags Alerts
// @Produce json
// @Param region query string false "Region label"
// @Success 200 {array} AlertResponse
// @Failure 500 {object} ErrorResponse
// @Router /alerts/active [get]
func (h *Handler) activeAlerts(c *gin.Context) {
	region := c.Query("region")
	log := h.logger.WithField("method", "activeAlerts").WithField("region", region)

	alerts, err := h.alerts.ActiveAlerts(c.Request.Context(), region)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToAlertResponses(alerts))
}

// @Summary Create an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alert body CreateAlertRequest true "Alert"
// @Success 201 {object} AlertResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /alerts [post]
func (h *Handler) createAlert(c *gin.Context) {
	log := h.logger.WithField("method", "createAlert")

	var input CreateAlertRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	alert, err := h.alerts.CreateAlert(c.Request.Context(), actorFromContext(c), DTOToAlertModel(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToAlertResponse(alert))
}

// @Summary Deactivate an alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} AlertResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /alerts/{id}/deactivate [post]
func (h *Handler) deactivateAlert(c *gin.Context) {
	log := h.logger.WithField("method", "deactivateAlert")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	alert, err := h.alerts.DeactivateAlert(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToAlertResponse(alert))
}
