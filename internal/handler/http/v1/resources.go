package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/sirupsen/logrus"
)

// @Summary Find nearby resources
// @Description Verified resources within max_distance km of the point, closest first.
// @Description An omitted type/status uses the configured default; an empty value means all.
// @Tags Resources
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param max_distance query number false "Radius in km" default(10)
// @Param type query string false "Resource type" Enums(hospital, police, fire, shelter, food, water)
// @Param status query string false "Derived status" Enums(open, closed, full)
// @Param search query string false "Case-insensitive text in name or address"
// @Success 200 {object} NearbyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /resources/nearby [get]
func (h *Handler) findNearby(c *gin.Context) {
	log := h.logger.WithField("method", "findNearby")

	query, err := h.nearbyQueryFromRequest(c)
	if err != nil {
		log.WithError(err).Warn("Invalid nearby query parameters")
		h.respondError(c, log, err)
		return
	}

	results, err := h.search.FindNearby(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, NearbyToResponse(query, results))
}

func (h *Handler) nearbyQueryFromRequest(c *gin.Context) (service.NearbyQuery, error) {
	defaults := h.search.Defaults()
	query := service.NearbyQuery{
		MaxDistanceKm: defaults.MaxDistanceKm,
		Filters: service.Filters{
			Type:   defaults.Type,
			Status: defaults.Status,
		},
	}

	lat, err := requiredFloat(c, "lat")
	if err != nil {
		return query, err
	}
	lon, err := requiredFloat(c, "lon")
	if err != nil {
		return query, err
	}
	query.Center = geo.Coordinate{Latitude: lat, Longitude: lon}

	if raw, ok := c.GetQuery("max_distance"); ok {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query, ierr.WithError(err).
				WithHint("max_distance must be a number").
				Mark(ierr.ErrValidation)
		}
		query.MaxDistanceKm = d
	}
	if raw, ok := c.GetQuery("type"); ok {
		query.Filters.Type = models.ResourceType(raw)
	}
	if raw, ok := c.GetQuery("status"); ok {
		query.Filters.Status = models.ResourceStatus(raw)
	}
	query.Filters.SearchText = c.Query("search")
	return query, nil
}

func requiredFloat(c *gin.Context, name string) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, ierr.NewError("missing query parameter " + name).
			WithHintf("%s is required", name).
			Mark(ierr.ErrValidation)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHintf("%s must be a number", name).
			Mark(ierr.ErrValidation)
	}
	return v, nil
}

// @Summary Submit a resource
// @Description Registers a new resource. It stays invisible to search until an admin verifies it.
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param resource body SubmitResourceRequest true "Resource"
// @Success 201 {object} ResourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /resources [post]
func (h *Handler) submitResource(c *gin.Context) {
	log := h.logger.WithField("method", "submitResource")

	var input SubmitResourceRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	created, err := h.resources.Submit(c.Request.Context(), actorFromContext(c), DTOToResourceModel(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToResourceResponse(created))
}

// @Summary List resources
// @Description Admins see every resource, approved coordinators their own, everyone else verified ones.
// @Description Optional filters narrow the list further.
// @Tags Resources
// @Produce json
// @Param type query string false "Resource type" Enums(hospital, police, fire, shelter, food, water)
// @Param status query string false "Derived status" Enums(open, closed, full)
// @Param region query string false "Case-insensitive substring of the region"
// @Param search query string false "Case-insensitive text in name or description"
// @Success 200 {array} ResourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /resources [get]
func (h *Handler) listResources(c *gin.Context) {
	log := h.logger.WithField("method", "listResources")

	filter := models.ResourceFilter{
		Type:   models.ResourceType(c.Query("type")),
		Status: models.ResourceStatus(c.Query("status")),
		Region: c.Query("region"),
		Search: c.Query("search"),
	}
	resources, err := h.resources.ListResources(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToResourceResponses(resources))
}

// @Summary Get resource by ID
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} ResourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /resources/{id} [get]
func (h *Handler) getResource(c *gin.Context) {
	log := h.logger.WithField("method", "getResource")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	resource, err := h.resources.GetResource(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Verify a resource
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Resource ID"
// @Success 200 {object} ResourceResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /resources/{id}/verify [post]
func (h *Handler) verifyResource(c *gin.Context) {
	log := h.logger.WithField("method", "verifyResource")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	resource, err := h.resources.Verify(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Assign a coordinator
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Resource ID"
// @Param body body AssignCoordinatorRequest true "Coordinator"
// @Success 200 {object} ResourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /resources/{id}/assign-coordinator [post]
func (h *Handler) assignCoordinator(c *gin.Context) {
	log := h.logger.WithField("method", "assignCoordinator")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	var input AssignCoordinatorRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	resource, err := h.resources.AssignCoordinator(c.Request.Context(), actorFromContext(c), id, input.CoordinatorID)
	if err != nil {
		h.respondError(c, log.WithFields(logrus.Fields{"id": id, "coordinator_id": input.CoordinatorID}), err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Close or reopen a resource
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Resource ID"
// @Param body body ClosureRequest true "Closure flag"
// @Success 200 {object} ResourceResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /resources/{id}/closure [post]
func (h *Handler) setClosure(c *gin.Context) {
	log := h.logger.WithField("method", "setClosure")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	var input ClosureRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	resource, err := h.resources.SetClosed(c.Request.Context(), actorFromContext(c), id, *input.Closed)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Edit resource details
// @Description Partial update of name, contact, description and helpline.
// @Description Allowed to the assigned coordinator and admins.
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Resource ID"
// @Param body body UpdateDetailsRequest true "Fields to change"
// @Success 200 {object} ResourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /resources/{id} [patch]
func (h *Handler) updateResourceDetails(c *gin.Context) {
	log := h.logger.WithField("method", "updateResourceDetails")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	var input UpdateDetailsRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	resource, err := h.resources.UpdateDetails(c.Request.Context(), actorFromContext(c), id, DTOToResourceDetails(input))
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Registry statistics
// @Description Totals by type and derived status. Admin only.
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 403 {object} ErrorResponse
// @Router /resources/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.resources.Stats(c.Request.Context(), actorFromContext(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToStatsResponse(stats))
}
