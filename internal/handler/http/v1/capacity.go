package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
)

// @Summary Update available capacity
// @Description Sets the free slot count of a resource and appends an audit record.
// @Description Only the assigned, approved coordinator or an admin may call it.
// @Tags Capacity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Resource ID"
// @Param body body CapacityUpdateRequest true "New available capacity"
// @Success 201 {object} CapacityUpdateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /resources/{id}/capacity [post]
func (h *Handler) updateCapacity(c *gin.Context) {
	log := h.logger.WithField("method", "updateCapacity")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	var input CapacityUpdateRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	update, err := h.capacity.UpdateCapacity(c.Request.Context(), actorFromContext(c), id, *input.AvailableCapacity, input.ChangeLog)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusCreated, ModelToCapacityUpdateResponse(update))
}

// @Summary Recent capacity updates
// @Description Newest first, optionally for a single resource.
// @Tags Capacity
// @Produce json
// @Security BearerAuth
// @Param resource_id query string false "Resource ID"
// @Param limit query int false "Maximum records" default(50)
// @Success 200 {array} CapacityUpdateResponse
// @Failure 400 {object} ErrorResponse
// @Router /capacity-updates [get]
func (h *Handler) listCapacityUpdates(c *gin.Context) {
	log := h.logger.WithField("method", "listCapacityUpdates")

	var resourceID *uuid.UUID
	if raw := c.Query("resource_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(c, log, ierr.WithError(err).
				WithHint("invalid resource_id").
				Mark(ierr.ErrValidation))
			return
		}
		resourceID = &id
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, log, ierr.NewError("invalid limit "+raw).
				WithHint("limit must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
		limit = n
	}

	updates, err := h.capacity.ListRecent(c.Request.Context(), resourceID, limit)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToCapacityUpdateResponses(updates))
}
