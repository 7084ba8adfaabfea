package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/relief_locator/internal/models"
)

// @Summary Register an account
// @Description Citizens are approved immediately; coordinators and admins wait for an admin.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account body RegisterAccountRequest true "Account"
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [post]
func (h *Handler) registerAccount(c *gin.Context) {
	log := h.logger.WithField("method", "registerAccount")

	var input RegisterAccountRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), DTOToAccountModel(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToAccountResponse(account))
}

// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AccountResponse
// @Failure 403 {object} ErrorResponse
// @Router /accounts [get]
func (h *Handler) listAccounts(c *gin.Context) {
	log := h.logger.WithField("method", "listAccounts")

	accounts, err := h.accounts.ListAccounts(c.Request.Context(), actorFromContext(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToAccountResponses(accounts))
}

// @Summary Get account by ID
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [get]
func (h *Handler) getAccount(c *gin.Context) {
	log := h.logger.WithField("method", "getAccount")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToAccountResponse(account))
}

// @Summary Approve an account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id}/approve [post]
func (h *Handler) approveAccount(c *gin.Context) {
	log := h.logger.WithField("method", "approveAccount")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	account, err := h.accounts.Approve(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToAccountResponse(account))
}

// @Summary Change account role
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param body body SetRoleRequest true "Role"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id}/role [put]
func (h *Handler) setAccountRole(c *gin.Context) {
	log := h.logger.WithField("method", "setAccountRole")
	id, ok := h.pathID(c, log, "id")
	if !ok {
		return
	}

	var input SetRoleRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	account, err := h.accounts.SetRole(c.Request.Context(), actorFromContext(c), id, models.Role(input.Role))
	if err != nil {
		h.respondError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToAccountResponse(account))
}
