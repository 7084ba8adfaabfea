package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shenikar/relief_locator/internal/config"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/sirupsen/logrus"
)

// Services - набор сервисов, которые обслуживает HTTP-слой
type Services struct {
	Resources service.ResourceService
	Search    service.SearchService
	Capacity  service.CapacityService
	Accounts  service.AccountService
	Alerts    service.AlertService
}

type Handler struct {
	resources service.ResourceService
	search    service.SearchService
	capacity  service.CapacityService
	accounts  service.AccountService
	alerts    service.AlertService
	logger    *logrus.Logger
	validate  *validator.Validate
	cfg       *config.Config
}

func NewHandler(services Services, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		resources: services.Resources,
		search:    services.Search,
		capacity:  services.Capacity,
		accounts:  services.Accounts,
		alerts:    services.Alerts,
		logger:    logger,
		validate:  validator.New(),
		cfg:       cfg,
	}
}

// @Summary Health check
// @Description Проверка работоспособности сервиса
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindJSON decodes and validates the request body, answering 400 itself
// when either step fails.
func (h *Handler) bindJSON(c *gin.Context, log *logrus.Entry, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		h.respondError(c, log, ierr.WithError(err).
			WithHint("invalid request body").
			Mark(ierr.ErrValidation))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.respondError(c, log, ierr.WithError(err).
			WithHint(validationMessage(err)).
			WithDetail("fields", invalidFields(err)).
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context, log *logrus.Entry, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, log, ierr.WithError(err).
			WithHintf("invalid %s", name).
			Mark(ierr.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the error kind to a status and writes the envelope.
// Infrastructure failures never leak their cause to the client.
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	status := ierr.HTTPStatusFromErr(err)
	body := ErrorBody{
		Code:    ierr.Code(err),
		Message: ierr.DisplayMessage(err),
		Details: ierr.Details(err),
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("details", body.Details).Error("Request failed")
		body.Message = "internal server error"
		body.Details = nil
	} else if body.Details != nil {
		log.WithField("details", body.Details).Debug("Request rejected")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

// invalidFields перечисляет поля, не прошедшие валидацию, в порядке проверки.
func invalidFields(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !ierr.As(err, &fieldErrs) {
		return nil
	}
	return lo.Uniq(lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		return fe.Field()
	}))
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !ierr.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+": failed "+fe.Tag()+"="+fe.Param())
			continue
		}
		parts = append(parts, fe.Field()+": failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
