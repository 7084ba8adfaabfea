package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Виды ошибок, видимые клиенту. Каждая ошибка сервисного слоя
// помечена ровно одним из этих значений.
var (
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrPermissionDenied = new(ErrCodeAuthorization, "authorization error")
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrConflict         = new(ErrCodeConflict, "conflict")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystem, "system error")

	// kinds in match order, first hit wins
	kinds = []*InternalError{
		ErrValidation,
		ErrPermissionDenied,
		ErrNotFound,
		ErrConflict,
		ErrDatabase,
		ErrSystem,
	}

	statusCodeMap = map[*InternalError]int{
		ErrValidation:       http.StatusBadRequest,
		ErrPermissionDenied: http.StatusForbidden,
		ErrNotFound:         http.StatusNotFound,
		ErrConflict:         http.StatusConflict,
		ErrDatabase:         http.StatusInternalServerError,
		ErrSystem:           http.StatusInternalServerError,
	}
)

const (
	ErrCodeValidation    = "validation_error"
	ErrCodeAuthorization = "authorization_error"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeDatabase      = "database_error"
	ErrCodeSystem        = "system_error"
)

// InternalError - вид доменной ошибки
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is сравнивает виды ошибок, в том числе обёрнутых
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCallerError сообщает, что ошибку вызвали данные или права клиента,
// а не инфраструктура. Такие ошибки никогда не повторяются.
func IsCallerError(err error) bool {
	return IsValidation(err) || IsPermissionDenied(err) || IsNotFound(err) || IsConflict(err)
}

// Kind возвращает вид ошибки err, для непомеченной ошибки ErrSystem.
func Kind(err error) *InternalError {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrSystem
}

// Code возвращает машиночитаемый код ошибки.
func Code(err error) string {
	return Kind(err).Code
}

func HTTPStatusFromErr(err error) int {
	if status, ok := statusCodeMap[Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DisplayMessage возвращает первую непустую подсказку из err,
// иначе общее сообщение её вида.
func DisplayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return Kind(err).Message
}

// Details собирает поля, добавленные через Builder.WithDetail(s), по всей цепочке.
// При совпадении ключей побеждает внешний слой. Без деталей возвращает nil.
func Details(err error) map[string]any {
	var out map[string]any
	for _, detail := range errors.GetAllDetails(err) {
		raw, ok := strings.CutPrefix(detail, detailsPrefix)
		if !ok {
			continue
		}
		var layer map[string]any
		if json.Unmarshal([]byte(raw), &layer) != nil {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(layer))
		}
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
