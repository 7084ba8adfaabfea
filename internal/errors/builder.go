package errors

import (
	"encoding/json"
	"maps"

	"github.com/cockroachdb/errors"
)

// detailsPrefix отличает наши JSON-детали от прочих деталей cockroachdb.
const detailsPrefix = "details:"

// Builder собирает доменную ошибку цепочкой вызовов.
// Сам ошибкой не является: цепочку завершает Mark.
//
//	ierr.NewError("capacity above total").
//		WithHintf("available capacity must not exceed %d", total).
//		WithDetail("capacity", total).
//		Mark(ierr.ErrValidation)
type Builder struct {
	err     error
	details map[string]any
}

// NewError начинает цепочку с новой ошибки.
func NewError(msg string) *Builder {
	return &Builder{err: errors.New(msg)}
}

// WithError начинает цепочку с уже существующей ошибки, например из драйвера БД.
func WithError(err error) *Builder {
	return &Builder{err: err}
}

// WithMessage добавляет внутренний контекст. Клиенту он не показывается.
func (b *Builder) WithMessage(msg string) *Builder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint задаёт сообщение для клиента (поле error.message в ответе API).
func (b *Builder) WithHint(hint string) *Builder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *Builder) WithHintf(format string, args ...any) *Builder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithDetail добавляет одно поле в error.details ответа.
// Значение должно сериализоваться в JSON и не содержать секретов.
func (b *Builder) WithDetail(key string, value any) *Builder {
	if b.details == nil {
		b.details = make(map[string]any)
	}
	b.details[key] = value
	return b
}

// WithDetails добавляет несколько полей в error.details ответа.
func (b *Builder) WithDetails(details map[string]any) *Builder {
	if len(details) == 0 {
		return b
	}
	if b.details == nil {
		b.details = make(map[string]any, len(details))
	}
	maps.Copy(b.details, details)
	return b
}

// Mark помечает ошибку видом (ErrValidation, ErrNotFound, ...) и завершает цепочку.
func (b *Builder) Mark(kind *InternalError) error {
	b.flushDetails()
	b.err = errors.Mark(b.err, kind)
	return b.err
}

// Error завершает цепочку без вида. Такая ошибка считается ErrSystem.
func (b *Builder) Error() error {
	b.flushDetails()
	return b.err
}

func (b *Builder) flushDetails() {
	if len(b.details) == 0 {
		return
	}
	marshaled, err := json.Marshal(b.details)
	b.details = nil
	if err != nil {
		b.err = errors.WithMessage(b.err, "details dropped: "+err.Error())
		return
	}
	b.err = errors.WithDetail(b.err, detailsPrefix+string(marshaled))
}
