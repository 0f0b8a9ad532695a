// Package apperr определяет таксономию ошибок API и их отображение на HTTP-статусы.
package apperr

import (
	"errors"
	"net/http"
)

// Kind классифицирует ошибку
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindForbidden
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindInternal
)

// Error несет класс ошибки и сообщение для пользователя
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthenticated — личность пользователя не подтверждена
func Unauthenticated(message string) error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden — у пользователя нет прав на эту сущность
func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound — сущность не найдена
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// InvalidArgument — неверный формат входных данных
func InvalidArgument(message string) error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// Conflict — нарушено предусловие по статусу или превышен лимит
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// Internal — внутренняя ошибка, оборачивает причину
func Internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf возвращает класс ошибки, по умолчанию KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message возвращает сообщение для пользователя
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Внутренняя ошибка сервера"
}

// HTTPStatus отображает класс ошибки на HTTP-статус.
// Conflict кодируется как 400: исходная система не различает
// нарушение предусловий и неверный ввод на уровне статуса.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument, KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsConflict сообщает, относится ли ошибка к классу Conflict
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsNotFound сообщает, относится ли ошибка к классу NotFound
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
