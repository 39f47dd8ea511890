// Package apperr описывает ошибки предметной области: стабильный машиночитаемый
// вид (kind) и человекочитаемое сообщение.
package apperr

import (
	"errors"
	"fmt"
)

// Kind - машиночитаемый вид ошибки, передается клиенту как есть.
type Kind string

// Виды ошибок.
const (
	KindNotAuthorized    Kind = "not-authorized"
	KindNotOwner         Kind = "not-owner"
	KindInvalidInput     Kind = "invalid-input"
	KindAmbiguousVariant Kind = "ambiguous-variant"
	KindInvalidField     Kind = "invalid-field"
	KindNotFound         Kind = "not-found"
	KindConflict         Kind = "conflict"
	KindDecryption       Kind = "decryption-error"
	KindConfig           Kind = "config-error"
	KindInternal         Kind = "internal-error"
)

// Error - ошибка предметной области.
type Error struct {
	Kind    Kind
	Message string
	Err     error // Исходная причина, клиенту не отдается
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по виду, поэтому errors.Is(err, apperr.ErrNotOwner)
// срабатывает для любой ошибки вида not-owner.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Сентинельные ошибки для сравнения через errors.Is.
var (
	ErrNotAuthorized    = &Error{Kind: KindNotAuthorized, Message: "нет доступа к персоне"}
	ErrNotOwner         = &Error{Kind: KindNotOwner, Message: "изменять персону может только владелец"}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput, Message: "неверные входные данные"}
	ErrAmbiguousVariant = &Error{Kind: KindAmbiguousVariant, Message: "не удалось однозначно определить тип записи"}
	ErrInvalidField     = &Error{Kind: KindInvalidField, Message: "недопустимые поля"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "запись не найдена"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "конфликт данных"}
	ErrDecryption       = &Error{Kind: KindDecryption, Message: "не удалось расшифровать секрет"}
	ErrConfig           = &Error{Kind: KindConfig, Message: "ошибка конфигурации"}
)

// New создает ошибку заданного вида.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf создает ошибку заданного вида с форматированным сообщением.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap создает ошибку заданного вида, сохраняя исходную причину.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает вид ошибки или KindInternal, если ошибка не из этого пакета.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение, которое можно показать клиенту.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Внутренняя ошибка сервера"
}
