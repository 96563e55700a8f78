package apperror

import (
	"errors"
	"fmt"
)

// Kind clasifica el error para que la capa HTTP elija el status.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindStorage    Kind = "storage"
	KindInternal   Kind = "internal"
)

// Error lleva la operación, la categoría y un mensaje legible que nombra el id
// problemático.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is permite errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return newf(KindValidation, op, format, args...)
}

func State(op, format string, args ...any) *Error {
	return newf(KindState, op, format, args...)
}

// Storage marca fallos del almacenamiento de imágenes; nunca abortan la transacción.
func Storage(op string, err error) *Error {
	return &Error{Op: op, Kind: KindStorage, Message: "file storage failed", Err: err}
}

// Internal envuelve cualquier fallo inesperado.
func Internal(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf devuelve la categoría de err; lo desconocido es KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message devuelve el texto seguro para el cliente.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsState(err error) bool      { return KindOf(err) == KindState }
