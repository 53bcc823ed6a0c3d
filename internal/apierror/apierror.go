// Package apierror maps upstream HTTP failures onto the error taxonomy shown to users.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
	ErrConnection   = errors.New("connection error")
	ErrBadRequest   = errors.New("bad request")
)

// User-facing messages. The frontend is Spanish-only.
const (
	MsgUnauthorized = "Credenciales inválidas o sesión no autorizada"
	MsgForbidden    = "Acceso denegado"
	MsgNotFound     = "Recurso no encontrado"
	MsgConflict     = "Conflicto: el recurso ya existe"
	MsgServer       = "Error del servidor, inténtalo más tarde"
	MsgConnection   = "Error de conexión con el servidor"
	MsgBadRequest   = "Solicitud inválida"
	MsgUnexpected   = "Ha ocurrido un error inesperado"
)

// Error is returned by every upstream client. Status is 0 for transport
// failures where no response was received.
type Error struct {
	Op     string
	Status int
	Detail string
	Err    error
	// Public marks Detail as safe to show to the user.
	Public bool
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() []error {
	errs := []error{}
	if kind := kindFor(e.Status); kind != nil {
		errs = append(errs, kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// FromStatus builds an error for a non-OK response.
func FromStatus(op string, status int, detail string) *Error {
	return &Error{Op: op, Status: status, Detail: detail}
}

// FromTransport builds an error for a request that never got a response.
func FromTransport(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func kindFor(status int) error {
	switch {
	case status == 0:
		return ErrConnection
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 500:
		return ErrServer
	}
	return nil
}

// IsRetryable reports whether a request failing with err may succeed if repeated:
// 5xx responses and transport failures, client timeouts included. A cancelled
// context is final; callers guard their own deadline separately.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == 0 || apiErr.Status >= 500
	}
	return false
}

// Status returns the HTTP status a handler should answer with for err.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			return http.StatusBadGateway
		}
		return apiErr.Status
	}
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConnection):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message translates err into the message shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return MsgUnauthorized
	case errors.Is(err, ErrForbidden):
		return MsgForbidden
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrConflict):
		return MsgConflict
	case errors.Is(err, ErrServer):
		return MsgServer
	case errors.Is(err, ErrConnection):
		return MsgConnection
	case errors.Is(err, ErrBadRequest):
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			return MsgBadRequest
		}
		if apiErr.Public && apiErr.Detail != "" {
			return apiErr.Detail
		}
		// Upstream validation bodies are not shown to users.
		return MsgUnexpected
	}
	return MsgUnexpected
}

// Invalid wraps a validation failure so it maps to 400 with its own message.
func Invalid(op, detail string) *Error {
	return &Error{Op: op, Status: http.StatusBadRequest, Detail: detail, Public: true}
}
