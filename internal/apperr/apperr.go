// Package apperr defines the error kinds surfaced at action boundaries and
// their HTTP mapping.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindPersistence    Kind = "persistence"
	KindExternal       Kind = "external_service"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Shown is set once the failure has been posted as a notice.
	Shown bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func Authentication(msg string, err error) error {
	return &Error{Kind: KindAuthentication, Message: msg, Err: err}
}

// Persistence wraps a failed record store write.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// External wraps any other upstream failure; the upstream message is kept for
// display.
func External(err error) error {
	return &Error{Kind: KindExternal, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MarkShown flags err as already displayed to the user and returns it.
func MarkShown(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		appErr.Shown = true
	}
	return err
}

func WasShown(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Shown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps err to the HTTP status returned to the browser.
func Status(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindPersistence, KindExternal:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Handler is a fiber.ErrorHandler writing {"error", "kind"} bodies.
func Handler(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}
	if kind := KindOf(err); kind != "" {
		body["kind"] = kind
	}
	return c.Status(Status(err)).JSON(body)
}
