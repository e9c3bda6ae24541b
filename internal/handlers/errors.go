package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, services.ErrInvalidDimensions), errors.Is(err, services.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrSessionNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
}

// ErrorHandler renders errors returned from handlers and middleware as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}
