package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/agalitsyn/taskboard/internal/auth"
	"github.com/agalitsyn/taskboard/internal/model"
)

var errUnauthenticated = errors.New("authentication required")

// errorHandler turns domain errors into stable status codes. Unknown errors
// are logged and hidden behind a generic message.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, resp := s.classify(err)
	if status == fiber.StatusInternalServerError {
		s.log.Logf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(resp)
}

func (s *Server) classify(err error) (int, ErrorResponse) {
	var (
		verr  *model.ValidationError
		terr  *model.InvalidTransitionError
		fiErr *fiber.Error
	)

	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Validation failed", Fields: verr.Fields}
	case errors.As(err, &terr):
		return fiber.StatusBadRequest, ErrorResponse{Error: "invalid_transition", Message: terr.Error()}
	case errors.Is(err, model.ErrInvalidDeadline):
		return fiber.StatusBadRequest, ErrorResponse{Error: "invalid_deadline", Message: "Deadline must be in the future"}
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Not found"}
	case errors.Is(err, model.ErrAccessDenied):
		return fiber.StatusForbidden, ErrorResponse{Error: "access_denied", Message: "Access denied"}
	case errors.Is(err, model.ErrUserInactive):
		return fiber.StatusForbidden, ErrorResponse{Error: "user_inactive", Message: "Account is deactivated"}
	case errors.Is(err, model.ErrConflict):
		return fiber.StatusConflict, ErrorResponse{Error: "conflict", Message: "Conflicting change, reload and retry"}
	case errors.Is(err, model.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Invalid email or password"}
	case errors.Is(err, auth.ErrExpiredToken):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Token has expired"}
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, errUnauthenticated):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Invalid or missing token"}
	case errors.As(err, &fiErr):
		return fiErr.Code, ErrorResponse{Error: "request_error", Message: fiErr.Message}
	default:
		return fiber.StatusInternalServerError, ErrorResponse{Error: "server_error", Message: "Internal Server Error"}
	}
}
