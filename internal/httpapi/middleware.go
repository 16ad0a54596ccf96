package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/validation"
)

const actorKey = "actor"

// authenticate resolves the bearer token into an actor. The role comes from
// the directory on every request, so demotion and deactivation apply at once.
func (s *Server) authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: bearer token expected", errUnauthenticated)
	}

	userID, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return err
	}

	actor, err := s.users.Actor(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w: user %s no longer exists", errUnauthenticated, userID)
		}
		return err
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

func actorFrom(c *fiber.Ctx) model.Actor {
	actor, _ := c.Locals(actorKey).(model.Actor)
	return actor
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return validation.Struct(out)
}
