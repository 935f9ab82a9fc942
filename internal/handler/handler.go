package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/service"
)

// actorFromCtx rebuilds the acting user from the locals set by RequireAuth.
func actorFromCtx(c *fiber.Ctx) service.Actor {
	userID, _ := uuid.Parse(localString(c, "user_id"))
	orgID, _ := uuid.Parse(localString(c, "organization_id"))
	return service.Actor{
		UserID:         userID,
		OrganizationID: orgID,
		Name:           localString(c, "user_name"),
		Email:          localString(c, "user_email"),
	}
}

func localString(c *fiber.Ctx, key string) string {
	value, _ := c.Locals(key).(string)
	return value
}

// fail translates service errors to HTTP. Domain errors carry their own
// status; anything else is a 500 with a generic body.
func fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status == 500 {
		return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", name)
	}
	return id, nil
}
