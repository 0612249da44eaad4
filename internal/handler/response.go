package handler

import (
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError renders err as {"error": message, "code": kind} with the
// status that belongs to its kind. Lock conflicts get a Retry-After header;
// retrying is up to the client.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperror.GetAppError(err)
	if apperror.IsRetryable(err) {
		c.Set("Retry-After", "1")
	}
	if appErr.Code >= fiber.StatusInternalServerError {
		logger.L().Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(appErr.Code).JSON(appErr)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  apperror.KindInvalidArgument,
	})
}

// currentActor reads the user set by RequireAuth.
func currentActor(c *fiber.Ctx) service.Actor {
	actor := service.Actor{Name: "Unknown"}
	if id, ok := c.Locals(middleware.LocalUserID).(uuid.UUID); ok {
		actor.ID = id
	}
	if name, ok := c.Locals(middleware.LocalUserName).(string); ok {
		actor.Name = name
	}
	return actor
}

// paramUUID parses a UUID path parameter.
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
