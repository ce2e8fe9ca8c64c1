package controller

import (
	"errors"

	"hackportal/services"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[services.Kind]int{
	services.KindBadRequest:   fiber.StatusBadRequest,
	services.KindUnauthorized: fiber.StatusUnauthorized,
	services.KindForbidden:    fiber.StatusForbidden,
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindConflict:     fiber.StatusConflict,
}

// respondError writes err as {"error": msg}. Typed service errors keep
// their message; anything else is logged and reported as a 500.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if status, ok := statusByKind[svcErr.Kind]; ok {
			return c.Status(status).JSON(fiber.Map{
				"error": svcErr.Message,
			})
		}
	}

	utils.LogError("request_failed", err, map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
