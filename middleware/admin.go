package middleware

import (
	"hackportal/services"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminOnly must run after Protected.
func AdminOnly(admins services.AdminAllowList) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}
		if !admins.IsAdmin(user) {
			utils.LogEvent("admin_access_denied", map[string]interface{}{
				"user_id": user.ID,
				"path":    c.Path(),
			})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
