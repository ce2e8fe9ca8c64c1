package middleware

import (
	"context"
	"strings"

	"hackportal/models"
	"hackportal/utils"

	"github.com/gofiber/fiber/v2"
)

// UserLoader resolves the user id carried by a session.
type UserLoader interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// Protected rejects requests without a valid session and stores the
// session's user in c.Locals("user").
func Protected(users UserLoader, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := sessionToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		user, err := loadSessionUser(c, users, secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
			})
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// OptionalSession attaches the user when a valid session is present and
// lets the request through either way.
func OptionalSession(users UserLoader, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := sessionToken(c)
		if err == nil && token != "" {
			if user, err := loadSessionUser(c, users, secret, token); err == nil {
				c.Locals("user", user)
				c.Locals("userID", user.ID)
			}
		}
		return c.Next()
	}
}

// CurrentUser returns the user set by Protected or OptionalSession.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func sessionToken(c *fiber.Ctx) (string, error) {
	// Try the Authorization header first, then the session cookie
	if authHeader := c.Get("Authorization"); authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization format")
		}
		return tokenParts[1], nil
	}
	return c.Cookies(utils.SessionCookie), nil
}

func loadSessionUser(c *fiber.Ctx, users UserLoader, secret, token string) (*models.User, error) {
	claims, err := utils.ParseSessionToken(token, secret)
	if err != nil {
		return nil, err
	}
	return users.UserByID(c.UserContext(), claims.UserID)
}
