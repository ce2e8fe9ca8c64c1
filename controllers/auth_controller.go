package controller

import (
	"time"

	"hackportal/middleware"
	"hackportal/models"
	"hackportal/services"
	"hackportal/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=participant sponsor"`
}

// AuthController runs the OAuth login flow and owns the session cookie.
type AuthController struct {
	Identities    *services.IdentityResolver
	Profiles      *services.Profiles
	Admins        services.AdminAllowList
	Providers     map[string]IdentityProvider
	SessionSecret string
	SessionTTL    time.Duration
	FrontendURL   string
	SecureCookies bool
}

// Login redirects to the provider named in the route.
func (ac *AuthController) Login(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := ac.Providers[provider]
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Login provider not configured",
			})
		}

		// Store state in HTTP-only cookie with short expiry
		state := uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Expires:  time.Now().Add(10 * time.Minute),
			HTTPOnly: true,
			Secure:   ac.SecureCookies,
			SameSite: "Lax",
		})

		return c.Redirect(p.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
	}
}

// Callback finishes the flow, resolves the local user and starts a session.
func (ac *AuthController) Callback(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := ac.Providers[provider]
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Login provider not configured",
			})
		}

		// Verify state token from cookie
		state := c.Query("state")
		cookieState := c.Cookies(oauthStateCookie)
		c.ClearCookie(oauthStateCookie)
		if state == "" || cookieState == "" || state != cookieState {
			return ac.loginFailed(c, "invalid_state")
		}

		code := c.Query("code")
		if code == "" {
			return ac.loginFailed(c, "missing_code")
		}

		identity, err := p.FetchIdentity(c.UserContext(), code)
		if err != nil {
			utils.LogError("oauth_exchange", err, map[string]interface{}{"provider": provider})
			return ac.loginFailed(c, "token_failed")
		}
		if err := checkmail.ValidateFormat(identity.Email); err != nil {
			utils.LogEvent("oauth_invalid_email", map[string]interface{}{
				"provider": provider,
				"email":    identity.Email,
			})
			return ac.loginFailed(c, "invalid_email")
		}

		user, err := ac.Identities.ResolveIdentity(c.UserContext(), identity.Email, identity.DisplayName)
		if err != nil {
			utils.LogError("resolve_identity", err, map[string]interface{}{"provider": provider})
			return ac.loginFailed(c, "login_failed")
		}

		if err := ac.startSession(c, user); err != nil {
			utils.LogError("session_sign", err, map[string]interface{}{"user_id": user.ID})
			return ac.loginFailed(c, "login_failed")
		}

		next := "/hackers/dashboard"
		if user.Role == models.RoleUnset {
			next = "/hackers/role"
		}
		return c.Redirect(ac.FrontendURL+next, fiber.StatusTemporaryRedirect)
	}
}

// Check reports the session's user.
func (ac *AuthController) Check(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          user,
		"isAdmin":       ac.Admins.IsAdmin(user),
	})
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   ac.SecureCookies,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// SelectRole lets a new user pick participant or sponsor, once.
func (ac *AuthController) SelectRole(c *fiber.Ctx) error {
	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := ac.Profiles.SelectRole(c.UserContext(), middleware.CurrentUser(c), models.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (ac *AuthController) startSession(c *fiber.Ctx, user *models.User) error {
	token, err := utils.GenerateSessionToken(user.ID, ac.SessionSecret, ac.SessionTTL)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ac.SessionTTL),
		HTTPOnly: true,
		Secure:   ac.SecureCookies,
		SameSite: "Lax",
	})
	return nil
}

func (ac *AuthController) loginFailed(c *fiber.Ctx, reason string) error {
	return c.Redirect(ac.FrontendURL+"/hackers/login?error="+reason, fiber.StatusTemporaryRedirect)
}
