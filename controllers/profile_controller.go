package controller

import (
	"hackportal/middleware"
	"hackportal/models"
	"hackportal/services"

	"github.com/gofiber/fiber/v2"
)

type ProfileController struct {
	Profiles    *services.Profiles
	Admins      services.AdminAllowList
	FrontendURL string
}

func NewProfileController(profiles *services.Profiles, admins services.AdminAllowList, frontendURL string) *ProfileController {
	return &ProfileController{Profiles: profiles, Admins: admins, FrontendURL: frontendURL}
}

// publicProfile is what other attendees see after scanning a badge.
func publicProfile(user *models.User) fiber.Map {
	return fiber.Map{
		"name":      user.Name,
		"email":     user.Email,
		"uuid":      user.UUID,
		"role":      user.Role,
		"hasResume": user.HasProfile(),
	}
}

func (pc *ProfileController) Dashboard(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	saves, err := pc.Profiles.ListSaves(c.UserContext(), user)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":       user,
		"saves":      saves,
		"profileUrl": pc.FrontendURL + "/hackers/u/" + user.UUID,
		"isAdmin":    pc.Admins.IsAdmin(user),
	})
}

// UpdateProfile takes a multipart form with optional name and resume.
func (pc *ProfileController) UpdateProfile(c *fiber.Ctx) error {
	update := services.ProfileUpdate{Name: c.FormValue("name")}

	if header, err := c.FormFile("resume"); err == nil {
		file, err := header.Open()
		if err != nil {
			return badRequest(c, "Could not read resume")
		}
		defer file.Close()

		update.Resume = &services.ResumeUpload{
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Size:        header.Size,
			Body:        file,
		}
	}

	user, err := pc.Profiles.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (pc *ProfileController) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	profile, err := pc.Profiles.ProfileByUUID(ctx, c.Params("uuid"))
	if err != nil {
		return respondError(c, err)
	}

	viewer := middleware.CurrentUser(c)
	canSave, err := pc.Profiles.CanSave(ctx, viewer, profile)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":     publicProfile(profile),
		"canSave":  canSave,
		"isOwn":    viewer != nil && viewer.ID == profile.ID,
		"loggedIn": viewer != nil,
	})
}

func (pc *ProfileController) Save(c *fiber.Ctx) error {
	if err := pc.Profiles.SaveProfile(c.UserContext(), middleware.CurrentUser(c), c.Params("uuid")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// Resume redirects to a short-lived download link.
func (pc *ProfileController) Resume(c *fiber.Ctx) error {
	url, err := pc.Profiles.ResumeURL(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}
